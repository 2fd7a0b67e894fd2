package system

import (
	"time"

	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/persist"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// ReinsertSystem drains the leaf system's dirty queue so every moved
// renderable is in the right leaves before shadows and views run.
// Phase 2 (Reinsert).
type ReinsertSystem struct {
	world *world.State
	stats *persist.FrameStats
	log   *zap.Logger
}

func NewReinsertSystem(ws *world.State, stats *persist.FrameStats, log *zap.Logger) *ReinsertSystem {
	return &ReinsertSystem{world: ws, stats: stats, log: log}
}

func (s *ReinsertSystem) Phase() coresys.Phase { return coresys.PhaseReinsert }

func (s *ReinsertSystem) Update(_ time.Duration) {
	st := s.world.Leaf.RecomputeRenderableLeaves()
	s.stats.Reinserted += st.Processed
	s.stats.Iterations += st.Iterations
	s.stats.Deferred += st.Deferred
	s.stats.CapExceeded = s.stats.CapExceeded || st.CapExceeded

	if st.Processed > 0 {
		s.log.Debug("renderables reinserted",
			zap.Int("frame", s.world.Frame),
			zap.Int("processed", st.Processed),
			zap.Int("passes", st.Iterations),
		)
	}
}
