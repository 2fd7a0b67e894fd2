package system

import (
	"time"

	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred despawn queue at frame end, releasing
// the renderables of removed objects. Phase 6 (Cleanup).
type CleanupSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewCleanupSystem(ws *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: ws, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.FlushDespawns(); n > 0 {
		s.log.Debug("objects despawned", zap.Int("count", n), zap.Int("remaining", s.world.ObjectCount()))
	}
}
