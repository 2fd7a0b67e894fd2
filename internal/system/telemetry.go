package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/persist"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// TelemetrySink stores batches of frame rows. *persist.TelemetryRepo
// satisfies it.
type TelemetrySink interface {
	InsertFrameStats(ctx context.Context, levelID int64, rows []persist.FrameStats) error
}

// TelemetrySystem closes each frame's counters and flushes them every
// interval frames: a summary line to the log and, when a sink is attached,
// the rows to the database. Phase 5 (Persist).
type TelemetrySystem struct {
	world    *world.State
	sink     TelemetrySink
	levelID  int64
	stats    *persist.FrameStats
	rows     []persist.FrameStats
	interval int
	flushed  int
	log      *zap.Logger
}

// NewTelemetrySystem creates the system. sink may be nil.
func NewTelemetrySystem(ws *world.State, sink TelemetrySink, levelID int64, stats *persist.FrameStats, intervalFrames int, log *zap.Logger) *TelemetrySystem {
	return &TelemetrySystem{
		world:    ws,
		sink:     sink,
		levelID:  levelID,
		stats:    stats,
		rows:     make([]persist.FrameStats, 0, max(intervalFrames, 1)),
		interval: max(intervalFrames, 1),
		log:      log,
	}
}

func (s *TelemetrySystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *TelemetrySystem) Update(dt time.Duration) {
	row := *s.stats
	row.Frame = s.world.Frame
	row.FrameTime = dt
	row.Renderables = s.world.Leaf.RenderableCount()
	row.Shadows = s.world.Leaf.ShadowCount()
	row.RecordedAt = time.Now()
	s.rows = append(s.rows, row)
	*s.stats = persist.FrameStats{}

	if len(s.rows) >= s.interval {
		s.Flush()
	}
}

// Flush writes out buffered rows immediately. Called at shutdown so the
// tail of the run is not lost.
func (s *TelemetrySystem) Flush() {
	if len(s.rows) == 0 {
		return
	}
	s.logSummary()

	if s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sink.InsertFrameStats(ctx, s.levelID, s.rows); err != nil {
			s.log.Error("frame telemetry write failed", zap.Int("rows", len(s.rows)), zap.Error(err))
		}
	}
	s.flushed += len(s.rows)
	s.rows = s.rows[:0]
}

func (s *TelemetrySystem) logSummary() {
	var emitted, culled, dropped, reinserted, capped int
	var worst time.Duration
	for _, r := range s.rows {
		emitted += r.Emitted
		culled += r.Culled
		dropped += r.Dropped
		reinserted += r.Reinserted
		if r.CapExceeded {
			capped++
		}
		worst = max(worst, r.FrameTime)
	}
	last := s.rows[len(s.rows)-1]
	n := len(s.rows)
	s.log.Info("frame telemetry",
		zap.Int("frame", last.Frame),
		zap.Int("frames", n),
		zap.Int("renderables", last.Renderables),
		zap.Int("shadows", last.Shadows),
		zap.Int("avg_emitted", emitted/n),
		zap.Int("avg_culled", culled/n),
		zap.Int("reinserted", reinserted),
		zap.Int("dropped", dropped),
		zap.Int("cap_exceeded_frames", capped),
		zap.Duration("worst_frame", worst),
	)
}

// Pending returns the number of buffered rows.
func (s *TelemetrySystem) Pending() int { return len(s.rows) }

// Flushed returns the number of rows flushed so far.
func (s *TelemetrySystem) Flushed() int { return s.flushed }
