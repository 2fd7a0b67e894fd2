package system

import (
	"time"

	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// InputSystem starts a frame: it advances the frame clock and delivers the
// events emitted during the previous frame. Phase 0 (Input).
type InputSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewInputSystem(ws *world.State, log *zap.Logger) *InputSystem {
	return &InputSystem{world: ws, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	s.world.Frame++
	s.world.Time += dt.Seconds()

	s.world.Bus.SwapBuffers()
	if n := s.world.Bus.DispatchAll(); n > 0 {
		s.log.Debug("events dispatched", zap.Int("frame", s.world.Frame), zap.Int("count", n))
	}
}
