package system

import "time"

// Phase orders systems within one simulated frame.
type Phase int

const (
	PhaseInput    Phase = iota // 0: deliver last frame's events
	PhaseUpdate                // 1: move objects, run prop scripts
	PhaseReinsert              // 2: drain the dirty renderable queue
	PhaseShadow                // 3: reproject shadows and flashlights
	PhaseRender                // 4: build per-view render lists
	PhasePersist               // 5: telemetry flush
	PhaseCleanup               // 6: destroy queued objects

	PhaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhaseReinsert:
		return "reinsert"
	case PhaseShadow:
		return "shadow"
	case PhaseRender:
		return "render"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is one unit of per-frame work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
