package system

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Runner executes systems in phase order each frame. Systems sharing a phase
// run in registration order. Each Tick times every phase; a frame that runs
// longer than the budget is logged with its slowest phase.
type Runner struct {
	systems []System
	sorted  bool

	budget time.Duration // 0 disables the warning
	frame  int
	times  [PhaseCount]time.Duration
	log    *zap.Logger
}

func NewRunner(budget time.Duration, log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, PhaseCount+1),
		budget:  budget,
		log:     log,
	}
}

// Register adds s. Panics if s reports a phase outside the frame.
func (r *Runner) Register(s System) {
	if p := s.Phase(); p < 0 || p >= PhaseCount {
		panic(fmt.Sprintf("system: %T has phase %d outside the frame", s, p))
	}
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Len() int { return len(r.systems) }

// Tick runs one frame.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	r.frame++
	r.times = [PhaseCount]time.Duration{}

	start := time.Now()
	for _, s := range r.systems {
		t0 := time.Now()
		s.Update(dt)
		r.times[s.Phase()] += time.Since(t0)
	}
	if total := time.Since(start); r.budget > 0 && total > r.budget {
		slow := r.slowestPhase()
		r.log.Warn("frame over budget",
			zap.Int("frame", r.frame),
			zap.Duration("took", total),
			zap.Duration("budget", r.budget),
			zap.Stringer("slowest_phase", slow),
			zap.Duration("slowest", r.times[slow]),
		)
	}
}

// TickPhase runs only the systems of one phase. Used by tests to drive a
// single stage; it does not advance the frame count.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// PhaseTime returns how long phase took in the last Tick.
func (r *Runner) PhaseTime(p Phase) time.Duration {
	if p < 0 || p >= PhaseCount {
		return 0
	}
	return r.times[p]
}

func (r *Runner) Frame() int { return r.frame }

func (r *Runner) slowestPhase() Phase {
	slow := PhaseInput
	for p := PhaseInput; p < PhaseCount; p++ {
		if r.times[p] > r.times[slow] {
			slow = p
		}
	}
	return slow
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
