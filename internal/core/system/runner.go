package system

import "sort"

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order (stable sort), which callers rely on for
// deterministic sub-ordering such as movement before attack collection.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(tick uint64) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(tick)
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
