package hooking

import (
	"sort"
	"sync"
)

// HookPosState is invoked once per cycle by state machines. The Item of the
// HookCtx is the name of the state the machine spent the cycle in.
var HookPosState = &HookPos{Name: "State"}

type named interface {
	Name() string
}

// StateCycleTracer counts the cycles each component spends in each of its
// states.
type StateCycleTracer struct {
	lock   sync.Mutex
	counts map[string]map[string]uint64
}

// NewStateCycleTracer creates a new StateCycleTracer.
func NewStateCycleTracer() *StateCycleTracer {
	return &StateCycleTracer{
		counts: make(map[string]map[string]uint64),
	}
}

// Func counts one cycle.
func (t *StateCycleTracer) Func(ctx HookCtx) {
	if ctx.Pos != HookPosState {
		return
	}

	state, ok := ctx.Item.(string)
	if !ok {
		return
	}

	component := "Unknown"
	if n, ok := ctx.Domain.(named); ok {
		component = n.Name()
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	perState, found := t.counts[component]
	if !found {
		perState = make(map[string]uint64)
		t.counts[component] = perState
	}

	perState[state]++
}

// Count returns the number of cycles the component spent in the state.
func (t *StateCycleTracer) Count(component, state string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[component][state]
}

// Components returns the names of all the components observed, sorted.
func (t *StateCycleTracer) Components() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, 0, len(t.counts))
	for name := range t.counts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Snapshot returns a copy of the per-state counts of a component.
func (t *StateCycleTracer) Snapshot(component string) map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	out := make(map[string]uint64, len(t.counts[component]))
	for state, n := range t.counts[component] {
		out[state] = n
	}

	return out
}
