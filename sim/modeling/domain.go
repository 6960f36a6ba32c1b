package modeling

import (
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/naming"
)

// HookPosCycleEnd is invoked after every component of a Domain committed.
// The Item of the HookCtx is the number of the cycle that just ended.
var HookPosCycleEnd = &hooking.HookPos{Name: "CycleEnd"}

// Domain is a group of components that share one clock. All the components
// observe the same committed state during a tick, so the result of a tick does
// not depend on the order in which components are evaluated within a phase.
type Domain struct {
	naming.NamedBase
	hooking.HookableBase

	components []Clocked
	cycle      uint64
}

// NewDomain creates a new Domain
func NewDomain(name string) *Domain {
	d := new(Domain)
	d.NamedBase = naming.MakeNamedBase(name)

	return d
}

// Register adds components to the domain. Components are evaluated in the
// order they are registered.
func (d *Domain) Register(comps ...Clocked) {
	for _, c := range comps {
		for _, existing := range d.components {
			if existing.Name() == c.Name() {
				panic("component " + c.Name() + " already registered")
			}
		}

		d.components = append(d.components, c)
	}
}

// Components returns the registered components.
func (d *Domain) Components() []Clocked {
	return d.components
}

// Cycle returns the number of ticks completed.
func (d *Domain) Cycle() uint64 {
	return d.cycle
}

// Tick advances every component by one cycle.
func (d *Domain) Tick() {
	for _, c := range d.components {
		c.Drive()
	}

	for _, c := range d.components {
		c.Respond()
	}

	for _, c := range d.components {
		c.Update()
	}

	for _, c := range d.components {
		c.Commit()
	}

	d.cycle++

	if d.NumHooks() > 0 {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosCycleEnd,
			Item:   d.cycle,
		})
	}
}

// Run ticks n times.
func (d *Domain) Run(n uint64) {
	for i := uint64(0); i < n; i++ {
		d.Tick()
	}
}

// RunUntil ticks until cond holds or limit ticks have passed. It reports
// whether cond was met.
func (d *Domain) RunUntil(cond func() bool, limit uint64) bool {
	for i := uint64(0); i < limit; i++ {
		if cond() {
			return true
		}

		d.Tick()
	}

	return cond()
}
