package arbiter

import (
	"log"

	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

const counterBits = 32

// Builder can build arbiters.
type Builder struct {
	downstream Downstream
	hooks      []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithDownstream sets the scheduler that the arbiter shares.
func (b Builder) WithDownstream(d Downstream) Builder {
	b.downstream = d
	return b
}

// WithAdditionalHooks adds the given hook to the arbiter.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates an arbiter and connects it to the downstream scheduler.
func (b Builder) Build(name string) *Arbiter {
	if b.downstream == nil {
		log.Panic("arbiter requires a downstream scheduler")
	}

	a := &Arbiter{
		ComponentBase: modeling.MakeComponentBase(name),
		downstream:    b.downstream,
	}
	a.grant = signal.NewReg(&a.Regs, 0)
	a.busy = signal.NewReg(&a.Regs, false)

	for _, h := range b.hooks {
		a.AcceptHook(h)
	}

	b.downstream.Connect(a)

	return a
}
