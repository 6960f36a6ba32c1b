package sdram

import (
	"log"

	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

const counterBits = 32

// Builder can build new schedulers.
type Builder struct {
	params  Params
	storage *Storage
	hooks   []hooking.Hook
}

// MakeBuilder creates a builder for an MT48LC16M16A2 device.
func MakeBuilder() Builder {
	return Builder{params: MT48LC16M16A2}
}

// WithParams sets the device geometry and timing.
func (b Builder) WithParams(p Params) Builder {
	b.params = p
	return b
}

// WithTReset sets the number of cycles the device is held in reset after
// power-up.
func (b Builder) WithTReset(cycles int) Builder {
	b.params.TReset = cycles
	return b
}

// WithStorage makes the scheduler use an existing storage, so that memory
// content survives rebuilding the scheduler.
func (b Builder) WithStorage(s *Storage) Builder {
	b.storage = s
	return b
}

// WithAdditionalHooks adds the given hook to the scheduler.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a scheduler. It panics if the parameters are invalid.
func (b Builder) Build(name string) *Scheduler {
	if err := b.params.Validate(); err != nil {
		log.Panic(err)
	}

	s := &Scheduler{
		ComponentBase: modeling.MakeComponentBase(name),
		params:        b.params,
		storage:       b.storage,
		returns:       make([]readSlot, b.params.TCL+1),

		acks:          signal.NewSatCounter(counterBits),
		activates:     signal.NewSatCounter(counterBits),
		written:       signal.NewSatCounter(counterBits),
		read:          signal.NewSatCounter(counterBits),
		refreshes:     signal.NewSatCounter(counterBits),
		lateRefreshes: signal.NewSatCounter(counterBits),
		reissues:      signal.NewSatCounter(counterBits),
	}

	if s.storage == nil {
		s.storage = NewStorage(b.params)
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s
}
