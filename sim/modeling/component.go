// Package modeling defines lock-step components and the clock domain that
// advances them.
package modeling

import (
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/naming"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// Clocked is a component that advances in lock-step with all the other
// components of its Domain. A tick has three phases. In Drive, a component
// publishes its outputs, computed from committed state only. In Respond, it
// publishes ready and acknowledge signals, computed from committed state and
// the inputs offered to it. In Update, it computes its next state from all the
// wires. Commit then makes the next state visible.
type Clocked interface {
	naming.Named
	hooking.Hookable

	Drive()
	Respond()
	Update()
	Commit()
}

// ComponentBase provides the name, hooks and register bank of a component.
type ComponentBase struct {
	naming.NamedBase
	hooking.HookableBase

	Regs signal.Bank
}

// MakeComponentBase creates a ComponentBase. The name must be valid.
func MakeComponentBase(name string) ComponentBase {
	return ComponentBase{NamedBase: naming.MakeNamedBase(name)}
}

// Drive does nothing by default.
func (c *ComponentBase) Drive() {}

// Respond does nothing by default.
func (c *ComponentBase) Respond() {}

// Commit commits all the registers in the bank.
func (c *ComponentBase) Commit() {
	c.Regs.Commit()
}

// TraceState reports the state the component spends the current cycle in.
func (c *ComponentBase) TraceState(domain hooking.Hookable, state string) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: domain,
		Pos:    hooking.HookPosState,
		Item:   state,
	})
}
