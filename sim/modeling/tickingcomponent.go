package modeling

import (
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/naming"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// TickingComponent connects a Ticker to an engine. It keeps scheduling ticks
// at its frequency for as long as the ticker reports progress.
type TickingComponent struct {
	naming.NamedBase
	hooking.HookableBase
	*timing.TickScheduler

	ticker timing.Ticker
}

// Handle triggers the tick function of the ticker.
func (c *TickingComponent) Handle(_ timing.Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}

// NewTickingComponent creates a new ticking component
func NewTickingComponent(
	name string,
	engine timing.Engine,
	freq timing.Freq,
	ticker timing.Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.NamedBase = naming.MakeNamedBase(name)
	tc.TickScheduler = timing.NewTickScheduler(tc, engine, freq)
	tc.ticker = ticker

	return tc
}
