// Package ingress receives symbols from the bus front end. The front end
// cannot be stalled, so symbols that find the receive FIFO full are dropped
// and an overflow marker takes their place.
package ingress

import (
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// HookPosOverflow marks a dropped symbol. The Item is the symbol.
var HookPosOverflow = &hooking.HookPos{Name: "Ingress Overflow"}

// Source is the bus front end. It delivers at most one symbol per cycle.
type Source interface {
	// Next returns the symbol of the current cycle, if there is one.
	Next() (record.Symbol, bool)

	// Exhausted tells if the source will not deliver any more symbols.
	Exhausted() bool
}

// Ingress buffers the symbols of a Source in a FIFO and offers them to the
// capture ring.
type Ingress struct {
	modeling.ComponentBase

	src  Source
	out  *signal.Stream[record.Symbol]
	fifo *signal.FIFO[record.Symbol]

	pendingOvf bool

	overflows *signal.SatCounter
	total     *signal.SatCounter
}

// Connect sets the stream the symbols are offered on.
func (in *Ingress) Connect(out *signal.Stream[record.Symbol]) {
	in.out = out
}

// Overflows returns the number of symbols dropped.
func (in *Ingress) Overflows() uint64 {
	return in.overflows.Value()
}

// Total returns the number of symbols received.
func (in *Ingress) Total() uint64 {
	return in.total.Value()
}

// Buffered returns the number of symbols waiting in the FIFO.
func (in *Ingress) Buffered() int {
	return in.fifo.Len()
}

// Idle tells if the source is exhausted and every symbol has been passed on.
func (in *Ingress) Idle() bool {
	return in.src.Exhausted() && in.fifo.Empty() && !in.pendingOvf
}

// Drive offers the oldest buffered symbol.
func (in *Ingress) Drive() {
	if in.fifo.Empty() {
		in.out.Idle()
		return
	}

	in.out.Offer(in.fifo.Peek())
}

// Update passes on the symbol accepted downstream and receives the symbol of
// this cycle.
func (in *Ingress) Update() {
	if in.out.Fire() {
		in.fifo.Pop()
	}

	if in.pendingOvf && !in.fifo.Full() {
		in.fifo.Push(record.Marker(record.KindOvf))
		in.pendingOvf = false
	}

	sym, ok := in.src.Next()
	if !ok {
		return
	}

	in.total.Inc()

	if !in.fifo.Full() {
		in.fifo.Push(sym)
		return
	}

	in.overflows.Inc()
	in.pendingOvf = true

	if in.NumHooks() > 0 {
		in.InvokeHook(hooking.HookCtx{
			Domain: in,
			Pos:    HookPosOverflow,
			Item:   sym,
		})
	}
}
