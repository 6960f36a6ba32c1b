package capturering

import (
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// FrameReader streams the bytes of published records, header first, and
// marks the final byte of each record with Last.
type FrameReader struct {
	modeling.ComponentBase

	mem *Memory
	in  *signal.Stream[record.Descriptor]
	out *signal.Stream[hostlink.Byte]

	pos       *signal.Reg[uint32]
	busy      bool
	remaining uint32

	bytes *signal.SatCounter
}

// Position returns the address of the first byte not yet streamed. The
// framer uses it as its watermark.
func (r *FrameReader) Position() uint32 {
	return r.pos.Get()
}

// Output returns the byte stream the reader produces.
func (r *FrameReader) Output() *signal.Stream[hostlink.Byte] {
	return r.out
}

// Busy tells if a record is being streamed.
func (r *FrameReader) Busy() bool {
	return r.busy
}

// Bytes returns the number of bytes streamed.
func (r *FrameReader) Bytes() uint64 {
	return r.bytes.Value()
}

// Drive offers the next byte of the current record.
func (r *FrameReader) Drive() {
	if !r.busy {
		r.out.Idle()
		return
	}

	r.out.Offer(hostlink.Byte{
		Data: r.mem.Read(r.pos.Get()),
		Last: r.remaining == 1,
	})
}

// Respond takes a new descriptor when no record is being streamed.
func (r *FrameReader) Respond() {
	r.in.Ready = !r.busy
}

// Update advances through the current record or starts the next one.
func (r *FrameReader) Update() {
	if r.busy {
		r.TraceState(r, "Stream")
	} else {
		r.TraceState(r, "Idle")
	}

	if r.out.Fire() {
		r.pos.Set(r.mem.wrap(r.pos.Get() + 1))
		r.remaining--
		r.bytes.Inc()

		if r.remaining == 0 {
			r.busy = false
		}
	}

	if r.in.Fire() {
		d := r.in.Data
		r.pos.Set(r.mem.wrap(d.Start))
		r.remaining = d.Count
		r.busy = d.Count > 0
	}
}
