package bulkring

import (
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

type outState int

const (
	outIdle outState = iota
	outLow
	outHigh
)

// Reader fetches words from the ring in bursts and sends them to the host.
// Every host burst is the sentinel byte followed by the low and the high
// byte of each word, with Last set on the final byte. A host burst is sent
// once the word FIFO is full, so it always carries a full FIFO of words,
// unless the reader is flushing.
type Reader struct {
	modeling.ComponentBase

	window Window

	out  signal.Stream[hostlink.Byte]
	link sdram.Link
	peer Peer

	goLevel  bool
	flush    bool
	goEdge   *signal.Edge
	rptr     *signal.Reg[uint32]
	fifo     *signal.FIFO[uint16]
	state    burstState
	term     bool
	req      sdram.Request
	wrapped  bool
	counters counters

	outState  outState
	offerLen  int
	remaining int
}

// Output returns the byte stream the reader produces.
func (r *Reader) Output() *signal.Stream[hostlink.Byte] {
	return &r.out
}

// Connect sets the writer whose pointer limits the reader.
func (r *Reader) Connect(p Peer) {
	r.peer = p
}

// SetGo enables or disables the reader. A rising edge restarts reading at
// the base of the ring.
func (r *Reader) SetGo(on bool) {
	r.goLevel = on
}

// SetFlush lets the reader send a short burst when it has caught up with
// the writer.
func (r *Reader) SetFlush(on bool) {
	r.flush = on
}

// Pointer returns the committed read pointer.
func (r *Reader) Pointer() uint32 {
	return r.rptr.Get()
}

// BurstWords returns the number of words in a full host burst.
func (r *Reader) BurstWords() int {
	return r.fifo.Capacity()
}

// Buffered returns the number of words fetched but not yet sent.
func (r *Reader) Buffered() int {
	return r.fifo.Len()
}

// Idle tells if the reader has caught up with the writer and sent every
// word it fetched.
func (r *Reader) Idle() bool {
	return r.state == burstIdle && r.outState == outIdle &&
		r.fifo.Empty() && r.caughtUp()
}

// Counters returns a snapshot of the diagnostic counters.
func (r *Reader) Counters() Counters {
	return r.counters.snapshot()
}

func (r *Reader) running() bool {
	return r.goLevel && r.goEdge.Level()
}

func (r *Reader) caughtUp() bool {
	return r.peer == nil || r.rptr.Get() == r.peer.Pointer()
}

func (r *Reader) canRead() bool {
	return r.running() && !r.fifo.Full() && !r.caughtUp()
}

// Drive presents the memory request and the output byte.
func (r *Reader) Drive() {
	r.driveMemory()
	r.driveOutput()
}

func (r *Reader) driveMemory() {
	r.req = sdram.Request{}

	switch r.state {
	case burstIdle:
		r.term = false
		r.req.Strobe = r.canRead()
		r.req.Addr = r.rptr.Get()
	case burstData:
		r.term = !r.canRead() || r.wrapped
		r.req.Terminate = r.term
	case burstWait:
		r.term = true
		r.req.Terminate = true
	}

	r.link.Drive(r.req)
}

func (r *Reader) driveOutput() {
	r.out.Idle()

	switch r.outState {
	case outIdle:
		r.offerLen = 0

		switch {
		case r.fifo.Full():
			r.offerLen = r.fifo.Len()
		case r.flush && r.state == burstIdle && r.caughtUp():
			r.offerLen = r.fifo.Len()
		}

		if r.offerLen > 0 {
			r.out.Offer(hostlink.Byte{Data: hostlink.Sentinel})
		}
	case outLow:
		r.out.Offer(hostlink.Byte{Data: uint8(r.fifo.Peek())})
	case outHigh:
		r.out.Offer(hostlink.Byte{
			Data: uint8(r.fifo.Peek() >> 8),
			Last: r.remaining == 1,
		})
	}
}

// Update moves words from memory into the FIFO and from the FIFO to the
// output.
func (r *Reader) Update() {
	rsp := r.link.Response()
	rose, _ := r.goEdge.Sample(r.goLevel)

	r.TraceState(r, r.state.String())
	r.counters.count(r.req, rsp)

	r.updateOutput()
	r.updateBurst(rsp)

	if rose {
		r.rptr.Set(r.window.Base)
	}
}

func (r *Reader) updateBurst(rsp sdram.Response) {
	switch r.state {
	case burstIdle:
		if rsp.Ack {
			r.state = burstData
			r.wrapped = false
			r.counters.bursts.Inc()
		}
	case burstData:
		switch {
		case rsp.Strobe && r.term:
			r.state = burstIdle
		case rsp.Strobe:
			r.fifo.Push(rsp.Data)
			r.advance()
		case r.term:
			r.state = burstWait
		}
	case burstWait:
		if rsp.Strobe {
			r.state = burstIdle
		}
	}
}

func (r *Reader) advance() {
	next := r.window.Advance(r.rptr.Get())

	r.rptr.Set(next)
	r.counters.words.Inc()

	if next != r.window.Base {
		return
	}

	r.wrapped = true
	r.counters.wraps.Inc()

	if r.NumHooks() > 0 {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosWrap,
			Item:   r.counters.wraps.Value(),
		})
	}
}

func (r *Reader) updateOutput() {
	if !r.out.Fire() {
		return
	}

	switch r.outState {
	case outIdle:
		r.remaining = r.offerLen
		r.outState = outLow
		r.counters.hostBursts.Inc()
	case outLow:
		r.outState = outHigh
	case outHigh:
		r.fifo.Pop()
		r.remaining--
		r.outState = outLow

		if r.remaining == 0 {
			r.outState = outIdle
		}
	}
}
