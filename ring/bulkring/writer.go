package bulkring

import (
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// HookPosWrap marks a pointer wrapping from the end of the window to its
// base. The Item is the new wrap count.
var HookPosWrap = &hooking.HookPos{Name: "Ring Wrap"}

// Peer exposes the committed pointer of the other end of the ring.
type Peer interface {
	Pointer() uint32
}

type burstState int

const (
	burstIdle burstState = iota
	burstData
	burstWait
)

var burstStateNames = [...]string{"Idle", "Data", "Wait"}

func (s burstState) String() string {
	return burstStateNames[s]
}

// Counters are the diagnostic counters of one end of the ring.
type Counters struct {
	Requests uint64
	Acks     uint64
	Strobes  uint64
	Terms    uint64
	Words    uint64
	Bursts   uint64
	Wraps    uint64

	// HostBursts is the number of bursts sent to the host. Only readers
	// send bursts.
	HostBursts uint64
}

type counters struct {
	requests, acks, strobes, terms, words, bursts, wraps *signal.SatCounter
	hostBursts                                           *signal.SatCounter
}

func newCounters() counters {
	return counters{
		requests: signal.NewSatCounter(counterBits),
		acks:     signal.NewSatCounter(counterBits),
		strobes:  signal.NewSatCounter(counterBits),
		terms:    signal.NewSatCounter(counterBits),
		words:    signal.NewSatCounter(counterBits),
		bursts:   signal.NewSatCounter(counterBits),
		wraps:    signal.NewSatCounter(counterBits),

		hostBursts: signal.NewSatCounter(counterBits),
	}
}

func (c counters) count(req sdram.Request, rsp sdram.Response) {
	c.requests.IncIf(req.Strobe)
	c.acks.IncIf(rsp.Ack)
	c.strobes.IncIf(rsp.Strobe)
	c.terms.IncIf(req.Terminate)
}

func (c counters) snapshot() Counters {
	return Counters{
		Requests: c.requests.Value(),
		Acks:     c.acks.Value(),
		Strobes:  c.strobes.Value(),
		Terms:    c.terms.Value(),
		Words:    c.words.Value(),
		Bursts:   c.bursts.Value(),
		Wraps:    c.wraps.Value(),

		HostBursts: c.hostBursts.Value(),
	}
}

// Writer drains a byte stream into the ring. It packs pairs of bytes into
// words, low byte first, and writes the words in bursts at its pointer. It
// never advances its pointer onto the reader's pointer, so one word of the
// window always stays unused.
type Writer struct {
	modeling.ComponentBase

	window   Window
	maxBurst int
	padByte  uint8

	in   signal.Stream[hostlink.Byte]
	link sdram.Link
	peer Peer

	goLevel  bool
	flush    bool
	goEdge   *signal.Edge
	wptr     *signal.Reg[uint32]
	fifo     *signal.FIFO[uint16]
	lo       uint8
	hasLo    bool
	state    burstState
	term     bool
	req      sdram.Request
	burstLen int
	wrapped  bool
	counters counters
}

// Input returns the byte stream the writer consumes.
func (w *Writer) Input() *signal.Stream[hostlink.Byte] {
	return &w.in
}

// Connect sets the reader whose pointer limits the writer.
func (w *Writer) Connect(p Peer) {
	w.peer = p
}

// SetGo enables or disables the writer. A rising edge restarts the ring at
// its base.
func (w *Writer) SetGo(on bool) {
	w.goLevel = on
}

// SetFlush makes the writer pad a trailing odd byte once its input is idle,
// so that every byte received reaches memory.
func (w *Writer) SetFlush(on bool) {
	w.flush = on
}

// Pointer returns the committed write pointer.
func (w *Writer) Pointer() uint32 {
	return w.wptr.Get()
}

// Window returns the window of the ring.
func (w *Writer) Window() Window {
	return w.window
}

// Counters returns a snapshot of the diagnostic counters.
func (w *Writer) Counters() Counters {
	return w.counters.snapshot()
}

// Pending returns the number of bytes accepted but not yet in memory.
func (w *Writer) Pending() int {
	n := 2 * w.fifo.Len()
	if w.hasLo {
		n++
	}

	return n
}

// Idle tells if every accepted byte is in memory.
func (w *Writer) Idle() bool {
	return w.state == burstIdle && w.Pending() == 0
}

func (w *Writer) blocked(p uint32) bool {
	return w.peer != nil && w.window.Advance(p) == w.peer.Pointer()
}

// running tells if go has been set for more than one cycle. The cycle go
// rises in is spent restarting the pointer.
func (w *Writer) running() bool {
	return w.goLevel && w.goEdge.Level()
}

func (w *Writer) canWrite() bool {
	return w.running() && !w.fifo.Empty() && !w.blocked(w.wptr.Get())
}

// Drive presents the memory request of the current cycle.
func (w *Writer) Drive() {
	w.req = sdram.Request{Write: true}

	switch w.state {
	case burstIdle:
		w.term = false
		w.req.Strobe = w.canWrite()
		w.req.Addr = w.wptr.Get()
	case burstData:
		w.term = !w.canWrite() || w.burstLen >= w.maxBurst || w.wrapped
		w.req.Terminate = w.term

		if !w.term {
			w.req.Data = w.fifo.Peek()
		}
	case burstWait:
		w.term = true
		w.req.Terminate = true
	}

	w.link.Drive(w.req)
}

// Respond accepts a byte when there is room for the word it completes.
func (w *Writer) Respond() {
	w.in.Ready = !w.fifo.Full()
}

// Update moves words into memory and bytes into the word FIFO.
func (w *Writer) Update() {
	rsp := w.link.Response()
	rose, _ := w.goEdge.Sample(w.goLevel)

	w.TraceState(w, w.state.String())
	w.counters.count(w.req, rsp)

	w.updateBurst(rsp)
	w.pack()

	if rose {
		w.wptr.Set(w.window.Base)
	}
}

func (w *Writer) updateBurst(rsp sdram.Response) {
	switch w.state {
	case burstIdle:
		if rsp.Ack {
			w.state = burstData
			w.burstLen = 0
			w.wrapped = false
			w.counters.bursts.Inc()
		}
	case burstData:
		switch {
		case rsp.Strobe && w.term:
			w.state = burstIdle
		case rsp.Strobe:
			w.fifo.Pop()
			w.advance()
		case w.term:
			w.state = burstWait
		}
	case burstWait:
		if rsp.Strobe {
			w.state = burstIdle
		}
	}
}

func (w *Writer) advance() {
	next := w.window.Advance(w.wptr.Get())

	w.wptr.Set(next)
	w.burstLen++
	w.counters.words.Inc()

	if next != w.window.Base {
		return
	}

	w.wrapped = true
	w.counters.wraps.Inc()

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosWrap,
			Item:   w.counters.wraps.Value(),
		})
	}
}

func (w *Writer) pack() {
	if w.in.Fire() {
		b := w.in.Data.Data
		if !w.hasLo {
			w.lo = b
			w.hasLo = true

			return
		}

		w.fifo.Push(uint16(w.lo) | uint16(b)<<8)
		w.hasLo = false

		return
	}

	if w.flush && w.hasLo && !w.in.Valid && !w.fifo.Full() {
		w.fifo.Push(uint16(w.lo) | uint16(w.padByte)<<8)
		w.hasLo = false
	}
}
