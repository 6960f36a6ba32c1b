// Package pipeline assembles the capture data path, from the bus front end
// to the host link, and runs capture sessions on it.
package pipeline

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/usbsniff/capture/capturering"
	"github.com/sarchlab/usbsniff/capture/ingress"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/arbiter"
	"github.com/sarchlab/usbsniff/mem/bist"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/ring/bulkring"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// ErrRingRunning is returned when the memory self test is requested while
// the bulk ring is using the memory.
var ErrRingRunning = errors.New("bulk ring is running")

type phase int

const (
	phaseStopped phase = iota
	phaseCapture
	phaseClosing
	phaseFlushing
	phaseDone
)

var phaseNames = [...]string{
	"Stopped", "Capture", "Closing", "Flushing", "Done",
}

func (p phase) String() string {
	return phaseNames[p]
}

// A PacketHandler receives every packet the host decodes.
type PacketHandler func(p hostlink.Packet)

// Comp is a capture pipeline. Symbols flow from the source through the
// ingress FIFO into the capture ring, from the capture ring into the bulk
// ring in memory and from there to the host, which decodes them back into
// packets.
type Comp struct {
	Domain  *modeling.Domain
	Clock   *modeling.TickingComponent
	Ingress *ingress.Ingress
	Capture *capturering.Comp
	Writer  *bulkring.Writer
	Reader  *bulkring.Reader
	Arbiter *arbiter.Arbiter
	SDRAM   *sdram.Scheduler
	Tester  *bist.Tester
	Sink    *hostlink.Sink
	Decoder *hostlink.Decoder

	logger logrus.FieldLogger
	source ingress.Source
	freq   timing.Freq

	phase        phase
	quiet        uint64
	maxCycles    uint64
	drainCycles  uint64
	ringGo       bool
	flushPending bool

	handlers     []PacketHandler
	packets      uint64
	decodeErrors uint64
	lastErr      error
}

// Freq returns the capture clock frequency.
func (c *Comp) Freq() timing.Freq {
	return c.freq
}

// OnPacket registers a handler for decoded packets.
func (c *Comp) OnPacket(h PacketHandler) {
	c.handlers = append(c.handlers, h)
}

// SetCaptureEnabled starts or stops capturing. Starting and stopping each
// produce a bookend record.
func (c *Comp) SetCaptureEnabled(on bool) {
	c.Capture.Framer.SetEnabled(on)
}

// SetRingGo starts or stops both ends of the bulk ring. Starting resets both
// pointers to the base of the ring.
func (c *Comp) SetRingGo(on bool) {
	c.ringGo = on
	c.Writer.SetGo(on)
	c.Reader.SetGo(on)
}

// SetFlush pushes the data that does not fill a whole burst through the
// bulk ring. The writer is flushed first. The reader follows once every
// byte the writer holds is in memory, so that the final host burst carries
// all of it.
func (c *Comp) SetFlush(on bool) {
	c.Writer.SetFlush(on)
	c.flushPending = on

	if !on {
		c.Reader.SetFlush(false)
	}
}

// Start begins a capture session.
func (c *Comp) Start() {
	c.SetRingGo(true)
	c.SetCaptureEnabled(true)
	c.phase = phaseCapture
	c.quiet = 0

	c.logger.WithField("freq", float64(c.freq)).Info("capture started")
}

// Done tells if the session has ended.
func (c *Comp) Done() bool {
	return c.phase == phaseDone
}

// Phase returns the name of the session phase.
func (c *Comp) Phase() string {
	return c.phase.String()
}

// Run starts a session and ticks until it ends. With an engine, the engine
// is run.
func (c *Comp) Run() error {
	c.Start()

	if c.Clock == nil {
		for c.Tick() {
		}

		return nil
	}

	c.Clock.TickNow()

	return c.Clock.Engine.Run()
}

// Tick advances the pipeline by one cycle. It returns false once the
// session has ended.
func (c *Comp) Tick() bool {
	if c.flushPending && c.Writer.Idle() {
		c.Reader.SetFlush(true)
		c.flushPending = false
	}

	c.Domain.Tick()
	c.collect()
	c.advance()

	return !c.Done()
}

// RunCycles ticks n times regardless of the session phase.
func (c *Comp) RunCycles(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.Tick()
	}
}

func (c *Comp) collect() {
	bs := c.Sink.Take()
	if len(bs) == 0 {
		return
	}

	pkts, err := c.Decoder.Decode(bs)
	if err != nil {
		c.decodeErrors++
		c.lastErr = err
		c.logger.WithError(err).Warn("host decode error")
	}

	for _, p := range pkts {
		c.packets++

		for _, h := range c.handlers {
			h(p)
		}
	}
}

func (c *Comp) captureQuiet() bool {
	return c.source.Exhausted() &&
		c.Ingress.Idle() &&
		c.Capture.Framer.Idle() &&
		!c.Capture.Reader.Busy()
}

func (c *Comp) advance() {
	if c.phase == phaseStopped || c.phase == phaseDone {
		return
	}

	if c.maxCycles > 0 && c.Domain.Cycle() >= c.maxCycles {
		c.enter(phaseDone)
		return
	}

	switch c.phase {
	case phaseCapture:
		if !c.captureQuiet() {
			c.quiet = 0
			return
		}

		c.quiet++
		if c.quiet >= c.drainCycles {
			c.SetCaptureEnabled(false)
			c.enter(phaseClosing)
		}
	case phaseClosing:
		if c.Capture.Framer.Idle() && !c.Capture.Reader.Busy() {
			c.SetFlush(true)
			c.enter(phaseFlushing)
		}
	case phaseFlushing:
		if !c.flushPending && c.Writer.Idle() && c.Reader.Idle() {
			c.SetFlush(false)
			c.enter(phaseDone)
		}
	}
}

func (c *Comp) enter(p phase) {
	c.logger.WithFields(logrus.Fields{
		"cycle": c.Domain.Cycle(),
		"from":  c.phase.String(),
		"to":    p.String(),
	}).Debug("session phase")

	c.phase = p
}

// SelfTest runs memory self test passes through the arbiter. The bulk ring
// must be stopped, since the test overwrites memory.
func (c *Comp) SelfTest(
	limit uint64,
	patterns ...bist.Pattern,
) ([]bist.Result, error) {
	if c.ringGo || !c.Writer.Idle() || c.Arbiter.Busy() {
		return nil, ErrRingRunning
	}

	return bist.RunPasses(c.Domain, c.Tester, limit, patterns...)
}

// Counters is a snapshot of the statistics of every stage.
type Counters struct {
	Cycles       uint64
	Symbols      uint64
	Overflows    uint64
	Framer       capturering.FramerCounters
	FrameBytes   uint64
	Writer       bulkring.Counters
	Reader       bulkring.Counters
	Occupancy    uint32
	SDRAM        sdram.Counters
	HostBytes    uint64
	Packets      uint64
	DecodeErrors uint64
}

// Counters returns a snapshot of the statistics.
func (c *Comp) Counters() Counters {
	occupancy := c.Writer.Window().Occupancy(
		c.Writer.Pointer(), c.Reader.Pointer())

	return Counters{
		Cycles:       c.Domain.Cycle(),
		Symbols:      c.Ingress.Total(),
		Overflows:    c.Ingress.Overflows(),
		Framer:       c.Capture.Framer.Counters(),
		FrameBytes:   c.Capture.Reader.Bytes(),
		Writer:       c.Writer.Counters(),
		Reader:       c.Reader.Counters(),
		Occupancy:    occupancy,
		SDRAM:        c.SDRAM.Counters(),
		HostBytes:    c.Sink.Total(),
		Packets:      c.packets,
		DecodeErrors: c.decodeErrors,
	}
}

// LastDecodeError returns the most recent host decode error.
func (c *Comp) LastDecodeError() error {
	return c.lastErr
}
