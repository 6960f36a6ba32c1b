package capturering

import (
	"fmt"
	"log"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/naming"
	"github.com/sarchlab/usbsniff/sim/signal"
)

const counterBits = 32

// Comp is a capture ring: a framer and a frame reader sharing a memory.
type Comp struct {
	Framer *Framer
	Reader *FrameReader
	Memory *Memory
}

// Components returns the clocked parts of the ring in evaluation order.
func (c *Comp) Components() []modeling.Clocked {
	return []modeling.Clocked{c.Framer, c.Reader}
}

// Builder can build capture rings.
type Builder struct {
	depth      int
	maxPayload int
	filters    []Filter
	out        *signal.Stream[hostlink.Byte]
	hooks      []hooking.Hook
}

// MakeBuilder creates a builder for a 2048-byte ring that stores up to 800
// payload bytes per record.
func MakeBuilder() Builder {
	return Builder{
		depth:      2048,
		maxPayload: record.DefaultMaxPayload,
	}
}

// WithDepth sets the number of bytes in the ring. It must be a power of two.
func (b Builder) WithDepth(depth int) Builder {
	b.depth = depth
	return b
}

// WithMaxPayload sets the number of payload bytes stored per record.
func (b Builder) WithMaxPayload(n int) Builder {
	b.maxPayload = n
	return b
}

// WithFilters adds look-aside filters.
func (b Builder) WithFilters(fs ...Filter) Builder {
	b.filters = append(b.filters, fs...)
	return b
}

// WithOutput sets the stream the frame reader produces on.
func (b Builder) WithOutput(out *signal.Stream[hostlink.Byte]) Builder {
	b.out = out
	return b
}

// WithAdditionalHooks adds the given hook to the framer.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Validate checks that a record of the maximum size fits in the ring.
func (b Builder) Validate() error {
	if b.depth < 2*record.HeaderSize || b.depth&(b.depth-1) != 0 {
		return fmt.Errorf("capture ring depth %d is not a power of two",
			b.depth)
	}

	if b.maxPayload <= 0 || b.maxPayload > 1<<sizeBits-1 {
		return fmt.Errorf("invalid max payload %d", b.maxPayload)
	}

	if b.maxPayload+2*record.HeaderSize+2 > b.depth {
		return fmt.Errorf("max payload %d does not fit a %d-byte ring",
			b.maxPayload, b.depth)
	}

	return nil
}

// Build creates a capture ring. The parts are named after the ring.
func (b Builder) Build(name string) *Comp {
	if err := b.Validate(); err != nil {
		log.Panic(err)
	}

	mem := newMemory(b.depth)

	f := &Framer{
		ComponentBase: modeling.MakeComponentBase(
			naming.BuildName(name, "Framer")),
		mem:        mem,
		maxPayload: uint16(b.maxPayload),
		filters:    filterSet(b.filters),
		size:       signal.NewSatCounter(sizeBits),
		records:    signal.NewSatCounter(counterBits),
		bookends:   signal.NewSatCounter(counterBits),
		rejected:   signal.NewSatCounter(counterBits),
		truncated:  signal.NewSatCounter(counterBits),
		dropped:    signal.NewSatCounter(counterBits),
		stalls:     signal.NewSatCounter(counterBits),
	}
	f.enEdge = signal.NewEdge(&f.Regs)

	r := &FrameReader{
		ComponentBase: modeling.MakeComponentBase(
			naming.BuildName(name, "Reader")),
		mem:   mem,
		in:    f.Descriptors(),
		out:   b.out,
		bytes: signal.NewSatCounter(counterBits),
	}
	r.pos = signal.NewReg(&r.Regs, uint32(0))

	if r.out == nil {
		r.out = &signal.Stream[hostlink.Byte]{}
	}

	f.SetWatermark(r)

	for _, h := range b.hooks {
		f.AcceptHook(h)
	}

	return &Comp{Framer: f, Reader: r, Memory: mem}
}
