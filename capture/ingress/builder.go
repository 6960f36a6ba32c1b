package ingress

import (
	"log"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

const counterBits = 32

// Builder can build ingresses.
type Builder struct {
	src   Source
	out   *signal.Stream[record.Symbol]
	depth int
	hooks []hooking.Hook
}

// MakeBuilder creates a builder with a 1024-symbol FIFO.
func MakeBuilder() Builder {
	return Builder{depth: 1024}
}

// WithSource sets the front end.
func (b Builder) WithSource(s Source) Builder {
	b.src = s
	return b
}

// WithOutput sets the stream the symbols are offered on.
func (b Builder) WithOutput(out *signal.Stream[record.Symbol]) Builder {
	b.out = out
	return b
}

// WithDepth sets the number of symbols the FIFO holds.
func (b Builder) WithDepth(depth int) Builder {
	b.depth = depth
	return b
}

// WithAdditionalHooks adds the given hook to the ingress.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates an ingress.
func (b Builder) Build(name string) *Ingress {
	if b.src == nil {
		log.Panic("ingress requires a source")
	}

	in := &Ingress{
		ComponentBase: modeling.MakeComponentBase(name),
		src:           b.src,
		out:           b.out,
		fifo:          signal.NewFIFO[record.Symbol](b.depth),
		overflows:     signal.NewSatCounter(counterBits),
		total:         signal.NewSatCounter(counterBits),
	}

	if in.out == nil {
		in.out = &signal.Stream[record.Symbol]{}
	}

	for _, h := range b.hooks {
		in.AcceptHook(h)
	}

	return in
}
