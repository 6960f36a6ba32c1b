package pipeline

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/usbsniff/capture/capturering"
	"github.com/sarchlab/usbsniff/capture/ingress"
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/arbiter"
	"github.com/sarchlab/usbsniff/mem/bist"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/ring/bulkring"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/naming"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// Builder can build capture pipelines.
type Builder struct {
	engine timing.Engine
	freq   timing.Freq
	logger logrus.FieldLogger

	source       ingress.Source
	ingressDepth int

	captureDepth int
	maxPayload   int
	filters      []capturering.Filter

	sdramParams sdram.Params
	window      bulkring.Window
	maxBurst    int
	writerFIFO  int
	readerBurst int
	padByte     uint8

	sinkBurst, sinkStall int

	testBase, testSize uint32

	maxCycles   uint64
	drainCycles uint64

	hooks []hooking.Hook
}

// MakeBuilder creates a builder for the default board: a 60 MHz capture
// clock, a 2048-byte capture ring and the whole of an MT48LC16M16A2 as the
// bulk ring, drained in 32-word bursts.
func MakeBuilder() Builder {
	return Builder{
		freq:         60 * timing.MHz,
		logger:       logrus.StandardLogger(),
		ingressDepth: 1024,
		captureDepth: 2048,
		maxPayload:   record.DefaultMaxPayload,
		sdramParams:  sdram.MT48LC16M16A2,
		window:       bulkring.DefaultWindow,
		maxBurst:     256,
		writerFIFO:   32,
		readerBurst:  32,
		padByte:      record.PadByte,
		drainCycles:  1000,
		testSize:     3000,
	}
}

// WithEngine makes the pipeline tick on the engine.
func (b Builder) WithEngine(e timing.Engine) Builder {
	b.engine = e
	return b
}

// WithFreq sets the capture clock frequency.
func (b Builder) WithFreq(f timing.Freq) Builder {
	b.freq = f
	return b
}

// WithLogger sets the logger of the pipeline.
func (b Builder) WithLogger(l logrus.FieldLogger) Builder {
	b.logger = l
	return b
}

// WithSource sets the bus front end.
func (b Builder) WithSource(s ingress.Source) Builder {
	b.source = s
	return b
}

// WithIngressDepth sets the number of symbols the receive FIFO holds.
func (b Builder) WithIngressDepth(n int) Builder {
	b.ingressDepth = n
	return b
}

// WithCaptureDepth sets the size of the capture ring in bytes.
func (b Builder) WithCaptureDepth(n int) Builder {
	b.captureDepth = n
	return b
}

// WithMaxPayload sets the number of payload bytes stored per record.
func (b Builder) WithMaxPayload(n int) Builder {
	b.maxPayload = n
	return b
}

// WithFilters adds capture filters.
func (b Builder) WithFilters(fs ...capturering.Filter) Builder {
	b.filters = append(b.filters, fs...)
	return b
}

// WithSDRAMParams sets the memory device.
func (b Builder) WithSDRAMParams(p sdram.Params) Builder {
	b.sdramParams = p
	return b
}

// WithWindow sets the part of the memory used as the bulk ring.
func (b Builder) WithWindow(w bulkring.Window) Builder {
	b.window = w
	return b
}

// WithMaxBurst sets the longest write burst in words.
func (b Builder) WithMaxBurst(words int) Builder {
	b.maxBurst = words
	return b
}

// WithWriterFIFO sets the number of words the ring writer buffers.
func (b Builder) WithWriterFIFO(words int) Builder {
	b.writerFIFO = words
	return b
}

// WithReaderBurst sets the number of words in a host burst.
func (b Builder) WithReaderBurst(words int) Builder {
	b.readerBurst = words
	return b
}

// WithPadByte sets the byte that completes an odd byte on flush.
func (b Builder) WithPadByte(pad uint8) Builder {
	b.padByte = pad
	return b
}

// WithSinkPacing makes the host accept burst bytes and then stall for
// stall cycles.
func (b Builder) WithSinkPacing(burst, stall int) Builder {
	b.sinkBurst = burst
	b.sinkStall = stall

	return b
}

// WithSelfTestWindow sets the words the memory self test overwrites.
func (b Builder) WithSelfTestWindow(base, size uint32) Builder {
	b.testBase = base
	b.testSize = size

	return b
}

// WithMaxCycles stops the pipeline after n cycles. Zero means no limit.
func (b Builder) WithMaxCycles(n uint64) Builder {
	b.maxCycles = n
	return b
}

// WithDrainCycles sets how long the capture tier must be quiet after the
// source is exhausted before the session is closed.
func (b Builder) WithDrainCycles(n uint64) Builder {
	b.drainCycles = n
	return b
}

// WithAdditionalHooks adds the hook to every component.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a pipeline.
func (b Builder) Build(name string) *Comp {
	if b.source == nil {
		log.Panic("pipeline requires a source")
	}

	if err := b.sdramParams.Validate(); err != nil {
		log.Panic(err)
	}

	if uint64(b.window.End) > b.sdramParams.Capacity() {
		log.Panicf("ring window ends at word %#x beyond the device",
			b.window.End)
	}

	c := &Comp{
		logger:      b.logger,
		source:      b.source,
		freq:        b.freq,
		maxCycles:   b.maxCycles,
		drainCycles: b.drainCycles,
		Decoder:     hostlink.NewDecoder(b.readerBurst),
	}

	b.buildMemory(name, c)
	b.buildCapture(name, c)

	c.Sink = hostlink.NewSink(naming.BuildName(name, "Host"), c.Reader.Output())
	c.Sink.SetPacing(b.sinkBurst, b.sinkStall)

	c.Domain = modeling.NewDomain(name)
	c.Domain.Register(
		c.Ingress,
		c.Capture.Framer,
		c.Capture.Reader,
		c.Writer,
		c.Reader,
		c.Sink,
		c.Tester,
		c.Arbiter,
		c.SDRAM,
	)

	for _, h := range b.hooks {
		c.Domain.AcceptHook(h)

		for _, comp := range c.Domain.Components() {
			comp.AcceptHook(h)
		}
	}

	if b.engine != nil {
		c.Clock = modeling.NewTickingComponent(
			naming.BuildName(name, "Clock"), b.engine, b.freq, c)
	}

	return c
}

func (b Builder) buildMemory(name string, c *Comp) {
	c.SDRAM = sdram.MakeBuilder().
		WithParams(b.sdramParams).
		Build(naming.BuildName(name, "SDRAM"))

	arbName := naming.BuildName(name, "Arbiter")
	c.Arbiter = arbiter.MakeBuilder().
		WithDownstream(c.SDRAM).
		Build(arbName)

	c.Writer = bulkring.MakeWriterBuilder().
		WithWindow(b.window).
		WithMaxBurst(b.maxBurst).
		WithFIFODepth(b.writerFIFO).
		WithPadByte(b.padByte).
		WithLink(c.Arbiter.NewPort(naming.BuildName(arbName, "Writer"))).
		Build(naming.BuildName(name, "Writer"))

	c.Reader = bulkring.MakeReaderBuilder().
		WithWindow(b.window).
		WithBurstWords(b.readerBurst).
		WithLink(c.Arbiter.NewPort(naming.BuildName(arbName, "Reader"))).
		Build(naming.BuildName(name, "Reader"))

	bulkring.Connect(c.Writer, c.Reader)

	c.Tester = bist.MakeBuilder().
		WithWindow(b.testBase, b.testSize).
		WithLink(c.Arbiter.NewPort(naming.BuildName(arbName, "Tester"))).
		Build(naming.BuildName(name, "Tester"))
}

func (b Builder) buildCapture(name string, c *Comp) {
	c.Capture = capturering.MakeBuilder().
		WithDepth(b.captureDepth).
		WithMaxPayload(b.maxPayload).
		WithFilters(b.filters...).
		WithOutput(c.Writer.Input()).
		Build(naming.BuildName(name, "Capture"))

	c.Ingress = ingress.MakeBuilder().
		WithSource(b.source).
		WithOutput(c.Capture.Framer.Input()).
		WithDepth(b.ingressDepth).
		Build(naming.BuildName(name, "Ingress"))
}
