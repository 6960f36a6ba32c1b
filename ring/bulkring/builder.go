package bulkring

import (
	"log"

	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

const counterBits = 32

// DefaultWindow covers the whole of an MT48LC16M16A2.
var DefaultWindow = MustNewWindow(0, 2*sdram.MT48LC16M16A2.Capacity())

// WriterBuilder can build writers.
type WriterBuilder struct {
	window    Window
	maxBurst  int
	fifoDepth int
	padByte   uint8
	link      sdram.Link
	hooks     []hooking.Hook
}

// MakeWriterBuilder creates a builder with bursts of up to 256 words and a
// 32-word FIFO.
func MakeWriterBuilder() WriterBuilder {
	return WriterBuilder{
		window:    DefaultWindow,
		maxBurst:  256,
		fifoDepth: 32,
	}
}

// WithWindow sets the window of the ring.
func (b WriterBuilder) WithWindow(w Window) WriterBuilder {
	b.window = w
	return b
}

// WithMaxBurst sets the maximum number of words written in one burst.
func (b WriterBuilder) WithMaxBurst(words int) WriterBuilder {
	b.maxBurst = words
	return b
}

// WithFIFODepth sets the number of words the writer can buffer.
func (b WriterBuilder) WithFIFODepth(words int) WriterBuilder {
	b.fifoDepth = words
	return b
}

// WithPadByte sets the byte that completes a trailing odd byte on flush.
func (b WriterBuilder) WithPadByte(pad uint8) WriterBuilder {
	b.padByte = pad
	return b
}

// WithLink sets the memory link of the writer.
func (b WriterBuilder) WithLink(l sdram.Link) WriterBuilder {
	b.link = l
	return b
}

// WithAdditionalHooks adds the given hook to the writer.
func (b WriterBuilder) WithAdditionalHooks(h hooking.Hook) WriterBuilder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a writer.
func (b WriterBuilder) Build(name string) *Writer {
	if b.link == nil {
		log.Panic("ring writer requires a memory link")
	}

	if b.maxBurst <= 0 {
		log.Panicf("invalid max burst %d", b.maxBurst)
	}

	w := &Writer{
		ComponentBase: modeling.MakeComponentBase(name),
		window:        b.window,
		maxBurst:      b.maxBurst,
		padByte:       b.padByte,
		link:          b.link,
		fifo:          signal.NewFIFO[uint16](b.fifoDepth),
		counters:      newCounters(),
	}
	w.goEdge = signal.NewEdge(&w.Regs)
	w.wptr = signal.NewReg(&w.Regs, b.window.Base)

	for _, h := range b.hooks {
		w.AcceptHook(h)
	}

	return w
}

// ReaderBuilder can build readers.
type ReaderBuilder struct {
	window     Window
	burstWords int
	link       sdram.Link
	hooks      []hooking.Hook
}

// MakeReaderBuilder creates a builder for readers that send 32-word bursts.
func MakeReaderBuilder() ReaderBuilder {
	return ReaderBuilder{
		window:     DefaultWindow,
		burstWords: 32,
	}
}

// WithWindow sets the window of the ring.
func (b ReaderBuilder) WithWindow(w Window) ReaderBuilder {
	b.window = w
	return b
}

// WithBurstWords sets the number of words in a host burst.
func (b ReaderBuilder) WithBurstWords(words int) ReaderBuilder {
	b.burstWords = words
	return b
}

// WithLink sets the memory link of the reader.
func (b ReaderBuilder) WithLink(l sdram.Link) ReaderBuilder {
	b.link = l
	return b
}

// WithAdditionalHooks adds the given hook to the reader.
func (b ReaderBuilder) WithAdditionalHooks(h hooking.Hook) ReaderBuilder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a reader.
func (b ReaderBuilder) Build(name string) *Reader {
	if b.link == nil {
		log.Panic("ring reader requires a memory link")
	}

	r := &Reader{
		ComponentBase: modeling.MakeComponentBase(name),
		window:        b.window,
		link:          b.link,
		fifo:          signal.NewFIFO[uint16](b.burstWords),
		counters:      newCounters(),
	}
	r.goEdge = signal.NewEdge(&r.Regs)
	r.rptr = signal.NewReg(&r.Regs, b.window.Base)

	for _, h := range b.hooks {
		r.AcceptHook(h)
	}

	return r
}

// Connect pairs a writer and a reader of the same ring.
func Connect(w *Writer, r *Reader) {
	if w.window != r.window {
		log.Panic("writer and reader must share a window")
	}

	w.Connect(r)
	r.Connect(w)
}
