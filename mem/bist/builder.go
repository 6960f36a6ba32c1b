package bist

import (
	"log"

	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
)

// Builder can build testers.
type Builder struct {
	link  sdram.Link
	base  uint32
	size  uint32
	hooks []hooking.Hook
}

// MakeBuilder creates a builder that tests 3000 words from address 0.
func MakeBuilder() Builder {
	return Builder{size: 3000}
}

// WithLink sets the link the tester talks through.
func (b Builder) WithLink(l sdram.Link) Builder {
	b.link = l
	return b
}

// WithWindow sets the first word address and the number of words to test.
func (b Builder) WithWindow(base, size uint32) Builder {
	b.base = base
	b.size = size

	return b
}

// WithAdditionalHooks adds the given hook to the tester.
func (b Builder) WithAdditionalHooks(h hooking.Hook) Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a tester.
func (b Builder) Build(name string) *Tester {
	if b.link == nil {
		log.Panic("tester requires a link")
	}

	if b.size == 0 {
		log.Panic("tester window must not be empty")
	}

	t := &Tester{
		ComponentBase: modeling.MakeComponentBase(name),
		link:          b.link,
		base:          b.base,
		size:          b.size,
	}

	for _, h := range b.hooks {
		t.AcceptHook(h)
	}

	return t
}
