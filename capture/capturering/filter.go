package capturering

import "github.com/sarchlab/usbsniff/capture/record"

// A Filter looks at the payload of every record and may veto it. The framer
// resets the filters when a record starts, feeds them every stored payload
// byte and the marker that ends the payload, and waits for all of them to
// be done before it writes the header.
type Filter interface {
	Reset()
	Feed(sym record.Symbol)
	Done() bool
	Reject() bool
}

// A Clipper is a Filter that may also mark a record as clipped.
type Clipper interface {
	Filter
	Clip() bool
}

type filterSet []Filter

func (fs filterSet) reset() {
	for _, f := range fs {
		f.Reset()
	}
}

func (fs filterSet) feed(sym record.Symbol) {
	for _, f := range fs {
		f.Feed(sym)
	}
}

func (fs filterSet) done() bool {
	for _, f := range fs {
		if !f.Done() {
			return false
		}
	}

	return true
}

func (fs filterSet) reject() bool {
	for _, f := range fs {
		if f.Reject() {
			return true
		}
	}

	return false
}

func (fs filterSet) clip() bool {
	for _, f := range fs {
		if c, ok := f.(Clipper); ok && c.Clip() {
			return true
		}
	}

	return false
}
