// Package bulkring streams bytes through a ring buffer in SDRAM. A Writer
// packs bytes into words and stores them in bursts; a Reader fetches the
// words in bursts and sends them to the host.
package bulkring

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when a ring window is malformed.
var ErrInvalidWindow = errors.New("invalid ring window")

// Window is the word address range [Base, End) the ring occupies.
type Window struct {
	Base uint32
	End  uint32
}

// NewWindow creates a window from byte addresses. Both must be word aligned,
// and base must be below end.
func NewWindow(baseByte, endByte uint64) (Window, error) {
	if baseByte%2 != 0 || endByte%2 != 0 {
		return Window{}, fmt.Errorf("%w: %#x-%#x is not word aligned",
			ErrInvalidWindow, baseByte, endByte)
	}

	if baseByte >= endByte {
		return Window{}, fmt.Errorf("%w: base %#x is not below end %#x",
			ErrInvalidWindow, baseByte, endByte)
	}

	if endByte/2 > 1<<32 {
		return Window{}, fmt.Errorf("%w: end %#x is out of range",
			ErrInvalidWindow, endByte)
	}

	return Window{Base: uint32(baseByte / 2), End: uint32(endByte / 2)}, nil
}

// MustNewWindow is like NewWindow but panics on error.
func MustNewWindow(baseByte, endByte uint64) Window {
	w, err := NewWindow(baseByte, endByte)
	if err != nil {
		panic(err)
	}

	return w
}

// Capacity returns the number of words in the window.
func (w Window) Capacity() uint32 {
	return w.End - w.Base
}

// Contains tells if the word address is inside the window.
func (w Window) Contains(p uint32) bool {
	return p >= w.Base && p < w.End
}

// Advance returns the pointer after p. It wraps to Base exactly at End.
func (w Window) Advance(p uint32) uint32 {
	p++
	if p == w.End {
		return w.Base
	}

	return p
}

// Occupancy returns the number of words written but not yet read.
func (w Window) Occupancy(write, read uint32) uint32 {
	if write >= read {
		return write - read
	}

	return w.Capacity() - (read - write)
}
