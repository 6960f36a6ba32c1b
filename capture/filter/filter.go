// Package filter provides look-aside filters for the capture ring.
package filter

import (
	"github.com/sarchlab/usbsniff/capture/record"
)

// Well-known USB packet identifiers.
const (
	PIDSOF   uint8 = 0xA5
	PIDIN    uint8 = 0x69
	PIDOUT   uint8 = 0xE1
	PIDSETUP uint8 = 0x2D
	PIDACK   uint8 = 0xD2
	PIDNAK   uint8 = 0x5A
)

// PIDFilter rejects records whose first payload byte, the packet
// identifier, is in a set. It is done as soon as it has seen the first byte
// or the end of the payload.
type PIDFilter struct {
	drop map[uint8]bool

	done   bool
	reject bool
}

// NewPIDFilter creates a filter that rejects the given PIDs.
func NewPIDFilter(pids ...uint8) *PIDFilter {
	f := &PIDFilter{drop: make(map[uint8]bool)}
	for _, p := range pids {
		f.drop[p] = true
	}

	return f
}

// Reset prepares the filter for a new record.
func (f *PIDFilter) Reset() {
	f.done = false
	f.reject = false
}

// Feed looks at one symbol of the record.
func (f *PIDFilter) Feed(sym record.Symbol) {
	if f.done {
		return
	}

	f.done = true
	f.reject = !sym.IsMarker() && f.drop[sym.Data]
}

// Done tells if the filter has decided.
func (f *PIDFilter) Done() bool {
	return f.done
}

// Reject tells if the record is to be dropped.
func (f *PIDFilter) Reject() bool {
	return f.reject
}

// LengthFilter never rejects. It marks records whose stored payload is
// longer than a limit as clipped.
type LengthFilter struct {
	limit int

	n    int
	done bool
}

// NewLengthFilter creates a filter that clips records longer than limit.
func NewLengthFilter(limit int) *LengthFilter {
	return &LengthFilter{limit: limit}
}

// Reset prepares the filter for a new record.
func (f *LengthFilter) Reset() {
	f.n = 0
	f.done = false
}

// Feed counts payload bytes until the end of the payload.
func (f *LengthFilter) Feed(sym record.Symbol) {
	if sym.IsMarker() {
		f.done = true
		return
	}

	f.n++
}

// Done tells if the end of the payload has been seen.
func (f *LengthFilter) Done() bool {
	return f.done
}

// Reject is always false.
func (f *LengthFilter) Reject() bool {
	return false
}

// Clip tells if the record is longer than the limit.
func (f *LengthFilter) Clip() bool {
	return f.n > f.limit
}
