// Package hostlink models the host end of the capture pipeline: a host link
// that drains the ring reader, and the decoders that turn the drained bytes
// back into records.
package hostlink

import (
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// Sink models the host link. It accepts Burst bytes in a row and then stalls
// for Stall cycles, like a host that polls a USB FIFO. A zero Burst accepts
// every cycle.
type Sink struct {
	modeling.ComponentBase

	in *signal.Stream[Byte]

	burst, stall int
	accepted     int
	stallLeft    int

	got   []Byte
	total uint64
}

// NewSink creates a sink that is always ready.
func NewSink(name string, in *signal.Stream[Byte]) *Sink {
	return &Sink{
		ComponentBase: modeling.MakeComponentBase(name),
		in:            in,
	}
}

// SetPacing sets the number of bytes accepted between stalls and the length
// of a stall in cycles.
func (s *Sink) SetPacing(burst, stall int) {
	s.burst = burst
	s.stall = stall
}

// Total returns the number of bytes received.
func (s *Sink) Total() uint64 {
	return s.total
}

// Bytes returns the bytes received and not yet taken.
func (s *Sink) Bytes() []Byte {
	return s.got
}

// Take returns the bytes received since the last call and forgets them.
func (s *Sink) Take() []Byte {
	got := s.got
	s.got = nil

	return got
}

// Respond tells the producer whether the host is polling.
func (s *Sink) Respond() {
	s.in.Ready = s.stallLeft == 0
}

// Update receives a byte or counts down the stall.
func (s *Sink) Update() {
	if !s.in.Fire() {
		if s.stallLeft > 0 {
			s.stallLeft--
		}

		return
	}

	s.got = append(s.got, s.in.Data)
	s.total++
	s.accepted++

	if s.burst > 0 && s.accepted >= s.burst {
		s.accepted = 0
		s.stallLeft = s.stall
	}
}
