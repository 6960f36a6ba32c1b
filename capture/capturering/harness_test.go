package capturering

import (
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// symbolSource offers its symbols in order and waits for each to be taken.
type symbolSource struct {
	modeling.ComponentBase

	out  *signal.Stream[record.Symbol]
	syms []record.Symbol
}

func (s *symbolSource) empty() bool {
	return len(s.syms) == 0
}

func (s *symbolSource) Drive() {
	if s.empty() {
		s.out.Idle()
		return
	}

	s.out.Offer(s.syms[0])
}

func (s *symbolSource) Update() {
	if s.out.Fire() {
		s.syms = s.syms[1:]
	}
}

// recordSink collects the bytes of the frame reader.
type recordSink struct {
	modeling.ComponentBase

	in    *signal.Stream[hostlink.Byte]
	ready func(cycle uint64) bool
	cycle uint64
	got   []hostlink.Byte
}

func (s *recordSink) Respond() {
	s.in.Ready = s.ready(s.cycle)
}

func (s *recordSink) Update() {
	if s.in.Fire() {
		s.got = append(s.got, s.in.Data)
	}

	s.cycle++
}

// records splits the collected bytes at Last and decodes each record.
func (s *recordSink) records() ([]record.Record, error) {
	var (
		recs []record.Record
		buf  []byte
	)

	for _, b := range s.got {
		buf = append(buf, b.Data)
		if !b.Last {
			continue
		}

		h, err := record.DecodeHeader(buf)
		if err != nil {
			return recs, err
		}

		recs = append(recs, record.Record{
			Header:  h,
			Payload: append([]byte(nil), buf[record.HeaderSize:]...),
		})
		buf = nil
	}

	return recs, nil
}

// descriptorSpy records every descriptor the framer publishes.
type descriptorSpy struct {
	modeling.ComponentBase

	in  *signal.Stream[record.Descriptor]
	got []record.Descriptor
}

func (s *descriptorSpy) Update() {
	if s.in.Fire() {
		s.got = append(s.got, s.in.Data)
	}
}

func countingPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i & 0xFF)
	}

	return p
}
