package bulkring

import (
	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

var testParams = sdram.Params{
	RowBits: 8, ColBits: 6, BankBits: 2,
	TReset: 2, TCL: 3, TRP: 2, TRFC: 3, TRCD: 2, TREFI: 300, TWR: 2,
}

// byteSource offers its bytes one per cycle.
type byteSource struct {
	modeling.ComponentBase

	out  *signal.Stream[hostlink.Byte]
	data []byte
	next int
}

func newByteSource(out *signal.Stream[hostlink.Byte]) *byteSource {
	return &byteSource{
		ComponentBase: modeling.MakeComponentBase("Source"),
		out:           out,
	}
}

func (s *byteSource) exhausted() bool {
	return s.next >= len(s.data)
}

func (s *byteSource) Drive() {
	if s.exhausted() {
		s.out.Idle()
		return
	}

	s.out.Offer(hostlink.Byte{Data: s.data[s.next]})
}

func (s *byteSource) Update() {
	if s.out.Fire() {
		s.next++
	}
}

// byteSink accepts bytes in the cycles its ready pattern allows.
type byteSink struct {
	modeling.ComponentBase

	in    *signal.Stream[hostlink.Byte]
	ready func(cycle uint64) bool
	cycle uint64
	got   []hostlink.Byte
}

func newByteSink(in *signal.Stream[hostlink.Byte]) *byteSink {
	return &byteSink{
		ComponentBase: modeling.MakeComponentBase("Sink"),
		in:            in,
		ready:         func(uint64) bool { return true },
	}
}

func (s *byteSink) Respond() {
	s.in.Ready = s.ready(s.cycle)
}

func (s *byteSink) Update() {
	if s.in.Fire() {
		s.got = append(s.got, s.in.Data)
	}

	s.cycle++
}

// payload checks the framing of the received bursts and returns the bytes
// they carry.
func (s *byteSink) payload(burstWords int) ([]byte, bool) {
	var data []byte

	for i := 0; i < len(s.got); {
		if s.got[i].Data != hostlink.Sentinel || s.got[i].Last {
			return data, false
		}

		burst := s.got[i+1 : i+1+2*burstWords]
		for j, b := range burst {
			if b.Last != (j == len(burst)-1) {
				return data, false
			}

			data = append(data, b.Data)
		}

		i += 1 + 2*burstWords
	}

	return data, true
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/256)
	}

	return data
}
