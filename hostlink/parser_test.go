package hostlink

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/timing"
)

func encoded(flags uint16, ts uint32, payload ...byte) []byte {
	return record.Record{
		Header: record.Header{
			Flags:     flags,
			Size:      uint16(len(payload)),
			Timestamp: ts,
		},
		Payload: payload,
	}.Encode()
}

var _ = Describe("Parser", func() {
	var p *Parser

	BeforeEach(func() {
		p = NewParser()
	})

	It("should reassemble records split across calls", func() {
		data := append(encoded(0, 10, 1, 2, 3), encoded(record.FlagErr, 20)...)

		pkts, err := p.Feed(data[:5])
		Expect(err).NotTo(HaveOccurred())
		Expect(pkts).To(BeEmpty())
		Expect(p.Pending()).To(Equal(5))

		pkts, err = p.Feed(data[5:])
		Expect(err).NotTo(HaveOccurred())
		Expect(pkts).To(HaveLen(2))
		Expect(pkts[0].Payload).To(Equal([]byte{1, 2, 3}))
		Expect(pkts[0].Ticks).To(Equal(uint64(10)))
		Expect(pkts[1].Has(record.FlagErr)).To(BeTrue())
		Expect(pkts[1].Payload).To(BeEmpty())
		Expect(p.Packets()).To(Equal(uint64(2)))
		Expect(p.Pending()).To(BeZero())
	})

	It("should skip padding between records", func() {
		data := append(encoded(0, 1, 7), record.PadByte)
		data = append(data, encoded(0, 2, 8)...)

		pkts, err := p.Feed(data)

		Expect(err).NotTo(HaveOccurred())
		Expect(pkts).To(HaveLen(2))
		Expect(p.Skipped()).To(Equal(uint64(1)))
	})

	It("should report a bad magic and resynchronize", func() {
		data := append([]byte{0x55}, encoded(0, 1, 7)...)

		pkts, err := p.Feed(data)
		Expect(err).To(MatchError(record.ErrBadMagic))
		Expect(pkts).To(BeEmpty())

		pkts, err = p.Feed(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(pkts).To(HaveLen(1))
	})

	It("should extend wrapping timestamps", func() {
		data := append(encoded(0, 0xFFFFF0), encoded(0, 0x10)...)
		data = append(data, encoded(0, 0x20)...)

		pkts, err := p.Feed(data)

		Expect(err).NotTo(HaveOccurred())
		Expect(pkts[0].Ticks).To(Equal(uint64(0xFFFFF0)))
		Expect(pkts[1].Ticks).To(Equal(uint64(0x1000010)))
		Expect(pkts[2].Ticks).To(Equal(uint64(0x1000020)))
	})

	It("should convert ticks to time", func() {
		pkt := Packet{Ticks: 60}

		Expect(pkt.Time(60 * timing.MHz)).To(BeNumerically("~", 1e-6, 1e-12))
	})
})

var _ = Describe("Decoder", func() {
	It("should decode the ring reader output", func() {
		payload := encoded(record.FlagFirst, 3)
		d := NewDecoder(4)

		pkts, err := d.Decode(burst(payload...))

		Expect(err).NotTo(HaveOccurred())
		Expect(pkts).To(HaveLen(1))
		Expect(pkts[0].Has(record.FlagFirst)).To(BeTrue())
	})

	It("should report framing errors", func() {
		d := NewDecoder(0)

		_, err := d.Decode([]Byte{{Data: record.Magic}})

		Expect(err).To(MatchError(ErrFraming))
	})
})
