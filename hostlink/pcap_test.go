package hostlink

import (
	"bytes"
	"time"

	"github.com/google/gopacket/pcapgo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/timing"
)

var _ = Describe("PcapWriter", func() {
	It("should write readable packets", func() {
		var buf bytes.Buffer
		start := time.Unix(1000, 0)

		w, err := NewPcapWriter(&buf, start, 60*timing.MHz)
		Expect(err).NotTo(HaveOccurred())

		Expect(w.Write(Packet{
			Record: record.Record{
				Header:  record.Header{Flags: record.FlagOvf | record.FlagTrunc},
				Payload: []byte{0x69, 0x01, 0x02},
			},
			Ticks: 60_000_000,
		})).To(Succeed())
		Expect(w.Count()).To(Equal(uint64(1)))

		r, err := pcapgo.NewReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.LinkType()).To(Equal(LinkTypeUSBCapture))

		data, ci, err := r.ReadPacketData()
		Expect(err).NotTo(HaveOccurred())
		Expect(ci.Timestamp.Equal(start.Add(time.Second))).To(BeTrue())

		flags, payload, ok := DecodePcapPacket(data)
		Expect(ok).To(BeTrue())
		Expect(flags).To(Equal(record.FlagOvf | record.FlagTrunc))
		Expect(payload).To(Equal([]byte{0x69, 0x01, 0x02}))
	})

	It("should refuse short packets", func() {
		_, _, ok := DecodePcapPacket([]byte{1})

		Expect(ok).To(BeFalse())
	})
})
