package signal

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reg", func() {
	It("should only expose committed values", func() {
		bank := &Bank{}
		r := NewReg(bank, 3)

		r.Set(4)
		Expect(r.Get()).To(Equal(3))
		Expect(r.Next()).To(Equal(4))

		bank.Commit()
		Expect(r.Get()).To(Equal(4))
		Expect(bank.Len()).To(Equal(1))
	})

	It("should keep the value when nothing is staged", func() {
		r := NewReg[uint32](nil, 7)
		r.Commit()
		Expect(r.Get()).To(Equal(uint32(7)))
	})

	It("should force values", func() {
		r := NewReg(nil, 1)
		r.Set(2)
		r.Force(5)
		r.Commit()
		Expect(r.Get()).To(Equal(5))
	})
})

var _ = Describe("Stream", func() {
	It("should fire only when valid and ready", func() {
		s := &Stream[byte]{}
		Expect(s.Fire()).To(BeFalse())

		s.Offer(0x42)
		Expect(s.Fire()).To(BeFalse())

		s.Ready = true
		Expect(s.Fire()).To(BeTrue())
		Expect(s.Data).To(Equal(byte(0x42)))

		s.Idle()
		Expect(s.Fire()).To(BeFalse())
		Expect(s.Data).To(BeZero())
	})
})

var _ = Describe("SatCounter", func() {
	It("should saturate", func() {
		c := NewSatCounter(3)
		for i := 0; i < 10; i++ {
			c.Inc()
		}

		Expect(c.Value()).To(Equal(uint64(7)))
		Expect(c.Saturated()).To(BeTrue())

		c.Reset()
		c.IncIf(false)
		c.IncIf(true)
		Expect(c.Value()).To(Equal(uint64(1)))
	})

	It("should saturate on large additions", func() {
		c := NewSatCounter(64)
		c.Add(^uint64(0) - 1)
		c.Add(5)
		Expect(c.Saturated()).To(BeTrue())
	})

	It("should reject invalid widths", func() {
		Expect(func() { NewSatCounter(0) }).To(Panic())
		Expect(func() { NewSatCounter(65) }).To(Panic())
	})
})

var _ = Describe("Edge", func() {
	It("should detect rising and falling edges", func() {
		bank := &Bank{}
		e := NewEdge(bank)

		rose, fell := e.Sample(true)
		Expect(rose).To(BeTrue())
		Expect(fell).To(BeFalse())
		bank.Commit()

		rose, fell = e.Sample(true)
		Expect(rose).To(BeFalse())
		Expect(fell).To(BeFalse())
		bank.Commit()

		rose, fell = e.Sample(false)
		Expect(rose).To(BeFalse())
		Expect(fell).To(BeTrue())
		bank.Commit()

		Expect(e.Level()).To(BeFalse())
	})
})

var _ = Describe("FIFO", func() {
	It("should keep order across wraparound", func() {
		f := NewFIFO[int](3)

		f.Push(1)
		f.Push(2)
		Expect(f.Pop()).To(Equal(1))
		f.Push(3)
		f.Push(4)
		Expect(f.Full()).To(BeTrue())

		Expect(f.Pop()).To(Equal(2))
		Expect(f.Pop()).To(Equal(3))
		Expect(f.Peek()).To(Equal(4))
		Expect(f.Len()).To(Equal(1))
	})

	It("should panic on misuse", func() {
		f := NewFIFO[int](1)
		Expect(func() { f.Pop() }).To(Panic())

		f.Push(1)
		Expect(func() { f.Push(2) }).To(Panic())

		f.Clear()
		Expect(f.Empty()).To(BeTrue())
	})
})
