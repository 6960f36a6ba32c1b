package bulkring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/usbsniff/hostlink"
	"github.com/sarchlab/usbsniff/mem/arbiter"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
)

var _ = Describe("Ring", func() {
	var (
		sched  *sdram.Scheduler
		arb    *arbiter.Arbiter
		writer *Writer
		reader *Reader
		source *byteSource
		sink   *byteSink
		domain *modeling.Domain
		window Window
	)

	build := func(burstWords int) {
		sched = sdram.MakeBuilder().WithParams(testParams).Build("SDRAM")
		arb = arbiter.MakeBuilder().WithDownstream(sched).Build("Arbiter")

		writer = MakeWriterBuilder().
			WithWindow(window).
			WithMaxBurst(16).
			WithLink(arb.NewPort("Arbiter.Writer")).
			Build("Writer")
		reader = MakeReaderBuilder().
			WithWindow(window).
			WithBurstWords(burstWords).
			WithLink(arb.NewPort("Arbiter.Reader")).
			Build("Reader")
		Connect(writer, reader)

		source = newByteSource(writer.Input())
		sink = newByteSink(reader.Output())

		domain = modeling.NewDomain("Board")
		domain.Register(source, writer, reader, sink, arb, sched)
	}

	start := func() {
		writer.SetGo(true)
		reader.SetGo(true)
	}

	BeforeEach(func() {
		window = MustNewWindow(0x1000, 0x1080)
		build(8)
	})

	It("should deliver every byte in order through the wrap", func() {
		source.data = pattern(2048)
		sink.ready = func(c uint64) bool { return c%5 < 3 }
		start()

		done := func() bool { return len(sink.got) == 128*17 }
		Expect(domain.RunUntil(done, 100000)).To(BeTrue())

		data, ok := sink.payload(8)
		Expect(ok).To(BeTrue())
		Expect(data).To(Equal(source.data))
		Expect(reader.Counters().HostBursts).To(Equal(uint64(128)))
		Expect(writer.Counters().Wraps).To(BeNumerically(">=", 15))
		Expect(reader.Counters().Wraps).To(Equal(writer.Counters().Wraps))
	})

	It("should deliver every byte with short pages and a long read latency",
		func() {
			params := testParams
			params.ColBits = 4
			params.TCL = 3
			params.TRP = 2

			window = MustNewWindow(10, 122)
			sched = sdram.MakeBuilder().WithParams(params).Build("SDRAM")
			arb = arbiter.MakeBuilder().WithDownstream(sched).Build("Arbiter")
			writer = MakeWriterBuilder().
				WithWindow(window).
				WithMaxBurst(4).
				WithLink(arb.NewPort("Arbiter.Writer")).
				Build("Writer")
			reader = MakeReaderBuilder().
				WithWindow(window).
				WithBurstWords(7).
				WithLink(arb.NewPort("Arbiter.Reader")).
				Build("Reader")
			Connect(writer, reader)

			source = newByteSource(writer.Input())
			source.data = pattern(14 * 40)
			sink = newByteSink(reader.Output())
			sink.ready = func(c uint64) bool { return c%3 == 0 }

			domain = modeling.NewDomain("Board")
			domain.Register(source, writer, reader, sink, arb, sched)
			start()

			done := func() bool { return len(sink.got) == 40*15 }
			Expect(domain.RunUntil(done, 200000)).To(BeTrue())

			data, ok := sink.payload(7)
			Expect(ok).To(BeTrue())
			Expect(data).To(Equal(source.data))
		})

	It("should never let the writer lap the reader", func() {
		source.data = pattern(4096)
		sink.ready = func(c uint64) bool { return c%16 == 0 }

		domain.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos != modeling.HookPosCycleEnd {
				return
			}

			w, r := writer.Pointer(), reader.Pointer()
			Expect(window.Contains(w)).To(BeTrue())
			Expect(window.Contains(r)).To(BeTrue())

			written := writer.Counters().Words
			read := reader.Counters().Words
			Expect(written).To(BeNumerically(">=", read))
			Expect(written - read).To(
				BeNumerically("<=", window.Capacity()-1))
			Expect(uint64(window.Occupancy(w, r))).To(Equal(written - read))
		}))

		start()
		domain.Run(20000)

		Expect(reader.Counters().HostBursts).To(BeNumerically(">", 10))
	})

	It("should only send full bursts", func() {
		source.data = pattern(20)
		start()
		domain.Run(2000)

		Expect(sink.got).To(HaveLen(17))
		Expect(reader.Buffered()).To(Equal(2))
		Expect(reader.Pointer()).To(Equal(writer.Pointer()))
	})

	It("should send a short burst on flush", func() {
		source.data = pattern(21)
		start()
		domain.Run(2000)

		writer.SetFlush(true)
		domain.Run(2000)
		Expect(writer.Pending()).To(BeZero())

		reader.SetFlush(true)
		domain.Run(2000)

		Expect(sink.got).To(HaveLen(17 + 7))
		Expect(sink.got[17]).To(Equal(hostlink.Byte{Data: hostlink.Sentinel}))
		Expect(sink.got[23].Last).To(BeTrue())
		Expect(sink.got[22].Data).To(Equal(source.data[20]))
		Expect(sink.got[23].Data).To(BeZero())
		Expect(reader.Counters().HostBursts).To(Equal(uint64(2)))
	})

	It("should send bursts of one word", func() {
		build(1)
		source.data = pattern(10)
		start()
		domain.Run(1000)

		Expect(sink.got).To(HaveLen(15))

		data, ok := sink.payload(1)
		Expect(ok).To(BeTrue())
		Expect(data).To(Equal(source.data))
	})

	It("should not read while stopped", func() {
		source.data = pattern(64)
		writer.SetGo(true)
		domain.Run(1000)

		Expect(reader.Counters().Requests).To(BeZero())
		Expect(writer.Counters().Words).To(Equal(uint64(32)))
		Expect(sink.got).To(BeEmpty())
	})
})
