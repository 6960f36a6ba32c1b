package arbiter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/naming"
)

var _ = Describe("Arbiter", func() {
	var (
		mockCtrl   *gomock.Controller
		downstream *MockDownstream
		arb        *Arbiter
		ports      []*Port
		rsp        sdram.Response
	)

	tick := func() {
		arb.Update()
		arb.Commit()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		downstream = NewMockDownstream(mockCtrl)
		downstream.EXPECT().Connect(gomock.Any())
		downstream.EXPECT().Response().
			DoAndReturn(func() sdram.Response { return rsp }).
			AnyTimes()

		arb = MakeBuilder().WithDownstream(downstream).Build("Arbiter")

		ports = nil
		for i := 0; i < 3; i++ {
			ports = append(ports,
				arb.NewPort(naming.BuildNameWithIndex("Arbiter", "Port", i)))
		}

		rsp = sdram.Response{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic without a downstream", func() {
		Expect(func() { MakeBuilder().Build("Arbiter") }).To(Panic())
	})

	It("should move the grant away from an idle port", func() {
		req := sdram.Request{Strobe: true, Addr: 0x40}
		ports[2].Drive(req)

		tick()

		Expect(ports[2].Granted()).To(BeTrue())
		Expect(arb.Request()).To(Equal(req))
	})

	It("should route the response to the granted port only", func() {
		rsp = sdram.Response{Strobe: true, Data: 7}

		Expect(ports[0].Granted()).To(BeTrue())
		Expect(ports[0].Response()).To(Equal(rsp))
		Expect(ports[1].Response()).To(BeZero())
	})

	It("should keep the grant until the terminating strobe", func() {
		ports[0].Drive(sdram.Request{Strobe: true, Write: true})
		ports[1].Drive(sdram.Request{Strobe: true})
		rsp = sdram.Response{Ack: true}
		tick()

		Expect(arb.Busy()).To(BeTrue())
		Expect(ports[0].Granted()).To(BeTrue())

		for i := 0; i < 5; i++ {
			ports[0].Drive(sdram.Request{Write: true, Data: uint16(i)})
			rsp = sdram.Response{Strobe: true}
			tick()

			Expect(ports[0].Granted()).To(BeTrue())
		}

		ports[0].Drive(sdram.Request{Write: true, Terminate: true})
		rsp = sdram.Response{}
		tick()
		Expect(ports[0].Granted()).To(BeTrue())

		rsp = sdram.Response{Strobe: true}
		tick()

		Expect(arb.Busy()).To(BeFalse())
		Expect(ports[1].Granted()).To(BeTrue())
		Expect(arb.GrantCount(ports[0])).To(Equal(uint64(1)))
	})

	It("should hold the grant while the request waits for an acknowledge",
		func() {
			ports[0].Drive(sdram.Request{Strobe: true})
			ports[1].Drive(sdram.Request{Strobe: true})

			for i := 0; i < 4; i++ {
				tick()
				Expect(ports[0].Granted()).To(BeTrue())
			}

			Expect(arb.GrantCount(ports[0])).To(BeZero())
		})

	It("should release a grant withdrawn before the acknowledge",
		func() {
			ports[0].Drive(sdram.Request{Strobe: true})
			tick()
			tick()

			Expect(arb.Busy()).To(BeFalse())
			Expect(ports[0].Granted()).To(BeTrue())

			ports[0].Drive(sdram.Request{})
			ports[1].Drive(sdram.Request{Strobe: true})
			tick()

			Expect(ports[1].Granted()).To(BeTrue())

			rsp = sdram.Response{Ack: true}
			tick()

			Expect(arb.Busy()).To(BeTrue())
			Expect(ports[1].Granted()).To(BeTrue())
			Expect(arb.GrantCount(ports[0])).To(BeZero())
			Expect(arb.GrantCount(ports[1])).To(Equal(uint64(1)))
		})

	It("should search in round-robin order", func() {
		order := []int{}

		for i := 0; i < 6; i++ {
			for j, p := range ports {
				p.Drive(sdram.Request{Strobe: true})

				if p.Granted() {
					order = append(order, j)
				}
			}

			rsp = sdram.Response{Ack: true}
			tick()

			for _, p := range ports {
				if p.Granted() {
					p.Drive(sdram.Request{Terminate: true})
				} else {
					p.Drive(sdram.Request{Strobe: true})
				}
			}

			rsp = sdram.Response{Strobe: true}
			tick()
		}

		Expect(order).To(Equal([]int{0, 1, 2, 0, 1, 2}))

		for _, p := range ports {
			Expect(arb.GrantCount(p)).To(Equal(uint64(2)))
		}
	})
})

// loopMaster writes bursts of burstLen words back to back. Transaction n
// writes to base + n*burstLen.
type loopMaster struct {
	modeling.ComponentBase

	link     sdram.Link
	id       uint16
	base     uint32
	burstLen int

	phase   int
	term    bool
	sent    int
	done    int
	overlap bool
}

func (m *loopMaster) word(txn, i int) uint16 {
	return m.id<<12 | uint16(txn)<<4 | uint16(i)
}

func (m *loopMaster) Drive() {
	switch m.phase {
	case 0:
		m.link.Drive(sdram.Request{
			Strobe: true,
			Write:  true,
			Addr:   m.base + uint32(m.done*m.burstLen),
		})
	default:
		m.term = m.sent >= m.burstLen

		req := sdram.Request{Write: true, Terminate: m.term}
		if !m.term {
			req.Data = m.word(m.done, m.sent)
		}

		m.link.Drive(req)
	}
}

func (m *loopMaster) Update() {
	rsp := m.link.Response()

	switch m.phase {
	case 0:
		if rsp.Strobe {
			m.overlap = true
		}

		if rsp.Ack {
			m.phase = 1
		}
	default:
		if !rsp.Strobe {
			break
		}

		if !m.term {
			m.sent++
			break
		}

		m.done++
		m.sent = 0
		m.phase = 0
	}
}

var _ = Describe("Arbiter with a scheduler", func() {
	var (
		domain  *modeling.Domain
		sched   *sdram.Scheduler
		arb     *Arbiter
		masters []*loopMaster
		tracer  *hooking.StateCycleTracer
	)

	BeforeEach(func() {
		params := sdram.Params{
			RowBits: 6, ColBits: 6, BankBits: 2,
			TReset: 2, TCL: 2, TRP: 2, TRFC: 3, TRCD: 2, TREFI: 200, TWR: 2,
		}
		tracer = hooking.NewStateCycleTracer()

		sched = sdram.MakeBuilder().WithParams(params).Build("SDRAM")
		arb = MakeBuilder().
			WithDownstream(sched).
			WithAdditionalHooks(tracer).
			Build("Arbiter")

		domain = modeling.NewDomain("Board")

		masters = nil
		for i := 0; i < 3; i++ {
			name := naming.BuildNameWithIndex("Board", "Master", i)
			m := &loopMaster{
				ComponentBase: modeling.MakeComponentBase(name),
				link: arb.NewPort(
					naming.BuildNameWithIndex("Arbiter", "Port", i)),
				id:       uint16(i + 1),
				base:     uint32(i) << 10,
				burstLen: 5,
			}
			masters = append(masters, m)
			domain.Register(m)
		}

		domain.Register(arb, sched)
	})

	It("should share the scheduler fairly", func() {
		domain.Run(3000)

		counts := []uint64{}
		for _, p := range arb.Ports() {
			counts = append(counts, arb.GrantCount(p))
		}

		Expect(counts[0]).To(BeNumerically(">", 10))
		Expect(counts[1]).To(BeNumerically("~", counts[0], 1))
		Expect(counts[2]).To(BeNumerically("~", counts[0], 1))
		Expect(tracer.Count("Arbiter", "Arbiter.Port[1]")).
			To(BeNumerically(">", 0))
	})

	It("should never interleave transactions", func() {
		domain.Run(3000)

		for _, m := range masters {
			Expect(m.overlap).To(BeFalse())

			for txn := 0; txn < m.done; txn++ {
				for i := 0; i < m.burstLen; i++ {
					addr := m.base + uint32(txn*m.burstLen+i)
					Expect(sched.Storage().Read(addr)).
						To(Equal(m.word(txn, i)))
				}
			}
		}
	})
})
