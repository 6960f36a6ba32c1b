package modeling

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/signal"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// swapper copies the value of its peer every cycle.
type swapper struct {
	ComponentBase

	value *signal.Reg[int]
	peer  *swapper
}

func newSwapper(name string, v int) *swapper {
	s := &swapper{ComponentBase: MakeComponentBase(name)}
	s.value = signal.NewReg(&s.Regs, v)

	return s
}

func (s *swapper) Update() {
	s.value.Set(s.peer.value.Get())
	s.TraceState(s, "Swap")
}

var _ = Describe("Domain", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *Domain
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewDomain("Board")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run the phases in order", func() {
		a := NewMockClocked(mockCtrl)
		b := NewMockClocked(mockCtrl)
		a.EXPECT().Name().Return("Board.A").AnyTimes()
		b.EXPECT().Name().Return("Board.B").AnyTimes()

		gomock.InOrder(
			a.EXPECT().Drive(),
			b.EXPECT().Drive(),
			a.EXPECT().Respond(),
			b.EXPECT().Respond(),
			a.EXPECT().Update(),
			b.EXPECT().Update(),
			a.EXPECT().Commit(),
			b.EXPECT().Commit(),
		)

		domain.Register(a, b)
		domain.Tick()

		Expect(domain.Cycle()).To(Equal(uint64(1)))
	})

	It("should reject duplicated names", func() {
		a := NewMockClocked(mockCtrl)
		a.EXPECT().Name().Return("Board.A").AnyTimes()

		domain.Register(a)
		Expect(func() { domain.Register(a) }).To(Panic())
	})

	It("should expose only committed state within a tick", func() {
		x := newSwapper("Board.X", 1)
		y := newSwapper("Board.Y", 2)
		x.peer = y
		y.peer = x

		domain.Register(x, y)
		domain.Tick()

		Expect(x.value.Get()).To(Equal(2))
		Expect(y.value.Get()).To(Equal(1))
	})

	It("should report cycle ends and states", func() {
		x := newSwapper("Board.X", 1)
		x.peer = x
		tracer := hooking.NewStateCycleTracer()
		x.AcceptHook(tracer)

		var ends []uint64
		domain.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			ends = append(ends, ctx.Item.(uint64))
		}))

		domain.Register(x)
		domain.Run(3)

		Expect(ends).To(Equal([]uint64{1, 2, 3}))
		Expect(tracer.Count("Board.X", "Swap")).To(Equal(uint64(3)))
	})

	It("should run until a condition holds", func() {
		x := newSwapper("Board.X", 1)
		x.peer = x
		domain.Register(x)

		Expect(domain.RunUntil(func() bool { return domain.Cycle() == 5 }, 10)).
			To(BeTrue())
		Expect(domain.RunUntil(func() bool { return false }, 3)).To(BeFalse())
		Expect(domain.Cycle()).To(Equal(uint64(8)))
	})
})

type countingTicker struct {
	left int
}

func (t *countingTicker) Tick() bool {
	t.left--
	return t.left > 0
}

var _ = Describe("TickingComponent", func() {
	It("should keep ticking while the ticker makes progress", func() {
		engine := timing.NewSerialEngine()
		ticker := &countingTicker{left: 4}
		tc := NewTickingComponent("Board", engine, 1*timing.GHz, ticker)

		tc.TickLater()
		Expect(engine.Run()).To(Succeed())

		Expect(ticker.left).To(Equal(0))
		Expect(tc.CurrentCycle()).To(Equal(uint64(4)))
	})
})
