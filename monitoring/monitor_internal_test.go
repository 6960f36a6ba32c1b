package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/pipeline"
	"github.com/sarchlab/usbsniff/ring/bulkring"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/traffic"
)

var testParams = sdram.Params{
	RowBits: 8, ColBits: 6, BankBits: 2,
	TReset: 2, TCL: 3, TRP: 2, TRFC: 3, TRCD: 2, TREFI: 300, TWR: 2,
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		comp   *pipeline.Comp
		tracer *hooking.StateCycleTracer
		server *httptest.Server
	)

	get := func(path string, into any) int {
		rsp, err := http.Get(server.URL + path)
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		if into != nil && rsp.StatusCode == http.StatusOK {
			Expect(json.NewDecoder(rsp.Body).Decode(into)).To(Succeed())
		}

		return rsp.StatusCode
	}

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()
		tracer = hooking.NewStateCycleTracer()

		comp = pipeline.MakeBuilder().
			WithLogger(logger).
			WithSDRAMParams(testParams).
			WithWindow(bulkring.MustNewWindow(0, 2*testParams.Capacity())).
			WithSelfTestWindow(0x8000, 256).
			WithDrainCycles(50).
			WithMaxCycles(1_000_000).
			WithAdditionalHooks(tracer).
			WithSource(traffic.NewPacketReplay([]byte{1, 2, 3})).
			Build("Board")

		m = NewMonitor(logger)
		m.RegisterPipeline(comp)
		m.RegisterStateTracer(tracer)

		server = httptest.NewServer(m.Router())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should register components and their buffers", func() {
		Expect(m.components).To(HaveLen(len(comp.Domain.Components())))

		names := []string{}
		for _, b := range m.buffers {
			names = append(names, b.name)
		}

		Expect(names).To(ContainElements(
			"Board.Ingress.fifo", "Board.Writer.fifo", "Board.Reader.fifo"))
	})

	It("should list components", func() {
		var names []string
		Expect(get("/api/list_components", &names)).To(Equal(http.StatusOK))
		Expect(names).To(ContainElement("Board.SDRAM"))
	})

	It("should report 404 for unknown components", func() {
		Expect(get("/api/component/Nothing", nil)).
			To(Equal(http.StatusNotFound))
	})

	It("should report the time and counters of the session", func() {
		m.Run()

		var now nowRsp
		Expect(get("/api/now", &now)).To(Equal(http.StatusOK))
		Expect(now.Cycle).To(Equal(comp.Domain.Cycle()))
		Expect(now.Phase).To(Equal(comp.Phase()))

		var c pipeline.Counters
		Expect(get("/api/counters", &c)).To(Equal(http.StatusOK))
		Expect(c.Packets).To(Equal(uint64(3)))

		var states map[string]uint64
		Expect(get("/api/states/Board.SDRAM", &states)).
			To(Equal(http.StatusOK))
		Expect(states).To(HaveKey("Idle"))
	})

	It("should pause and continue the session", func() {
		Expect(get("/api/pause", nil)).To(Equal(http.StatusOK))

		done := make(chan bool)
		go func() {
			done <- m.Tick()
		}()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

		Expect(get("/api/continue", nil)).To(Equal(http.StatusOK))
		Eventually(done).Should(Receive())
		Expect(comp.Domain.Cycle()).To(Equal(uint64(1)))
	})

	It("should sort and page buffers", func() {
		m.buffers = []namedBuffer{
			{"a", fakeBuffer{1, 10}},
			{"b", fakeBuffer{3, 4}},
			{"c", fakeBuffer{5, 100}},
		}

		var rsp []bufferRsp
		Expect(get("/api/buffers", &rsp)).To(Equal(http.StatusOK))
		Expect(rsp[0].Buffer).To(Equal("b"))

		Expect(get("/api/buffers?sort=level&limit=2&offset=1", &rsp)).
			To(Equal(http.StatusOK))
		Expect(rsp).To(Equal([]bufferRsp{
			{Buffer: "b", Level: 3, Cap: 4},
			{Buffer: "a", Level: 1, Cap: 10},
		}))

		Expect(get("/api/buffers?sort=name", nil)).
			To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("cycles", 100)
		bar.SetFinished(150)
		Expect(bar.Fraction()).To(Equal(1.0))

		var bars []map[string]any
		Expect(get("/api/progress", &bars)).To(Equal(http.StatusOK))
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("cycles"))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress", &bars)).To(Equal(http.StatusOK))
		Expect(bars).To(BeEmpty())
	})
})

type fakeBuffer struct {
	level, capacity int
}

func (b fakeBuffer) Len() int      { return b.level }
func (b fakeBuffer) Capacity() int { return b.capacity }
