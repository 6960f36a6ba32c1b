package sdram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
)

var smallParams = Params{
	RowBits:  4,
	ColBits:  4,
	BankBits: 2,
	TReset:   2,
	TCL:      3,
	TRP:      2,
	TRFC:     3,
	TRCD:     2,
	TREFI:    100,
	TWR:      2,
}

// streamMaster runs one transaction: it writes data starting at addr, or
// reads want words starting at addr.
type streamMaster struct {
	modeling.ComponentBase

	link  *DirectLink
	write bool
	addr  uint32
	data  []uint16
	want  int

	phase   int
	term    bool
	cycle   uint64
	sent    int
	got     []uint16
	strobes []uint64
	acked   uint64
}

func newStreamMaster(s *Scheduler) *streamMaster {
	return &streamMaster{
		ComponentBase: modeling.MakeComponentBase("Master"),
		link:          NewDirectLink(s),
	}
}

func (m *streamMaster) done() bool {
	return m.phase == 2
}

func (m *streamMaster) Drive() {
	switch m.phase {
	case 0:
		m.link.Drive(Request{Strobe: true, Write: m.write, Addr: m.addr})
	case 1:
		if m.write {
			m.term = m.sent >= len(m.data)
		} else {
			m.term = len(m.got) >= m.want
		}

		req := Request{Write: m.write, Terminate: m.term}
		if m.write && !m.term {
			req.Data = m.data[m.sent]
		}

		m.link.Drive(req)
	default:
		m.link.Drive(Request{})
	}
}

func (m *streamMaster) Update() {
	rsp := m.link.Response()

	switch m.phase {
	case 0:
		if rsp.Ack {
			m.acked = m.cycle
			m.phase = 1
		}
	case 1:
		if !rsp.Strobe {
			break
		}

		m.strobes = append(m.strobes, m.cycle)

		switch {
		case m.term:
			m.phase = 2
		case m.write:
			m.sent++
		default:
			m.got = append(m.got, rsp.Data)
		}
	}

	m.cycle++
}

// masterSequence runs masters one after the other over the link of the first
// one, which must be the last link connected to the scheduler.
type masterSequence struct {
	modeling.ComponentBase

	masters []*streamMaster
	current int
}

func newMasterSequence(masters ...*streamMaster) *masterSequence {
	for _, m := range masters[1:] {
		m.link = masters[0].link
	}

	return &masterSequence{
		ComponentBase: modeling.MakeComponentBase("Masters"),
		masters:       masters,
	}
}

func (q *masterSequence) done() bool {
	return q.current == len(q.masters)
}

func (q *masterSequence) Drive() {
	if q.done() {
		q.masters[0].link.Drive(Request{})
		return
	}

	q.masters[q.current].Drive()
}

func (q *masterSequence) Update() {
	if q.done() {
		return
	}

	q.masters[q.current].Update()

	if q.masters[q.current].done() {
		q.current++
	}
}

type commandLog struct {
	cmds []Command
}

func (l *commandLog) Func(ctx hooking.HookCtx) {
	if ctx.Pos == HookPosCommand {
		l.cmds = append(l.cmds, ctx.Item.(Command))
	}
}

func (l *commandLog) kinds() []CmdKind {
	kinds := make([]CmdKind, 0, len(l.cmds))
	for _, c := range l.cmds {
		kinds = append(kinds, c.Kind)
	}

	return kinds
}

func (l *commandLog) first(kind CmdKind, after uint64) Command {
	for _, c := range l.cmds {
		if c.Kind == kind && c.Cycle >= after {
			return c
		}
	}

	Fail("command " + kind.String() + " not found")

	return Command{}
}

var _ = Describe("Scheduler", func() {
	var (
		cmdLog *commandLog
		sched  *Scheduler
		master *streamMaster
		domain *modeling.Domain
	)

	BeforeEach(func() {
		cmdLog = &commandLog{}
		sched = MakeBuilder().
			WithParams(smallParams).
			WithAdditionalHooks(cmdLog).
			Build("SDRAM")
		master = newStreamMaster(sched)

		domain = modeling.NewDomain("Board")
		domain.Register(master, sched)
	})

	runTransaction := func() {
		Expect(domain.RunUntil(master.done, 5000)).To(BeTrue())
	}

	newMaster := func() {
		master = newStreamMaster(sched)
		domain = modeling.NewDomain("Board")
		domain.Register(master, sched)
	}

	It("should initialize before accepting requests", func() {
		master.write = true
		master.data = []uint16{1}

		Expect(domain.RunUntil(sched.Initialized, 1000)).To(BeTrue())
		Expect(master.phase).To(Equal(0))
		Expect(cmdLog.kinds()).To(Equal([]CmdKind{
			CmdKindPrecharge,
			CmdKindAutoRefresh,
			CmdKindAutoRefresh,
			CmdKindLoadMode,
		}))

		runTransaction()
		Expect(sched.Counters().Acks).To(Equal(uint64(1)))
		Expect(sched.Counters().WordsWritten).To(Equal(uint64(1)))
	})

	It("should write and read back across page boundaries", func() {
		data := make([]uint16, 40)
		for i := range data {
			data[i] = uint16(0x1000 + i)
		}

		master.write = true
		master.addr = 10
		master.data = data
		runTransaction()

		Expect(sched.Counters().WordsWritten).To(Equal(uint64(40)))
		Expect(sched.Counters().Reissues).To(BeNumerically(">=", 2))

		for i := range data {
			Expect(sched.Storage().Read(uint32(10 + i))).To(Equal(data[i]))
		}

		newMaster()
		master.addr = 10
		master.want = 40
		runTransaction()

		Expect(master.got).To(Equal(data))
	})

	It("should respect tRCD and tCL", func() {
		sched.Storage().Write(3, 0xBEEF)

		master.addr = 3
		master.want = 1
		runTransaction()

		act := cmdLog.first(CmdKindActivate, 0)
		read := cmdLog.first(CmdKindRead, act.Cycle)

		Expect(read.Cycle - act.Cycle).To(Equal(uint64(smallParams.TRCD)))
		Expect(read.Row).To(Equal(uint32(0)))
		Expect(read.Col).To(Equal(uint32(3)))
		Expect(master.strobes[0] - read.Cycle).
			To(Equal(uint64(smallParams.TCL + 1)))
		Expect(master.got).To(Equal([]uint16{0xBEEF}))
	})

	It("should strobe writes in the write command cycle", func() {
		master.write = true
		master.addr = 0x25
		master.data = []uint16{7, 8}
		runTransaction()

		act := cmdLog.first(CmdKindActivate, 0)
		write := cmdLog.first(CmdKindWrite, act.Cycle)

		Expect(write.Cycle - act.Cycle).To(Equal(uint64(smallParams.TRCD)))
		Expect(write.Bank).To(Equal(uint32(0)))
		Expect(write.Row).To(Equal(uint32(2)))
		Expect(write.Col).To(Equal(uint32(5)))
		Expect(master.strobes[0]).To(Equal(write.Cycle))
	})

	It("should not write the word of the terminating strobe", func() {
		sched.Storage().Write(0x42, 0x5555)

		master.write = true
		master.addr = 0x40
		master.data = []uint16{1, 2}
		runTransaction()

		Expect(sched.Storage().Read(0x40)).To(Equal(uint16(1)))
		Expect(sched.Storage().Read(0x41)).To(Equal(uint16(2)))
		Expect(sched.Storage().Read(0x42)).To(Equal(uint16(0x5555)))
		Expect(master.strobes).To(HaveLen(3))
	})

	It("should deliver exactly one strobe after a read terminate", func() {
		master.addr = 0
		master.want = 2
		runTransaction()

		domain.Run(20)

		Expect(master.got).To(HaveLen(2))
		Expect(master.strobes).To(HaveLen(3))
		Expect(sched.State()).To(Equal("Idle"))
	})

	It("should not hand reads of an ended transaction to the next one",
		func() {
			p := smallParams
			p.TCL = 3
			p.TRP = 2
			sched = MakeBuilder().
				WithParams(p).
				WithAdditionalHooks(cmdLog).
				Build("SDRAM")

			old := make([]uint16, 32)
			for i := range old {
				old[i] = uint16(0xA000 + i)
				sched.Storage().Write(uint32(i), old[i])
			}

			writer := newStreamMaster(sched)
			writer.write = true
			writer.addr = 0x80
			writer.data = []uint16{1, 2, 3, 4}

			reader := newStreamMaster(sched)
			reader.want = 15

			seq := newMasterSequence(reader, writer)
			domain = modeling.NewDomain("Board")
			domain.Register(seq, sched)

			Expect(domain.RunUntil(seq.done, 5000)).To(BeTrue())

			Expect(reader.got).To(Equal(old[:15]))
			Expect(writer.strobes).To(HaveLen(len(writer.data) + 1))

			for i, d := range writer.data {
				Expect(sched.Storage().Read(uint32(0x80 + i))).To(Equal(d))
			}

			Expect(sched.Counters().WordsWritten).
				To(Equal(uint64(len(writer.data))))
		})

	It("should refresh periodically and never inside a burst", func() {
		data := make([]uint16, 600)
		master.write = true
		master.data = data
		runTransaction()
		domain.Run(400)

		Expect(sched.Counters().Refreshes).To(BeNumerically(">=", 8))

		rowOpen := false
		lastRefresh := uint64(0)
		for _, c := range cmdLog.cmds {
			switch c.Kind {
			case CmdKindActivate:
				rowOpen = true
			case CmdKindPrecharge:
				rowOpen = false
			case CmdKindAutoRefresh:
				Expect(rowOpen).To(BeFalse())

				if lastRefresh > 0 {
					Expect(c.Cycle - lastRefresh).To(BeNumerically("<=",
						smallParams.TREFI+30))
				}

				lastRefresh = c.Cycle
			}
		}
	})

	It("should panic on invalid parameters", func() {
		p := smallParams
		p.TCL = 0
		Expect(func() { MakeBuilder().WithParams(p).Build("SDRAM") }).
			To(Panic())
	})
})

var _ = Describe("Params", func() {
	It("should accept the default part", func() {
		Expect(MT48LC16M16A2.Validate()).To(Succeed())
		Expect(MT48LC16M16A2.Capacity()).To(Equal(uint64(16 * 1024 * 1024)))
		Expect(MT48LC16M16A2.RefreshInterval()).To(Equal(uint64(778)))
	})

	DescribeTable("invalid parameters",
		func(mutate func(p *Params)) {
			p := smallParams
			mutate(&p)
			Expect(p.Validate()).To(MatchError(ErrInvalidParams))
		},
		Entry("no rows", func(p *Params) { p.RowBits = 0 }),
		Entry("too wide", func(p *Params) { p.RowBits = 30 }),
		Entry("no tRP", func(p *Params) { p.TRP = 0 }),
		Entry("no tWR", func(p *Params) { p.TWR = 0 }),
		Entry("negative reset", func(p *Params) { p.TReset = -1 }),
		Entry("refresh too frequent", func(p *Params) { p.TREFI = 4 }),
	)

	It("should split addresses", func() {
		col, row, bank := smallParams.Split(0b10_0011_0101)
		Expect(col).To(Equal(uint32(0b0101)))
		Expect(row).To(Equal(uint32(0b0011)))
		Expect(bank).To(Equal(uint32(0b10)))
	})
})

var _ = Describe("Storage", func() {
	It("should allocate pages lazily", func() {
		s := NewStorage(smallParams)
		Expect(s.Read(5)).To(BeZero())
		Expect(s.NumPages()).To(BeZero())

		s.Write(5, 9)
		Expect(s.Read(5)).To(Equal(uint16(9)))
		Expect(s.Read(5 + 1<<10)).To(Equal(uint16(9)))
		Expect(s.NumPages()).To(Equal(1))
	})
})
