// Package sdram models a single-channel SDRAM controller that streams
// full-page bursts to one master at a time.
package sdram

import (
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/signal"
)

type state int

const (
	stateReset state = iota
	stateInitIdle
	stateInitPrecharge
	stateInitRefresh1
	stateInitRefresh2
	stateInitMode
	stateIdle
	stateRefresh
	stateWriteActivate
	stateWrite
	stateWriting
	stateReadActivate
	stateRead
	stateReading
	statePrechargeWR
	statePrecharge
)

var stateNames = [...]string{
	"Reset", "InitIdle", "InitPrecharge", "InitRefresh1", "InitRefresh2",
	"InitMode", "Idle", "Refresh", "WriteActivate", "Write", "Writing",
	"ReadActivate", "Read", "Reading", "PrechargeWR", "Precharge",
}

func (s state) String() string {
	return stateNames[s]
}

// readSlot is a word in flight from a READ. It belongs to the transaction
// that issued it.
type readSlot struct {
	valid bool
	txn   uint64
	data  uint16
}

// Counters are the event counters of a scheduler.
type Counters struct {
	Acks          uint64
	Activates     uint64
	WordsWritten  uint64
	WordsRead     uint64
	Refreshes     uint64
	LateRefreshes uint64
	Reissues      uint64
}

// Scheduler turns the streaming host interface into SDRAM commands. It
// activates a row for every transaction, streams words until the master
// terminates, continues on the next row when a burst reaches the end of a
// page, and refreshes the device between bursts.
type Scheduler struct {
	modeling.ComponentBase

	params   Params
	storage  *Storage
	upstream Requester

	req Request
	rsp Response

	state      state
	stateCycle int
	cycle      uint64
	txn        uint64

	refreshCtr   uint64
	active       bool
	rowAddr      uint32
	write        bool
	col          uint32
	needsReissue bool
	killRead     bool

	returns  []readSlot
	returnAt int

	acks, activates, written, read     *signal.SatCounter
	refreshes, lateRefreshes, reissues *signal.SatCounter
}

// Connect makes the scheduler serve the requester.
func (s *Scheduler) Connect(r Requester) {
	s.upstream = r
}

// Params returns the device parameters.
func (s *Scheduler) Params() Params {
	return s.params
}

// Storage returns the storage of the device.
func (s *Scheduler) Storage() *Storage {
	return s.storage
}

// Initialized tells if the power-up sequence has completed.
func (s *Scheduler) Initialized() bool {
	return s.state >= stateIdle
}

// State returns the name of the current state.
func (s *Scheduler) State() string {
	return s.state.String()
}

// Response returns the response of the current cycle.
func (s *Scheduler) Response() Response {
	return s.rsp
}

// Counters returns a snapshot of the event counters.
func (s *Scheduler) Counters() Counters {
	return Counters{
		Acks:          s.acks.Value(),
		Activates:     s.activates.Value(),
		WordsWritten:  s.written.Value(),
		WordsRead:     s.read.Value(),
		Refreshes:     s.refreshes.Value(),
		LateRefreshes: s.lateRefreshes.Value(),
		Reissues:      s.reissues.Value(),
	}
}

func (s *Scheduler) refreshDue() bool {
	return s.refreshCtr >= s.params.RefreshInterval()
}

// returning returns the word arriving this cycle if it belongs to the
// current transaction. Words of an ended transaction never reach the next
// one.
func (s *Scheduler) returning() readSlot {
	ret := s.returns[s.returnAt]
	if ret.txn != s.txn {
		return readSlot{}
	}

	return ret
}

// Respond computes the acknowledge and data strobe of this cycle.
func (s *Scheduler) Respond() {
	s.req = Request{}
	if s.upstream != nil {
		s.req = s.upstream.Request()
	}

	s.rsp = Response{}

	switch s.state {
	case stateIdle:
		s.rsp.Ack = s.req.Strobe && !s.refreshDue() && !s.needsReissue
	case stateWrite, stateWriting:
		s.rsp.Strobe = s.active
	}

	if ret := s.returning(); ret.valid && !s.killRead && s.active {
		s.rsp.Strobe = true
		s.rsp.Data = ret.data
	}
}

// Update advances the state machine by one cycle.
func (s *Scheduler) Update() {
	var (
		writeCycle = s.state == stateWrite || s.state == stateWriting
		readCycle  = s.state == stateRead || s.state == stateReading
		returning  = s.returning().valid
		lastCol    = s.col == s.params.colMask()
		term       = s.req.Terminate || !s.active
		issued     readSlot
		cmd        = CmdKindNOP
		next       = s.state
	)

	s.TraceState(s, s.state.String())

	// The strobe that answers a terminate ends the transaction. Anything
	// still in flight or pending for it is dropped.
	if s.rsp.Strobe && s.req.Terminate {
		s.active = false
		s.needsReissue = false
	}

	switch s.state {
	case stateReset:
		cmd = CmdKindInhibit
		next = s.after(s.params.TReset, stateInitIdle)
	case stateInitIdle:
		next = s.after(initIdleCycles, stateInitPrecharge)
	case stateInitPrecharge:
		cmd = s.onEntry(CmdKindPrecharge)
		next = s.after(s.params.TRP, stateInitRefresh1)
	case stateInitRefresh1:
		cmd = s.onEntry(CmdKindAutoRefresh)
		next = s.after(s.params.TRFC, stateInitRefresh2)
	case stateInitRefresh2:
		cmd = s.onEntry(CmdKindAutoRefresh)
		next = s.after(s.params.TRFC, stateInitMode)
	case stateInitMode:
		cmd = s.onEntry(CmdKindLoadMode)
		next = s.after(tMRD, stateIdle)
	case stateIdle:
		next = s.idle()
	case stateRefresh:
		cmd = s.onEntry(CmdKindAutoRefresh)
		next = s.after(s.params.TRFC, stateIdle)
	case stateWriteActivate:
		cmd = s.onEntry(CmdKindActivate)
		next = s.after(s.params.TRCD, stateWrite)
	case stateReadActivate:
		cmd = s.onEntry(CmdKindActivate)
		next = s.after(s.params.TRCD, stateRead)
	case stateWrite, stateWriting:
		if s.state == stateWrite {
			cmd = CmdKindWrite
		}

		next = s.writeData(term, lastCol)
	case stateRead, stateReading:
		if s.state == stateRead {
			cmd = CmdKindRead
		}

		if s.active {
			issued = readSlot{
				valid: true,
				txn:   s.txn,
				data:  s.storage.Read(s.addr()),
			}
			s.read.Inc()
		}

		next = stateReading
		if term || lastCol || s.killRead {
			next = statePrecharge
		}
	case statePrechargeWR:
		cmd = s.onEntry(CmdKindBurstTerminate)
		next = s.after(s.params.TWR-1, statePrecharge)
	case statePrecharge:
		cmd = s.onEntry(CmdKindPrecharge)
		next = s.after(s.params.TRP, stateIdle)
	}

	cmdAddr := s.addr()

	s.updateRefreshCounter(cmd)
	s.updateColumn(writeCycle, readCycle, lastCol, term)

	switch {
	case returning && term:
		s.killRead = true
	case !returning:
		s.killRead = false
	}

	s.returns[s.returnAt] = issued
	s.returnAt = (s.returnAt + 1) % len(s.returns)

	s.reportCommand(cmd, cmdAddr)
	s.enter(next)
	s.cycle++
}

func (s *Scheduler) idle() state {
	switch {
	case s.refreshDue():
		if s.refreshCtr > s.params.RefreshInterval() {
			s.lateRefreshes.Inc()
		}

		return stateRefresh
	case s.needsReissue:
		s.rowAddr = ((s.rowAddr >> s.params.ColBits) + 1) << s.params.ColBits
		s.rowAddr &= s.params.addrMask()
		s.col = 0
		s.needsReissue = false
		s.reissues.Inc()
	case s.rsp.Ack:
		s.rowAddr = s.req.Addr & s.params.addrMask() &^ s.params.colMask()
		s.col = s.req.Addr & s.params.colMask()
		s.write = s.req.Write
		s.active = true
		s.txn++
		s.acks.Inc()
	default:
		return stateIdle
	}

	if s.write {
		return stateWriteActivate
	}

	return stateReadActivate
}

func (s *Scheduler) writeData(term, lastCol bool) state {
	if term {
		return statePrecharge
	}

	s.storage.Write(s.addr(), s.req.Data)
	s.written.Inc()

	if !lastCol {
		return stateWriting
	}

	if s.params.TWR > 1 {
		return statePrechargeWR
	}

	return statePrecharge
}

func (s *Scheduler) updateRefreshCounter(cmd CmdKind) {
	if cmd != CmdKindAutoRefresh {
		s.refreshCtr++
		return
	}

	s.refreshes.Inc()

	interval := s.params.RefreshInterval()
	if s.refreshCtr > interval {
		s.refreshCtr -= interval
		return
	}

	s.refreshCtr = 0
}

func (s *Scheduler) updateColumn(writeCycle, readCycle, lastCol, term bool) {
	if !writeCycle && !readCycle {
		return
	}

	if lastCol && !term && !s.killRead {
		s.needsReissue = true
	}

	s.col = (s.col + 1) & s.params.colMask()
}

func (s *Scheduler) addr() uint32 {
	return s.rowAddr | s.col
}

// after moves to target once the current state has lasted n cycles.
func (s *Scheduler) after(n int, target state) state {
	if s.stateCycle+1 >= n {
		return target
	}

	return s.state
}

func (s *Scheduler) onEntry(cmd CmdKind) CmdKind {
	if s.stateCycle == 0 {
		return cmd
	}

	return CmdKindNOP
}

func (s *Scheduler) enter(next state) {
	if next == s.state {
		s.stateCycle++
		return
	}

	s.state = next
	s.stateCycle = 0
}

func (s *Scheduler) reportCommand(kind CmdKind, addr uint32) {
	if kind == CmdKindNOP || kind == CmdKindInhibit {
		return
	}

	if kind == CmdKindActivate {
		s.activates.Inc()
	}

	if s.NumHooks() == 0 {
		return
	}

	col, row, bank := s.params.Split(addr)
	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    HookPosCommand,
		Item: Command{
			Cycle: s.cycle,
			Kind:  kind,
			Bank:  bank,
			Row:   row,
			Col:   col,
		},
	})
}
