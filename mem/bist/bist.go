// Package bist implements a built-in self test that fills a window of SDRAM
// with a pattern and reads it back.
package bist

import (
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/modeling"
)

type state int

const (
	stateIdle state = iota
	stateIssueWrite
	stateWrite
	stateWriteTerm
	stateIssueRead
	stateRead
	stateReadTerm
)

var stateNames = [...]string{
	"Idle", "IssueWrite", "Write", "WriteTerm", "IssueRead", "Read",
	"ReadTerm",
}

func (s state) String() string {
	return stateNames[s]
}

// Status register bits.
const (
	StatusTrigger = 1 << 7
	StatusBusy    = 1 << 6
	StatusOK      = 1 << 5
)

// Result is the outcome of one test pass.
type Result struct {
	Pattern   Pattern
	OK        bool
	Errors    uint64
	FirstFail uint32
	Cycles    uint64
}

// Tester writes a window with a pattern in one burst, then reads it back in
// one burst and compares every word.
type Tester struct {
	modeling.ComponentBase

	link sdram.Link
	base uint32
	size uint32

	trigger bool
	state   state
	gen     generator
	term    bool

	result Result
	start  uint64
	cycle  uint64
}

// Start requests a test pass with the pattern. The pass starts in the next
// cycle if the tester is idle.
func (t *Tester) Start(p Pattern) {
	t.trigger = true
	t.result.Pattern = p
}

// Busy tells if a pass has been requested or is running.
func (t *Tester) Busy() bool {
	return t.trigger || t.state != stateIdle
}

// Result returns the outcome of the last pass.
func (t *Tester) Result() Result {
	return t.result
}

// Status encodes the tester as its status register.
func (t *Tester) Status() uint8 {
	s := uint8(t.result.Pattern) & 0x0F

	if t.trigger {
		s |= StatusTrigger
	}

	if t.state != stateIdle {
		s |= StatusBusy
	}

	if t.result.OK {
		s |= StatusOK
	}

	return s
}

// Drive presents the request of the current state.
func (t *Tester) Drive() {
	switch t.state {
	case stateIssueWrite:
		t.link.Drive(sdram.Request{Strobe: true, Write: true, Addr: t.base})
	case stateWrite:
		t.link.Drive(sdram.Request{Write: true, Data: t.gen.word()})
	case stateWriteTerm:
		t.link.Drive(sdram.Request{Write: true, Terminate: true})
	case stateIssueRead:
		t.link.Drive(sdram.Request{Strobe: true, Addr: t.base})
	case stateReadTerm:
		t.link.Drive(sdram.Request{Terminate: true})
	default:
		t.link.Drive(sdram.Request{})
	}
}

// Update advances the test.
func (t *Tester) Update() {
	rsp := t.link.Response()
	last := t.gen.index == t.size-1

	t.TraceState(t, t.state.String())

	switch t.state {
	case stateIdle:
		if t.trigger {
			t.trigger = false
			t.result = Result{Pattern: t.result.Pattern, OK: true}
			t.start = t.cycle
			t.gen.reset(t.result.Pattern)
			t.state = stateIssueWrite
		}
	case stateIssueWrite:
		if rsp.Ack {
			t.state = stateWrite
		}
	case stateWrite:
		if rsp.Strobe {
			if last {
				t.state = stateWriteTerm
			}

			t.gen.advance()
		}
	case stateWriteTerm:
		if rsp.Strobe {
			t.gen.reset(t.result.Pattern)
			t.state = stateIssueRead
		}
	case stateIssueRead:
		if rsp.Ack {
			t.state = stateRead
		}
	case stateRead:
		if rsp.Strobe {
			t.check(rsp.Data)

			if last {
				t.state = stateReadTerm
			}

			t.gen.advance()
		}
	case stateReadTerm:
		if rsp.Strobe {
			t.result.Cycles = t.cycle - t.start + 1
			t.state = stateIdle
		}
	}

	t.cycle++
}

func (t *Tester) check(data uint16) {
	if data == t.gen.word() {
		return
	}

	if t.result.OK {
		t.result.FirstFail = t.base + t.gen.index
	}

	t.result.OK = false
	t.result.Errors++
}
