// Package arbiter shares one SDRAM scheduler among several masters.
package arbiter

import (
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/sim/modeling"
	"github.com/sarchlab/usbsniff/sim/naming"
	"github.com/sarchlab/usbsniff/sim/signal"
)

// Downstream is the scheduler side of the arbiter.
type Downstream interface {
	Connect(r sdram.Requester)
	Response() sdram.Response
}

// Port is the link a master holds to the arbiter.
type Port struct {
	naming.NamedBase

	arbiter *Arbiter
	index   int
	req     sdram.Request
}

// Drive sets the request of the port for the current cycle.
func (p *Port) Drive(req sdram.Request) {
	p.req = req
}

// Response returns the scheduler response if the port holds the grant, and
// an idle response otherwise.
func (p *Port) Response() sdram.Response {
	if !p.Granted() {
		return sdram.Response{}
	}

	return p.arbiter.downstream.Response()
}

// Granted tells if the port holds the grant in the current cycle.
func (p *Port) Granted() bool {
	return p.arbiter.grant.Get() == p.index
}

// Arbiter grants the scheduler to one port at a time in round-robin order. A
// transaction starts with the acknowledge of the granted request and ends
// with the strobe that answers its terminate. The grant moves on only at
// that boundary, or when the granted port has no transaction and is not
// requesting.
type Arbiter struct {
	modeling.ComponentBase

	downstream Downstream
	ports      []*Port

	grant *signal.Reg[int]
	busy  *signal.Reg[bool]

	grants []*signal.SatCounter
}

// NewPort adds a port to the arbiter. Ports are searched in the order they
// are added.
func (a *Arbiter) NewPort(name string) *Port {
	p := &Port{
		NamedBase: naming.MakeNamedBase(name),
		arbiter:   a,
		index:     len(a.ports),
	}

	a.ports = append(a.ports, p)
	a.grants = append(a.grants, signal.NewSatCounter(counterBits))

	return p
}

// Ports returns the ports of the arbiter.
func (a *Arbiter) Ports() []*Port {
	return a.ports
}

// Request returns the request of the granted port.
func (a *Arbiter) Request() sdram.Request {
	if len(a.ports) == 0 {
		return sdram.Request{}
	}

	return a.ports[a.grant.Get()].req
}

// GrantCount returns the number of transactions the port has been granted.
func (a *Arbiter) GrantCount(p *Port) uint64 {
	return a.grants[p.index].Value()
}

// Busy tells if a transaction is in progress.
func (a *Arbiter) Busy() bool {
	return a.busy.Get()
}

// Update tracks the transaction of the granted port and re-arbitrates at
// transaction boundaries.
func (a *Arbiter) Update() {
	if len(a.ports) == 0 {
		return
	}

	var (
		g         = a.grant.Get()
		busy      = a.busy.Get()
		req       = a.ports[g].req
		rsp       = a.downstream.Response()
		busyStart = rsp.Ack
		busyStop  = rsp.Strobe && req.Terminate
	)

	if rsp.Ack {
		a.grants[g].Inc()
	}

	if busy {
		a.TraceState(a, a.ports[g].Name())
	} else {
		a.TraceState(a, "Idle")
	}

	a.busy.Set((busy || busyStart) && !busyStop)

	if busyStop || !(busy || busyStart || req.Strobe) {
		a.grant.Set(a.nextGrant(g))
	}
}

func (a *Arbiter) nextGrant(g int) int {
	n := len(a.ports)

	for i := 1; i <= n; i++ {
		c := (g + i) % n
		if a.ports[c].req.Strobe {
			return c
		}
	}

	return g
}
