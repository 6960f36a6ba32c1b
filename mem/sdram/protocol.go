package sdram

// Request is what a master drives toward the scheduler in one cycle.
//
// A transaction starts with Strobe held until the cycle the scheduler
// acknowledges it; Addr and Write are sampled in that cycle. From then on the
// scheduler strobes one word per data cycle. For writes, Data is written on
// every strobe unless Terminate is set in the same cycle. For reads, the
// response carries the word. The master raises Terminate to end the
// transaction and keeps it raised until the next strobe, which is the last
// one of the transaction; the word of that strobe is not written, and for
// reads the master may drop it.
type Request struct {
	Strobe    bool
	Write     bool
	Addr      uint32
	Terminate bool
	Data      uint16
}

// Response is what the scheduler drives back in one cycle.
type Response struct {
	Ack    bool
	Strobe bool
	Data   uint16
}

// Requester supplies the request the scheduler serves in the current cycle.
type Requester interface {
	Request() Request
}

// Link is what a master holds to talk to a scheduler, either directly or
// through an arbiter.
type Link interface {
	// Drive sets the request for the current cycle. It must be called in the
	// drive phase of every cycle.
	Drive(req Request)

	// Response returns the response of the current cycle. It is valid in the
	// update phase.
	Response() Response
}

// DirectLink connects a single master to a scheduler.
type DirectLink struct {
	req   Request
	sched *Scheduler
}

// NewDirectLink connects a new link to the scheduler. The scheduler serves
// the link from then on.
func NewDirectLink(s *Scheduler) *DirectLink {
	l := &DirectLink{sched: s}
	s.Connect(l)

	return l
}

// Drive sets the request for the current cycle.
func (l *DirectLink) Drive(req Request) {
	l.req = req
}

// Request returns the request for the current cycle.
func (l *DirectLink) Request() Request {
	return l.req
}

// Response returns the response of the current cycle.
func (l *DirectLink) Response() Response {
	return l.sched.Response()
}
