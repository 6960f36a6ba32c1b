package timing

import "sync"

// TickEvent asks a handler to advance by one cycle.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: MakeEventBase(time, handler)}
}

// A Ticker is an object that updates states with ticks. Tick returns false
// when the ticker has nothing left to do, so that no further tick needs to be
// scheduled.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Freq    Freq
	Engine  Engine

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Freq = freq
	ticker.nextTickTime = -1

	return ticker
}

// TickNow schedule a Tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.scheduleAt(t.Freq.ThisTick(t.Now()))
}

// TickLater will schedule a tick event at the cycle after the now time.
func (t *TickScheduler) TickLater() {
	t.scheduleAt(t.Freq.NextTick(t.Now()))
}

func (t *TickScheduler) scheduleAt(time VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = time
	t.Engine.Schedule(MakeTickEvent(t.handler, time))
}

// Now returns the current time of the engine.
func (t *TickScheduler) Now() VTimeInSec {
	return t.Engine.Now()
}

// CurrentCycle returns the cycle number of the current time.
func (t *TickScheduler) CurrentCycle() uint64 {
	return t.Freq.Cycle(t.Now())
}
