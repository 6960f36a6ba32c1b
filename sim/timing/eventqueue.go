package timing

import "container/heap"

// EventQueue holds events that are waiting to be handled, ordered by time.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// heapQueue is an EventQueue backed by a binary heap. Events scheduled at
// the same time are handled in the order they were pushed.
type heapQueue struct {
	items eventHeap
	seq   uint64
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() EventQueue {
	q := new(heapQueue)
	heap.Init(&q.items)

	return q
}

// Push adds an event to the event queue.
func (q *heapQueue) Push(evt Event) {
	q.seq++
	heap.Push(&q.items, queuedEvent{evt: evt, seq: q.seq})
}

// Pop returns the next earliest event.
func (q *heapQueue) Pop() Event {
	return heap.Pop(&q.items).(queuedEvent).evt
}

// Len returns the number of events in the queue.
func (q *heapQueue) Len() int {
	return q.items.Len()
}

// Peek returns the event in front of the queue without removing it from the
// queue.
func (q *heapQueue) Peek() Event {
	return q.items[0].evt
}

type queuedEvent struct {
	evt Event
	seq uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	if h[i].evt.Time() == h[j].evt.Time() {
		return h[i].seq < h[j].seq
	}

	return h[i].evt.Time() < h[j].evt.Time()
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]

	return item
}
