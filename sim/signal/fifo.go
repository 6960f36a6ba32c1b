package signal

import "log"

// FIFO is a bounded first-in first-out queue. It is owned by a single
// component, which pushes and pops during its update phase.
type FIFO[T any] struct {
	items []T
	head  int
	size  int
}

// NewFIFO creates a FIFO that can hold capacity items.
func NewFIFO[T any](capacity int) *FIFO[T] {
	if capacity <= 0 {
		log.Panicf("invalid fifo capacity %d", capacity)
	}

	return &FIFO[T]{items: make([]T, capacity)}
}

// Capacity returns the number of items the FIFO can hold.
func (f *FIFO[T]) Capacity() int {
	return len(f.items)
}

// Len returns the number of items in the FIFO.
func (f *FIFO[T]) Len() int {
	return f.size
}

// Empty tells if there is no item.
func (f *FIFO[T]) Empty() bool {
	return f.size == 0
}

// Full tells if no more item can be pushed.
func (f *FIFO[T]) Full() bool {
	return f.size == len(f.items)
}

// Push appends an item. Pushing into a full FIFO panics.
func (f *FIFO[T]) Push(v T) {
	if f.Full() {
		log.Panic("fifo overflow")
	}

	f.items[(f.head+f.size)%len(f.items)] = v
	f.size++
}

// Peek returns the oldest item. Peeking an empty FIFO panics.
func (f *FIFO[T]) Peek() T {
	if f.Empty() {
		log.Panic("fifo underflow")
	}

	return f.items[f.head]
}

// Pop removes and returns the oldest item.
func (f *FIFO[T]) Pop() T {
	v := f.Peek()

	var zero T
	f.items[f.head] = zero
	f.head = (f.head + 1) % len(f.items)
	f.size--

	return v
}

// Clear removes all the items.
func (f *FIFO[T]) Clear() {
	var zero T
	for i := range f.items {
		f.items[i] = zero
	}

	f.head = 0
	f.size = 0
}
