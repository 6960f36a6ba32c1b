package signal

// Stream is a valid/ready channel between a producer and a consumer. Each
// tick the producer drives Valid and Data, the consumer drives Ready, and the
// item is transferred when both are set. A producer keeps offering the same
// item until it is accepted.
type Stream[T any] struct {
	Valid bool
	Data  T
	Ready bool
}

// Offer drives the producer side.
func (s *Stream[T]) Offer(data T) {
	s.Valid = true
	s.Data = data
}

// Idle clears the producer side.
func (s *Stream[T]) Idle() {
	var zero T

	s.Valid = false
	s.Data = zero
}

// Fire tells if an item is transferred in this tick.
func (s *Stream[T]) Fire() bool {
	return s.Valid && s.Ready
}
