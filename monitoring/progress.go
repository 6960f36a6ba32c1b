package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks the progress of a long running task, such as the
// cycles of a bounded session or the passes of a memory test.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementFinished adds a certain amount to the finished elements.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// SetFinished sets the number of finished elements, never beyond the total.
func (b *ProgressBar) SetFinished(n uint64) {
	b.Lock()
	defer b.Unlock()

	if b.Total > 0 && n > b.Total {
		n = b.Total
	}

	b.Finished = n
}

// Fraction returns the finished share of the total.
func (b *ProgressBar) Fraction() float64 {
	b.Lock()
	defer b.Unlock()

	if b.Total == 0 {
		return 0
	}

	return float64(b.Finished) / float64(b.Total)
}
