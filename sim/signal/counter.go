package signal

import "log"

// SatCounter is a counter that stops at its maximum value instead of wrapping.
type SatCounter struct {
	value uint64
	max   uint64
}

// NewSatCounter creates a counter that saturates at 2^bits-1.
func NewSatCounter(bits uint) *SatCounter {
	if bits == 0 || bits > 64 {
		log.Panicf("invalid counter width %d", bits)
	}

	limit := ^uint64(0)
	if bits < 64 {
		limit = (uint64(1) << bits) - 1
	}

	return &SatCounter{max: limit}
}

// Inc adds one unless the counter is saturated.
func (c *SatCounter) Inc() {
	c.Add(1)
}

// IncIf adds one if cond holds.
func (c *SatCounter) IncIf(cond bool) {
	if cond {
		c.Add(1)
	}
}

// Add adds n, stopping at the maximum.
func (c *SatCounter) Add(n uint64) {
	if c.max-c.value < n {
		c.value = c.max
		return
	}

	c.value += n
}

// Value returns the current count.
func (c *SatCounter) Value() uint64 {
	return c.value
}

// Saturated tells if the counter reached its maximum.
func (c *SatCounter) Saturated() bool {
	return c.value == c.max
}

// Reset clears the counter.
func (c *SatCounter) Reset() {
	c.value = 0
}
