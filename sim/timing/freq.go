package timing

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(time * float64(f)))
}

// ThisTick returns the tick time at or right after now.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	mustBeValidTime(now)

	count := math.Ceil(math.Round(now*10*float64(f)) / 10)

	return count / float64(f)
}

// NextTick returns the first tick time strictly after now.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	mustBeValidTime(now)

	count := math.Floor(math.Round(now*10*float64(f)) / 10)

	return (count + 1) / float64(f)
}

// NCyclesLater returns the tick time n cycles after now.
func (f Freq) NCyclesLater(n int, now VTimeInSec) VTimeInSec {
	mustBeValidTime(now)

	return f.ThisTick(now + float64(n)/float64(f))
}

// TimeOfCycle returns the time of the given cycle.
func (f Freq) TimeOfCycle(cycle uint64) VTimeInSec {
	return float64(cycle) / float64(f)
}

func mustBeValidTime(t VTimeInSec) {
	if math.IsNaN(t) || t < 0 {
		log.Panic("invalid time")
	}
}
