package bist

import (
	"errors"
	"fmt"

	"github.com/sarchlab/usbsniff/sim/modeling"
)

// ErrTimeout is returned when a pass does not complete in time.
var ErrTimeout = errors.New("self test timed out")

// RunPasses runs one pass per pattern on the domain the tester is registered
// in. Each pass may take at most limit cycles.
func RunPasses(
	d *modeling.Domain,
	t *Tester,
	limit uint64,
	patterns ...Pattern,
) ([]Result, error) {
	results := make([]Result, 0, len(patterns))

	for _, p := range patterns {
		t.Start(p)

		if !d.RunUntil(func() bool { return !t.Busy() }, limit) {
			return results, fmt.Errorf("pattern %s: %w", p, ErrTimeout)
		}

		results = append(results, t.Result())
	}

	return results, nil
}
