package hostlink

import (
	"errors"
	"fmt"
)

// ErrFraming is returned when the byte stream from the ring reader does not
// consist of sentinel-led bursts.
var ErrFraming = errors.New("framing error")

// Deframer checks the burst framing of the ring reader output and strips it.
// Every burst is the Sentinel followed by an even number of payload bytes,
// the final one marked Last.
type Deframer struct {
	burstBytes int

	inBurst bool
	n       int
	bursts  uint64
}

// NewDeframer creates a deframer. If burstWords is not zero, bursts longer
// than burstWords words are rejected.
func NewDeframer(burstWords int) *Deframer {
	return &Deframer{burstBytes: 2 * burstWords}
}

// Bursts returns the number of complete bursts seen.
func (d *Deframer) Bursts() uint64 {
	return d.bursts
}

// InBurst tells if a burst has started and not yet ended.
func (d *Deframer) InBurst() bool {
	return d.inBurst
}

// Deframe strips the framing from bs and returns the payload bytes. Bursts
// may span calls. Bytes outside a burst are skipped until the next sentinel,
// so one framing error does not lose the bursts that follow it. The first
// error seen is returned together with all the payload.
func (d *Deframer) Deframe(bs []Byte) ([]byte, error) {
	var (
		out      = make([]byte, 0, len(bs))
		firstErr error
		skipping bool
	)

	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, b := range bs {
		if !d.inBurst {
			if b.Data != Sentinel || b.Last {
				if !skipping {
					fail(fmt.Errorf("%w: byte %d is %v, want sentinel",
						ErrFraming, i, b))
				}

				skipping = true

				continue
			}

			skipping = false
			d.inBurst = true
			d.n = 0

			continue
		}

		out = append(out, b.Data)
		d.n++

		if d.burstBytes > 0 && d.n > d.burstBytes {
			d.inBurst = false
			skipping = true
			fail(fmt.Errorf("%w: burst longer than %d bytes",
				ErrFraming, d.burstBytes))

			continue
		}

		if !b.Last {
			continue
		}

		d.inBurst = false

		if d.n%2 != 0 {
			fail(fmt.Errorf("%w: odd burst of %d bytes", ErrFraming, d.n))
			continue
		}

		d.bursts++
	}

	return out, firstErr
}
