package hostlink

import "fmt"

// Byte is one byte on a byte stream. Last marks the final byte of a burst or
// of a record.
type Byte struct {
	Data uint8
	Last bool
}

func (b Byte) String() string {
	if b.Last {
		return fmt.Sprintf("%02x$", b.Data)
	}

	return fmt.Sprintf("%02x", b.Data)
}

// Sentinel leads every burst the ring reader sends to the host.
const Sentinel = 0xD0
