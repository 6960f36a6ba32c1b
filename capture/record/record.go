package record

import (
	"errors"
	"fmt"
	"strings"
)

// Header flags.
const (
	FlagErr   uint16 = 0x01
	FlagOvf   uint16 = 0x02
	FlagClip  uint16 = 0x04
	FlagTrunc uint16 = 0x08
	FlagFirst uint16 = 0x10
	FlagLast  uint16 = 0x20
)

// Record layout constants.
const (
	Magic             = 0xA0
	HeaderSize        = 8
	DefaultMaxPayload = 800

	// PadByte completes a trailing odd byte when the bulk ring is flushed.
	// It can never be mistaken for a record since it is not Magic.
	PadByte = 0x00

	// TimestampBits is the width of the stored timestamp.
	TimestampBits = 24
)

// ErrBadMagic is returned when a header does not start with Magic.
var ErrBadMagic = errors.New("bad record magic")

// ErrShortHeader is returned when fewer than HeaderSize bytes are given.
var ErrShortHeader = errors.New("short record header")

// Header is the fixed-size prefix of every record.
type Header struct {
	Flags     uint16
	Size      uint16
	Timestamp uint32
}

// Encode returns the eight header bytes: magic, flags low, flags high, size
// low, size high and the three timestamp bytes, low first.
func (h Header) Encode() [HeaderSize]byte {
	return [HeaderSize]byte{
		Magic,
		byte(h.Flags),
		byte(h.Flags >> 8),
		byte(h.Size),
		byte(h.Size >> 8),
		byte(h.Timestamp),
		byte(h.Timestamp >> 8),
		byte(h.Timestamp >> 16),
	}
}

// DecodeHeader parses a header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(buf))
	}

	if buf[0] != Magic {
		return Header{}, fmt.Errorf("%w: %#02x", ErrBadMagic, buf[0])
	}

	return Header{
		Flags:     uint16(buf[1]) | uint16(buf[2])<<8,
		Size:      uint16(buf[3]) | uint16(buf[4])<<8,
		Timestamp: uint32(buf[5]) | uint32(buf[6])<<8 | uint32(buf[7])<<16,
	}, nil
}

// Has tells if all the given flags are set.
func (h Header) Has(flags uint16) bool {
	return h.Flags&flags == flags
}

// FlagString lists the names of the flags that are set.
func FlagString(flags uint16) string {
	names := []string{}

	for _, f := range []struct {
		bit  uint16
		name string
	}{
		{FlagErr, "ERR"},
		{FlagOvf, "OVF"},
		{FlagClip, "CLIP"},
		{FlagTrunc, "TRUNC"},
		{FlagFirst, "FIRST"},
		{FlagLast, "LAST"},
	} {
		if flags&f.bit != 0 {
			names = append(names, f.name)
		}
	}

	return strings.Join(names, "|")
}

// Record is a header and the stored payload.
type Record struct {
	Header
	Payload []byte
}

// Encode returns the header followed by the payload.
func (r Record) Encode() []byte {
	h := r.Header.Encode()
	return append(h[:], r.Payload...)
}

// Descriptor locates a finished record in the capture ring: Count bytes
// starting at Start, header included.
type Descriptor struct {
	Start uint32
	Count uint32
}
