package hostlink

import (
	"fmt"

	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/sim/timing"
)

// Packet is a decoded record with its timestamp extended to 64 bits.
type Packet struct {
	record.Record

	// Ticks counts capture clock cycles from the start of the session. It
	// never decreases, unlike the 24-bit timestamp in the header.
	Ticks uint64
}

// Time returns the capture time of the packet in seconds for a capture
// clock of frequency f.
func (p Packet) Time(f timing.Freq) timing.VTimeInSec {
	return f.TimeOfCycle(p.Ticks)
}

// Parser reassembles records from the payload of the host bursts. Records
// may span any number of calls to Feed.
type Parser struct {
	buf []byte

	epoch   uint64
	lastTs  uint32
	seen    bool
	packets uint64
	skipped uint64
}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Packets returns the number of records decoded.
func (p *Parser) Packets() uint64 {
	return p.packets
}

// Skipped returns the number of pad bytes and bad bytes dropped between
// records.
func (p *Parser) Skipped() uint64 {
	return p.skipped
}

// Pending returns the number of bytes of an incomplete record.
func (p *Parser) Pending() int {
	return len(p.buf)
}

// Feed adds payload bytes and returns the records completed by them. A byte
// that starts neither a record nor padding is dropped and reported with an
// error wrapping record.ErrBadMagic. Feeding can continue after the error.
func (p *Parser) Feed(data []byte) ([]Packet, error) {
	p.buf = append(p.buf, data...)

	var pkts []Packet

	for len(p.buf) > 0 {
		switch p.buf[0] {
		case record.PadByte:
			p.drop()
			continue
		case record.Magic:
		default:
			bad := p.buf[0]
			p.drop()

			return pkts, fmt.Errorf("%w: %#02x after %d records",
				record.ErrBadMagic, bad, p.packets)
		}

		if len(p.buf) < record.HeaderSize {
			break
		}

		h, err := record.DecodeHeader(p.buf)
		if err != nil {
			return pkts, err
		}

		n := record.HeaderSize + int(h.Size)
		if len(p.buf) < n {
			break
		}

		pkts = append(pkts, Packet{
			Record: record.Record{
				Header:  h,
				Payload: append([]byte(nil), p.buf[record.HeaderSize:n]...),
			},
			Ticks: p.unwrap(h.Timestamp),
		})
		p.packets++
		p.buf = p.buf[n:]
	}

	return pkts, nil
}

func (p *Parser) drop() {
	p.buf = p.buf[1:]
	p.skipped++
}

// unwrap extends a 24-bit timestamp, assuming that consecutive records are
// less than one timestamp period apart.
func (p *Parser) unwrap(ts uint32) uint64 {
	if p.seen && ts < p.lastTs {
		p.epoch += 1 << record.TimestampBits
	}

	p.seen = true
	p.lastTs = ts

	return p.epoch + uint64(ts)
}
