package hostlink

// Decoder turns the bytes a Sink received into packets.
type Decoder struct {
	Deframer *Deframer
	Parser   *Parser
}

// NewDecoder creates a decoder for bursts of at most burstWords words. A
// zero burstWords accepts bursts of any length.
func NewDecoder(burstWords int) *Decoder {
	return &Decoder{
		Deframer: NewDeframer(burstWords),
		Parser:   NewParser(),
	}
}

// Decode deframes bs and parses the payload. The packets completed before
// an error are returned with it.
func (d *Decoder) Decode(bs []Byte) ([]Packet, error) {
	payload, ferr := d.Deframer.Deframe(bs)

	pkts, perr := d.Parser.Feed(payload)
	if ferr != nil {
		return pkts, ferr
	}

	return pkts, perr
}
