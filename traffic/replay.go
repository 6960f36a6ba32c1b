package traffic

import "github.com/sarchlab/usbsniff/capture/record"

// Replay delivers a fixed list of symbols.
type Replay struct {
	syms    []record.Symbol
	spacing int
	cycle   int
}

// NewReplay creates a source that delivers syms on consecutive cycles.
func NewReplay(syms ...record.Symbol) *Replay {
	return &Replay{syms: syms, spacing: 1}
}

// NewPacketReplay creates a source that delivers each payload as a packet.
func NewPacketReplay(payloads ...[]byte) *Replay {
	var syms []record.Symbol
	for _, p := range payloads {
		syms = append(syms, record.Packet(p)...)
	}

	return NewReplay(syms...)
}

// SetSpacing makes the source deliver a symbol every n cycles.
func (r *Replay) SetSpacing(n int) {
	if n < 1 {
		n = 1
	}

	r.spacing = n
}

// Exhausted tells if every symbol has been delivered.
func (r *Replay) Exhausted() bool {
	return len(r.syms) == 0
}

// Next returns the symbol of the current cycle.
func (r *Replay) Next() (record.Symbol, bool) {
	due := r.cycle%r.spacing == 0
	r.cycle++

	if !due || r.Exhausted() {
		return record.Symbol{}, false
	}

	sym := r.syms[0]
	r.syms = r.syms[1:]

	return sym, true
}
