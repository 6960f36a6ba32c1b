// Package record defines the symbols received from the bus and the packet
// records the capture ring produces from them.
package record

import "fmt"

// Kind tells what a symbol carries.
type Kind uint8

// Symbol kinds.
const (
	KindData Kind = iota
	KindStart
	KindEnd
	KindErr
	KindOvf
)

var kindNames = [...]string{"Data", "Start", "End", "Err", "Ovf"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Symbol is one item delivered by the link decoder: a payload byte, or a
// marker.
type Symbol struct {
	Kind Kind
	Data uint8
}

// Data makes a payload byte symbol.
func Data(b uint8) Symbol {
	return Symbol{Kind: KindData, Data: b}
}

// Marker makes a marker symbol.
func Marker(k Kind) Symbol {
	return Symbol{Kind: k}
}

// IsMarker tells if the symbol is not a payload byte.
func (s Symbol) IsMarker() bool {
	return s.Kind != KindData
}

func (s Symbol) String() string {
	if s.Kind == KindData {
		return fmt.Sprintf("%02x", s.Data)
	}

	return s.Kind.String()
}

// Packet wraps a payload in start and end markers.
func Packet(payload []byte) []Symbol {
	syms := make([]Symbol, 0, len(payload)+2)
	syms = append(syms, Marker(KindStart))

	for _, b := range payload {
		syms = append(syms, Data(b))
	}

	return append(syms, Marker(KindEnd))
}
