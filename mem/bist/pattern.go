package bist

import "fmt"

// Pattern selects the data written by a test pass.
type Pattern uint8

// Patterns. The numbering is the command code of the status register.
const (
	PatternAlt0 Pattern = iota // 0000/FFFF
	PatternAlt1                // AAAA/5555
	PatternLFSR
	PatternAddr
	PatternZero
	PatternOnes
)

var patternNames = map[Pattern]string{
	PatternAlt0: "ALT0",
	PatternAlt1: "ALT1",
	PatternLFSR: "LFSR",
	PatternAddr: "ADDR",
	PatternZero: "ZERO",
	PatternOnes: "ONES",
}

// AllPatterns lists every pattern in command code order.
var AllPatterns = []Pattern{
	PatternAlt0, PatternAlt1, PatternLFSR, PatternAddr, PatternZero,
	PatternOnes,
}

func (p Pattern) String() string {
	if name, ok := patternNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

// ParsePattern finds a pattern by its name.
func ParsePattern(name string) (Pattern, error) {
	for p, n := range patternNames {
		if n == name {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown pattern %q", name)
}

const lfsrSeed = 0xACE1

// generator produces the words of one pass in address order.
type generator struct {
	pattern Pattern
	index   uint32
	lfsr    uint16
}

func (g *generator) reset(p Pattern) {
	g.pattern = p
	g.index = 0
	g.lfsr = lfsrSeed
}

func (g *generator) word() uint16 {
	var fill uint16
	if g.index&1 == 1 {
		fill = 0xFFFF
	}

	switch g.pattern {
	case PatternAlt0:
		return fill
	case PatternAlt1:
		return fill ^ 0xAAAA
	case PatternLFSR:
		return g.lfsr
	case PatternAddr:
		return uint16(g.index)
	case PatternOnes:
		return 0xFFFF
	default:
		return 0
	}
}

// advance moves on to the next address. The LFSR is a 16-bit Galois LFSR
// with taps 16, 14, 13 and 11.
func (g *generator) advance() {
	g.index++

	lsb := g.lfsr & 1
	g.lfsr >>= 1

	if lsb == 1 {
		g.lfsr ^= 0xB400
	}
}
