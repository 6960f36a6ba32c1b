package signal

// Edge detects transitions of a boolean level sampled once per tick.
type Edge struct {
	prev *Reg[bool]
}

// NewEdge creates an edge detector whose level starts low.
func NewEdge(bank *Bank) *Edge {
	return &Edge{prev: NewReg(bank, false)}
}

// Sample records the level for this tick and reports whether it rose or fell
// compared to the previous tick.
func (e *Edge) Sample(level bool) (rose, fell bool) {
	prev := e.prev.Get()
	e.prev.Set(level)

	return level && !prev, !level && prev
}

// Level returns the level sampled in the previous tick.
func (e *Edge) Level() bool {
	return e.prev.Get()
}
