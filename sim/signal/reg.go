// Package signal provides the building blocks that lock-step components use
// to talk to each other: double-buffered registers, valid/ready streams,
// saturating counters, edge detectors and small FIFOs.
package signal

// A Committer publishes staged values at the end of a tick.
type Committer interface {
	Commit()
}

// Reg is a double-buffered register. Readers always observe the value
// committed at the end of the previous tick, no matter in which order the
// components of a tick are evaluated.
type Reg[T any] struct {
	cur  T
	next T
}

// NewReg creates a register holding the initial value and adds it to the
// bank.
func NewReg[T any](bank *Bank, init T) *Reg[T] {
	r := &Reg[T]{cur: init, next: init}

	if bank != nil {
		bank.Add(r)
	}

	return r
}

// Get returns the committed value.
func (r *Reg[T]) Get() T {
	return r.cur
}

// Next returns the value that will be committed.
func (r *Reg[T]) Next() T {
	return r.next
}

// Set stages a value for the next tick.
func (r *Reg[T]) Set(v T) {
	r.next = v
}

// Commit publishes the staged value.
func (r *Reg[T]) Commit() {
	r.cur = r.next
}

// Force overwrites both the committed and the staged value. It is meant for
// reset and test setup only.
func (r *Reg[T]) Force(v T) {
	r.cur = v
	r.next = v
}

// A Bank groups the registers of a component so that they can be committed
// together.
type Bank struct {
	regs []Committer
}

// Add appends a register to the bank.
func (b *Bank) Add(c Committer) {
	b.regs = append(b.regs, c)
}

// Commit commits all the registers in the bank.
func (b *Bank) Commit() {
	for _, r := range b.regs {
		r.Commit()
	}
}

// Len returns the number of registers in the bank.
func (b *Bank) Len() int {
	return len(b.regs)
}
