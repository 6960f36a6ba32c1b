package sdram

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is wrapped by every error returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid sdram parameters")

// Params describes the geometry and timing of an SDRAM device. All timing
// values are in cycles of the controller clock.
type Params struct {
	RowBits  uint
	ColBits  uint
	BankBits uint

	TReset int
	TCL    int
	TRP    int
	TRFC   int
	TRCD   int
	TREFI  int
	TWR    int
}

// MT48LC16M16A2 is the 256 Mbit, x16 part at 60 MHz.
var MT48LC16M16A2 = Params{
	RowBits:  13,
	ColBits:  9,
	BankBits: 2,

	TReset: 200,
	TCL:    3,
	TRP:    4,
	TRFC:   12,
	TRCD:   4,
	TREFI:  780,
	TWR:    2,
}

const (
	initIdleCycles = 5
	tMRD           = 3

	// refreshLeeway is how many cycles before tREFI a refresh becomes due, so
	// that a refresh that has to wait for the end of a burst is not too late.
	refreshLeeway = 2
)

// Validate reports whether the parameters describe a device the scheduler
// can drive.
func (p Params) Validate() error {
	if p.RowBits == 0 || p.ColBits == 0 || p.BankBits == 0 {
		return fmt.Errorf("%w: row, column and bank bits must be positive",
			ErrInvalidParams)
	}

	if p.AddrBits() > 32 {
		return fmt.Errorf("%w: %d address bits exceed 32",
			ErrInvalidParams, p.AddrBits())
	}

	timings := []struct {
		name  string
		value int
	}{
		{"tCL", p.TCL}, {"tRP", p.TRP}, {"tRFC", p.TRFC},
		{"tRCD", p.TRCD}, {"tWR", p.TWR},
	}
	for _, t := range timings {
		if t.value < 1 {
			return fmt.Errorf("%w: %s must be at least 1, got %d",
				ErrInvalidParams, t.name, t.value)
		}
	}

	if p.TReset < 0 {
		return fmt.Errorf("%w: tRESET must not be negative", ErrInvalidParams)
	}

	if p.TREFI-refreshLeeway <= p.TRFC {
		return fmt.Errorf("%w: tREFI %d leaves no time between refreshes",
			ErrInvalidParams, p.TREFI)
	}

	return nil
}

// AddrBits returns the number of bits of a word address.
func (p Params) AddrBits() uint {
	return p.RowBits + p.ColBits + p.BankBits
}

// Capacity returns the number of words in the device.
func (p Params) Capacity() uint64 {
	return uint64(1) << p.AddrBits()
}

// RefreshInterval returns the number of cycles after which a refresh becomes
// due.
func (p Params) RefreshInterval() uint64 {
	return uint64(p.TREFI - refreshLeeway)
}

func (p Params) addrMask() uint32 {
	return uint32(p.Capacity() - 1)
}

func (p Params) colMask() uint32 {
	return uint32(1)<<p.ColBits - 1
}

// Split returns the column, row and bank of a word address. The column is
// made of the lowest bits, the bank of the highest.
func (p Params) Split(addr uint32) (col, row, bank uint32) {
	col = addr & p.colMask()
	row = (addr >> p.ColBits) & (uint32(1)<<p.RowBits - 1)
	bank = (addr >> (p.ColBits + p.RowBits)) & (uint32(1)<<p.BankBits - 1)

	return col, row, bank
}
