// Package id generates identifiers for events and recording sessions.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator can generate IDs.
type Generator interface {
	Generate() string
}

var (
	generatorLock sync.Mutex
	generator     Generator = &sequentialGenerator{}
)

// Generate returns a new ID from the current generator.
func Generate() string {
	generatorLock.Lock()
	g := generator
	generatorLock.Unlock()

	return g.Generate()
}

// UseSequential makes Generate return deterministic, increasing IDs. This is
// the default.
func UseSequential() {
	generatorLock.Lock()
	generator = &sequentialGenerator{}
	generatorLock.Unlock()
}

// UseGlobal makes Generate return globally unique IDs that stay unique across
// runs, as needed when several sessions are recorded into the same database.
func UseGlobal() {
	generatorLock.Lock()
	generator = globalGenerator{}
	generatorLock.Unlock()
}

// NewSessionID returns a globally unique ID regardless of the current
// generator.
func NewSessionID() string {
	return xid.New().String()
}

type sequentialGenerator struct {
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.nextID, 1), 10)
}

type globalGenerator struct{}

func (globalGenerator) Generate() string {
	return xid.New().String()
}
