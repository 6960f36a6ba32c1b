// Package traffic provides symbol sources that stand in for the bus front
// end.
package traffic

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sarchlab/usbsniff/capture/record"
)

// ErrInvalidConfig is returned for generator settings that cannot be
// produced.
var ErrInvalidConfig = errors.New("invalid traffic config")

// Config controls the traffic a Generator produces.
type Config struct {
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// Packets is the number of packets to produce. Zero means no limit.
	Packets int `mapstructure:"packets" yaml:"packets"`

	MinSize int `mapstructure:"min_size" yaml:"min_size"`
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MinGap and MaxGap bound the idle cycles after every packet.
	MinGap int `mapstructure:"min_gap" yaml:"min_gap"`
	MaxGap int `mapstructure:"max_gap" yaml:"max_gap"`

	// ErrorRate is the share of packets that end with an error marker.
	ErrorRate float64 `mapstructure:"error_rate" yaml:"error_rate"`

	// PIDs are the first bytes packets start with, picked at random.
	PIDs []byte `mapstructure:"pids" yaml:"pids"`
}

// DefaultConfig returns a mix of token, data and handshake packets.
func DefaultConfig() Config {
	return Config{
		Seed:    1,
		Packets: 1000,
		MinSize: 1,
		MaxSize: 64,
		MinGap:  4,
		MaxGap:  32,
		PIDs:    []byte{0x69, 0xE1, 0xA5, 0xC3, 0x4B, 0xD2},
	}
}

// Validate checks that the settings are consistent.
func (c Config) Validate() error {
	switch {
	case c.Packets < 0:
		return fmt.Errorf("%w: negative packet count", ErrInvalidConfig)
	case c.MinSize < 0 || c.MinSize > c.MaxSize || c.MaxSize > 1<<16-1:
		return fmt.Errorf("%w: size range [%d, %d]",
			ErrInvalidConfig, c.MinSize, c.MaxSize)
	case c.MinGap < 0 || c.MinGap > c.MaxGap:
		return fmt.Errorf("%w: gap range [%d, %d]",
			ErrInvalidConfig, c.MinGap, c.MaxGap)
	case c.ErrorRate < 0 || c.ErrorRate > 1:
		return fmt.Errorf("%w: error rate %v", ErrInvalidConfig, c.ErrorRate)
	}

	return nil
}

// Sent describes a packet that a Generator produced.
type Sent struct {
	Payload []byte
	Err     bool
}

// Generator produces random packets, one symbol per cycle, separated by idle
// cycles. The same seed always produces the same traffic.
type Generator struct {
	cfg Config
	rng *rand.Rand

	queue   []record.Symbol
	gapLeft int
	count   int
	sent    []Sent
}

// NewGenerator creates a generator. It returns an error if the config is
// invalid.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Sent returns the packets produced so far. The history is only kept when
// the packet count is limited.
func (g *Generator) Sent() []Sent {
	return g.sent
}

// Count returns the number of packets started.
func (g *Generator) Count() int {
	return g.count
}

// Exhausted tells if every packet has been delivered.
func (g *Generator) Exhausted() bool {
	return g.cfg.Packets > 0 && g.count >= g.cfg.Packets && len(g.queue) == 0
}

// Next returns the symbol of the current cycle.
func (g *Generator) Next() (record.Symbol, bool) {
	if len(g.queue) == 0 {
		if g.gapLeft > 0 {
			g.gapLeft--
			return record.Symbol{}, false
		}

		if g.cfg.Packets > 0 && g.count >= g.cfg.Packets {
			return record.Symbol{}, false
		}

		g.generate()
	}

	sym := g.queue[0]
	g.queue = g.queue[1:]

	return sym, true
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) generate() {
	payload := make([]byte, g.between(g.cfg.MinSize, g.cfg.MaxSize))
	g.rng.Read(payload)

	if len(payload) > 0 && len(g.cfg.PIDs) > 0 {
		payload[0] = g.cfg.PIDs[g.rng.Intn(len(g.cfg.PIDs))]
	}

	isErr := g.rng.Float64() < g.cfg.ErrorRate

	g.queue = record.Packet(payload)
	if isErr {
		g.queue[len(g.queue)-1] = record.Marker(record.KindErr)
	}

	g.gapLeft = g.between(g.cfg.MinGap, g.cfg.MaxGap)
	g.count++

	if g.cfg.Packets > 0 {
		g.sent = append(g.sent, Sent{Payload: payload, Err: isErr})
	}
}
