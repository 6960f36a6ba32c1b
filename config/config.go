// Package config loads the settings of a capture session from YAML files,
// .env files and USBSNIFF_ environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/sarchlab/usbsniff/capture/capturering"
	"github.com/sarchlab/usbsniff/capture/filter"
	"github.com/sarchlab/usbsniff/capture/record"
	"github.com/sarchlab/usbsniff/internal/log"
	"github.com/sarchlab/usbsniff/mem/bist"
	"github.com/sarchlab/usbsniff/mem/sdram"
	"github.com/sarchlab/usbsniff/ring/bulkring"
	"github.com/sarchlab/usbsniff/sim/timing"
	"github.com/sarchlab/usbsniff/traffic"
)

// ErrInvalidConfig is wrapped by every error returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete configuration of the tool.
type Config struct {
	Log     log.Config     `mapstructure:"log" yaml:"log"`
	Clock   ClockConfig    `mapstructure:"clock" yaml:"clock"`
	SDRAM   SDRAMConfig    `mapstructure:"sdram" yaml:"sdram"`
	Ring    RingConfig     `mapstructure:"ring" yaml:"ring"`
	Capture CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Host    HostConfig     `mapstructure:"host" yaml:"host"`
	Session SessionConfig  `mapstructure:"session" yaml:"session"`
	Traffic traffic.Config `mapstructure:"traffic" yaml:"traffic"`
	MemTest MemTestConfig  `mapstructure:"memtest" yaml:"memtest"`
	Output  OutputConfig   `mapstructure:"output" yaml:"output"`
	Monitor MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
}

// ClockConfig sets the capture clock. Freq accepts strings like "60MHz".
type ClockConfig struct {
	Freq timing.Freq `mapstructure:"freq" yaml:"freq"`
}

// SDRAMConfig describes the memory device.
type SDRAMConfig struct {
	RowBits  uint `mapstructure:"row_bits" yaml:"row_bits"`
	ColBits  uint `mapstructure:"col_bits" yaml:"col_bits"`
	BankBits uint `mapstructure:"bank_bits" yaml:"bank_bits"`

	TReset int `mapstructure:"t_reset" yaml:"t_reset"`
	TCL    int `mapstructure:"t_cl" yaml:"t_cl"`
	TRP    int `mapstructure:"t_rp" yaml:"t_rp"`
	TRFC   int `mapstructure:"t_rfc" yaml:"t_rfc"`
	TRCD   int `mapstructure:"t_rcd" yaml:"t_rcd"`
	TREFI  int `mapstructure:"t_refi" yaml:"t_refi"`
	TWR    int `mapstructure:"t_wr" yaml:"t_wr"`
}

// RingConfig places the bulk ring in memory. A zero EndByte extends the
// ring to the end of the device.
type RingConfig struct {
	BaseByte    uint64 `mapstructure:"base_byte" yaml:"base_byte"`
	EndByte     uint64 `mapstructure:"end_byte" yaml:"end_byte"`
	MaxBurst    int    `mapstructure:"max_burst" yaml:"max_burst"`
	WriterFIFO  int    `mapstructure:"writer_fifo" yaml:"writer_fifo"`
	ReaderBurst int    `mapstructure:"reader_burst" yaml:"reader_burst"`
	PadByte     uint8  `mapstructure:"pad_byte" yaml:"pad_byte"`
}

// CaptureConfig sizes the capture tier and selects its filters.
type CaptureConfig struct {
	Depth        int     `mapstructure:"depth" yaml:"depth"`
	MaxPayload   int     `mapstructure:"max_payload" yaml:"max_payload"`
	IngressDepth int     `mapstructure:"ingress_depth" yaml:"ingress_depth"`
	DropPIDs     []uint8 `mapstructure:"drop_pids" yaml:"drop_pids"`
	ClipLength   int     `mapstructure:"clip_length" yaml:"clip_length"`
}

// HostConfig paces the host link. A zero Burst never stalls.
type HostConfig struct {
	Burst int `mapstructure:"burst" yaml:"burst"`
	Stall int `mapstructure:"stall" yaml:"stall"`
}

// SessionConfig bounds a capture session. With Engine set, the session is
// ticked by an event engine instead of a plain loop, and the events are
// logged at trace level.
type SessionConfig struct {
	MaxCycles   uint64 `mapstructure:"max_cycles" yaml:"max_cycles"`
	DrainCycles uint64 `mapstructure:"drain_cycles" yaml:"drain_cycles"`
	Engine      bool   `mapstructure:"engine" yaml:"engine"`
}

// MemTestConfig selects the memory self test passes.
type MemTestConfig struct {
	Base     uint32   `mapstructure:"base" yaml:"base"`
	Size     uint32   `mapstructure:"size" yaml:"size"`
	Limit    uint64   `mapstructure:"limit" yaml:"limit"`
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
}

// OutputConfig names the files a session writes. Empty paths disable the
// output.
type OutputConfig struct {
	Pcap          string `mapstructure:"pcap" yaml:"pcap"`
	Database      string `mapstructure:"database" yaml:"database"`
	SnapshotEvery uint64 `mapstructure:"snapshot_every" yaml:"snapshot_every"`
}

// MonitorConfig controls the web monitor.
type MonitorConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	Port        int  `mapstructure:"port" yaml:"port"`
	OpenBrowser bool `mapstructure:"open_browser" yaml:"open_browser"`
}

// Default returns the configuration of the reference board.
func Default() Config {
	p := sdram.MT48LC16M16A2

	return Config{
		Log:   log.DefaultConfig(),
		Clock: ClockConfig{Freq: 60 * timing.MHz},
		SDRAM: SDRAMConfig{
			RowBits: p.RowBits, ColBits: p.ColBits, BankBits: p.BankBits,
			TReset: p.TReset, TCL: p.TCL, TRP: p.TRP, TRFC: p.TRFC,
			TRCD: p.TRCD, TREFI: p.TREFI, TWR: p.TWR,
		},
		Ring: RingConfig{
			MaxBurst:    256,
			WriterFIFO:  32,
			ReaderBurst: 32,
			PadByte:     record.PadByte,
		},
		Capture: CaptureConfig{
			Depth:        2048,
			MaxPayload:   record.DefaultMaxPayload,
			IngressDepth: 1024,
		},
		Session: SessionConfig{
			MaxCycles:   100_000_000,
			DrainCycles: 1000,
		},
		Traffic: traffic.DefaultConfig(),
		MemTest: MemTestConfig{
			Size:  3000,
			Limit: 1_000_000,
		},
		Output: OutputConfig{
			SnapshotEvery: 100_000,
		},
		Monitor: MonitorConfig{
			Port: 0,
		},
	}
}

// Params returns the SDRAM parameters.
func (c Config) Params() sdram.Params {
	s := c.SDRAM

	return sdram.Params{
		RowBits: s.RowBits, ColBits: s.ColBits, BankBits: s.BankBits,
		TReset: s.TReset, TCL: s.TCL, TRP: s.TRP, TRFC: s.TRFC,
		TRCD: s.TRCD, TREFI: s.TREFI, TWR: s.TWR,
	}
}

// Window returns the window of the bulk ring.
func (c Config) Window() (bulkring.Window, error) {
	end := c.Ring.EndByte
	if end == 0 {
		end = 2 * c.Params().Capacity()
	}

	return bulkring.NewWindow(c.Ring.BaseByte, end)
}

// Filters returns the capture filters.
func (c Config) Filters() []capturering.Filter {
	var fs []capturering.Filter

	if len(c.Capture.DropPIDs) > 0 {
		fs = append(fs, filter.NewPIDFilter(c.Capture.DropPIDs...))
	}

	if c.Capture.ClipLength > 0 {
		fs = append(fs, filter.NewLengthFilter(c.Capture.ClipLength))
	}

	return fs
}

// Patterns returns the self test patterns. No names means all of them.
func (c Config) Patterns() ([]bist.Pattern, error) {
	if len(c.MemTest.Patterns) == 0 {
		return bist.AllPatterns, nil
	}

	ps := make([]bist.Pattern, 0, len(c.MemTest.Patterns))
	for _, name := range c.MemTest.Patterns {
		p, err := bist.ParsePattern(name)
		if err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	return ps, nil
}

// Validate checks every section. The error names the first bad section.
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}

	if c.Clock.Freq <= 0 {
		return fmt.Errorf("%w: clock frequency %v", ErrInvalidConfig,
			c.Clock.Freq)
	}

	p := c.Params()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: sdram: %w", ErrInvalidConfig, err)
	}

	w, err := c.Window()
	if err != nil {
		return fmt.Errorf("%w: ring: %w", ErrInvalidConfig, err)
	}

	if uint64(w.End) > p.Capacity() {
		return fmt.Errorf("%w: ring ends beyond the %d-word device",
			ErrInvalidConfig, p.Capacity())
	}

	if c.Ring.MaxBurst <= 0 || c.Ring.WriterFIFO <= 0 ||
		c.Ring.ReaderBurst <= 0 {
		return fmt.Errorf("%w: ring bursts and FIFOs must be positive",
			ErrInvalidConfig)
	}

	err = capturering.MakeBuilder().
		WithDepth(c.Capture.Depth).
		WithMaxPayload(c.Capture.MaxPayload).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: capture: %w", ErrInvalidConfig, err)
	}

	if c.Capture.IngressDepth <= 0 {
		return fmt.Errorf("%w: capture: ingress depth %d",
			ErrInvalidConfig, c.Capture.IngressDepth)
	}

	if c.Host.Burst < 0 || c.Host.Stall < 0 {
		return fmt.Errorf("%w: host pacing", ErrInvalidConfig)
	}

	if err := c.Traffic.Validate(); err != nil {
		return fmt.Errorf("%w: traffic: %w", ErrInvalidConfig, err)
	}

	if _, err := c.Patterns(); err != nil {
		return fmt.Errorf("%w: memtest: %w", ErrInvalidConfig, err)
	}

	if c.MemTest.Size == 0 ||
		uint64(c.MemTest.Base)+uint64(c.MemTest.Size) > p.Capacity() {
		return fmt.Errorf("%w: memtest window", ErrInvalidConfig)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("%w: monitor port %d", ErrInvalidConfig,
			c.Monitor.Port)
	}

	return nil
}
