// Package log builds the logger used by the command line tools.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where log entries go and how they look.
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Format string     `mapstructure:"format" yaml:"format"`
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig enables a rotated log file next to the console output.
type FileConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig logs informational messages as text to the console.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		File: FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate checks the level and the format.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return err
	}

	if _, err := formatter(c.Format); err != nil {
		return err
	}

	return nil
}

// New creates a logger that writes to console and, if a path is set, to a
// rotated file.
func New(cfg Config, console io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	f, err := formatter(cfg.Format)
	if err != nil {
		return nil, err
	}

	if console == nil {
		console = os.Stderr
	}

	out := console
	if cfg.File.Path != "" {
		out = io.MultiWriter(console, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(f)
	logger.SetOutput(out)

	return logger, nil
}

func formatter(name string) (logrus.Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", name)
	}
}
