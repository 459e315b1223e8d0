// Package config loads mutprox settings from a YAML file, MUTPROX_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/TrevorS/mutprox"
)

// Default values.
const (
	DefaultPolicy      = "gaussi"
	DefaultEstimation  = "auto"
	DefaultCompression = "none"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

var (
	// ErrInvalidLogLevel is returned for unknown log levels.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned for log formats other than text and json.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrNegativeValue is returned when a count is negative.
	ErrNegativeValue = errors.New("value must be >= 0")
)

// Config is the top-level configuration struct for mutprox.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Policy      string    `mapstructure:"policy"`
	Similarity  bool      `mapstructure:"similarity"`
	Workers     int       `mapstructure:"workers"`
	Estimation  string    `mapstructure:"estimation"`
	SampleSize  int       `mapstructure:"sample_size"`
	EnforceDisk bool      `mapstructure:"enforce_disk"`
	ChunkRows   int       `mapstructure:"chunk_rows"`
	TmpDir      string    `mapstructure:"tmp_dir"`
	SaveBatches bool      `mapstructure:"save_batches"`
	Resume      bool      `mapstructure:"resume"`
	PersistDir  string    `mapstructure:"persist_dir"`
	Compression string    `mapstructure:"compression"`
	MemoryLimit string    `mapstructure:"memory_limit"`
	Seed        uint64    `mapstructure:"seed"`
	Log         LogConfig `mapstructure:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks the values that viper cannot type-check.
func (c *Config) Validate() error {
	if _, err := mutprox.ParsePolicy(c.Policy); err != nil {
		return err
	}
	for name, v := range map[string]int{"workers": c.Workers, "sample_size": c.SampleSize, "chunk_rows": c.ChunkRows} {
		if v < 0 {
			return fmt.Errorf("%s: %w, got %d", name, ErrNegativeValue, v)
		}
	}
	if _, err := c.memoryLimit(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	return l, nil
}

func (c *Config) memoryLimit() (uint64, error) {
	if strings.TrimSpace(c.MemoryLimit) == "" {
		return 0, nil
	}
	b, err := humanize.ParseBytes(c.MemoryLimit)
	if err != nil {
		return 0, fmt.Errorf("memory_limit: %w", err)
	}
	return b, nil
}

// Engine converts c into an engine configuration. A memory limit replaces
// the system memory probe.
func (c *Config) Engine() (mutprox.Config, error) {
	policy, err := mutprox.ParsePolicy(c.Policy)
	if err != nil {
		return mutprox.Config{}, err
	}
	cfg := mutprox.DefaultConfig()
	cfg.Policy = policy
	cfg.Similarity = c.Similarity
	cfg.Workers = c.Workers
	cfg.Estimation = mutprox.Estimation(c.Estimation)
	cfg.SampleSize = c.SampleSize
	cfg.EnforceDisk = c.EnforceDisk
	cfg.ChunkRows = c.ChunkRows
	cfg.TmpDir = c.TmpDir
	cfg.SaveBatches = c.SaveBatches
	cfg.ResumeBatches = c.Resume
	cfg.PersistDir = c.PersistDir
	cfg.Compression = mutprox.Compression(c.Compression)
	cfg.Seed = c.Seed

	limit, err := c.memoryLimit()
	if err != nil {
		return mutprox.Config{}, err
	}
	if limit > 0 {
		cfg.MemoryProbe = mutprox.StaticMemory(limit)
	}
	return cfg, nil
}
