// Package config loads decoder and batch settings from YAML and HANCOCK_*
// environment variables.
package config

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/hancock/internal/hancock"
)

// Config holds settings shared by the command line tools.
type Config struct {
	Workers       int    `yaml:"workers"`        // concurrent files
	ProgressEvery int    `yaml:"progress_every"` // records between progress updates
	ByteOrder     string `yaml:"byte_order"`     // native, little or big
	InMemory      bool   `yaml:"in_memory"`      // load whole files instead of streaming
	BufferSize    int    `yaml:"buffer_size"`    // streaming read buffer in bytes
	LogLevel      string `yaml:"log_level"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Workers:       2,
		ProgressEvery: 10000,
		ByteOrder:     "native",
		BufferSize:    hancock.DefaultBufferSize,
		LogLevel:      "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ProgressEvery < 1 || int64(c.ProgressEvery) > math.MaxUint32 {
		return fmt.Errorf("progress_every must be between 1 and %d, got %d", uint32(math.MaxUint32), c.ProgressEvery)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative, got %d", c.BufferSize)
	}
	if _, err := hancock.ParseByteOrder(c.ByteOrder); err != nil {
		return err
	}
	return nil
}

// Order returns the configured byte order.
func (c Config) Order() (binary.ByteOrder, error) {
	return hancock.ParseByteOrder(c.ByteOrder)
}

// OpenOptions converts the config into hancock.Options.
func (c Config) OpenOptions() (hancock.Options, error) {
	order, err := c.Order()
	if err != nil {
		return hancock.Options{}, err
	}
	return hancock.Options{
		BufferSize: c.BufferSize,
		InMemory:   c.InMemory,
		ByteOrder:  order,
	}, nil
}
