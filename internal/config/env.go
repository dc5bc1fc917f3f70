package config

import (
	"os"
	"strconv"
)

// FromEnv overlays HANCOCK_* environment variables onto cfg.
// Unparseable values are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("HANCOCK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("HANCOCK_PROGRESS_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProgressEvery = n
		}
	}
	if v := os.Getenv("HANCOCK_BYTE_ORDER"); v != "" {
		cfg.ByteOrder = v
	}
	if v := os.Getenv("HANCOCK_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.InMemory = b
		}
	}
	if v := os.Getenv("HANCOCK_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BufferSize = n
		}
	}
	if v := os.Getenv("HANCOCK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
