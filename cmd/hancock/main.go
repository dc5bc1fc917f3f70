package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/freeeve/hancock/internal/config"
	"github.com/freeeve/hancock/internal/ingest"
	"github.com/freeeve/hancock/internal/logx"
	"github.com/freeeve/hancock/internal/progress"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaults := config.Default()
	var (
		configPath    = flag.String("config", os.Getenv("HANCOCK_CONFIG"), "YAML config file")
		workers       = flag.Int("workers", defaults.Workers, "Files decoded in parallel")
		progressEvery = flag.Int("progress-every", defaults.ProgressEvery, "Records between progress updates")
		byteOrder     = flag.String("byte-order", defaults.ByteOrder, "Field byte order: native, little or big")
		inMemory      = flag.Bool("in-memory", defaults.InMemory, "Load each file fully before decoding")
		bufferSize    = flag.Int("buffer-size", defaults.BufferSize, "Streaming read buffer in bytes")
		logLevel      = flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
		noProgress    = flag.Bool("no-progress", false, "Disable progress output")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: hancock [options] FILE...")
		flag.PrintDefaults()
	}
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		return 2
	}

	// Precedence: defaults < config file < HANCOCK_* env < explicit flags.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	config.FromEnv(&cfg)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "progress-every":
			cfg.ProgressEvery = *progressEvery
		case "byte-order":
			cfg.ByteOrder = *byteOrder
		case "in-memory":
			cfg.InMemory = *inMemory
		case "buffer-size":
			cfg.BufferSize = *bufferSize
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 2
	}
	opts, err := cfg.OpenOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 2
	}

	logger := logx.New(os.Stderr, cfg.LogLevel)
	logger.Info().
		Int("files", len(files)).
		Int("workers", cfg.Workers).
		Str("byte_order", cfg.ByteOrder).
		Bool("in_memory", cfg.InMemory).
		Msg("starting decode")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := ingest.Config{
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Open:          opts,
		Logger:        logger,
	}
	var term *progress.Terminal
	if !*noProgress {
		term = progress.NewTerminal(os.Stdout, logger)
		runCfg.Progress = term
	}

	report := ingest.NewRunner(runCfg).Run(ctx, files)
	if term != nil {
		term.Wait()
	}

	for _, res := range report.Results {
		name := filepath.Base(res.Path)
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", name, res.Err)
			continue
		}
		s := res.Summary
		fmt.Printf("%s: done! %d records, %d hits, shots %d-%d, origin (%.3f, %.3f, %.3f)\n",
			name, s.Records, s.Hits, s.MinShot, s.MaxShot,
			s.Metadata.Origin.X, s.Metadata.Origin.Y, s.Metadata.Origin.Z)
	}

	if failed := report.Failed(); len(failed) > 0 {
		logger.Error().
			Int("failed", len(failed)).
			Int("succeeded", report.Succeeded()).
			Msg("some files failed")
		return 1
	}
	return 0
}
