package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/hancock/internal/config"
	"github.com/freeeve/hancock/internal/export"
	"github.com/freeeve/hancock/internal/ingest"
	"github.com/freeeve/hancock/internal/logx"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", os.Getenv("HANCOCK_CONFIG"), "YAML config file")
		outputDir  = flag.String("output-dir", ".", "Directory for CSV output")
		compress   = flag.Bool("zstd", false, "Compress output with zstd (.csv.zst)")
		absolute   = flag.Bool("absolute", false, "Add the file origin offset to x/y/z")
		workers    = flag.Int("workers", 0, "Files decoded in parallel (0 = config value)")
		byteOrder  = flag.String("byte-order", "", "Field byte order: native, little or big (empty = config value)")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: export-csv [options] FILE...")
		flag.PrintDefaults()
	}
	flag.Parse()

	files := uniq(flag.Args())
	if len(files) == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	config.FromEnv(&cfg)
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *byteOrder != "" {
		cfg.ByteOrder = *byteOrder
	}
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

	exp, err := export.New(export.Options{Dir: *outputDir, Compress: *compress, Absolute: *absolute})
	if err != nil {
		logger.Error().Err(err).Str("dir", *outputDir).Msg("create output dir")
		return 1
	}
	exp.Reserve(files)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report := ingest.NewRunner(ingest.Config{
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Open:          opts,
		Logger:        logger,
		Handler:       exp.Handle,
	}).Run(ctx, files)

	code := 0
	if err := exp.Close(report.Results); err != nil {
		logger.Error().Err(err).Msg("close outputs")
		code = 1
	}

	outputs := exp.Outputs()
	for _, res := range report.Results {
		if res.Err != nil {
			continue
		}
		fmt.Printf("%s -> %s (%d records, %d hits)\n",
			res.Path, outputs[res.Path], res.Summary.Records, res.Summary.Hits)
	}

	if failed := report.Failed(); len(failed) > 0 {
		logger.Error().Int("failed", len(failed)).Msg("export incomplete")
		code = 1
	}
	return code
}

// uniq drops repeated paths, keeping the first occurrence. Each input owns
// one output file.
func uniq(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
