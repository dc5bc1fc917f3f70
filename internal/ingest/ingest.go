package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/hancock/internal/hancock"
)

// Progress receives per-file decode progress. Implementations must be safe
// for concurrent use; calls for a single path come from one goroutine.
type Progress interface {
	Start(path string, total uint32)
	Update(path string, done uint32)
	// Finish is always called once per path, even if the file never opened.
	Finish(path string, done uint32, err error)
}

// Handler is called for every decoded record. Returning an error fails the
// file. rec is owned by the handler after the call.
type Handler func(path string, md hancock.Metadata, rec *hancock.Record) error

// Config configures the batch runner.
type Config struct {
	Workers       int             // Concurrent files (default 2)
	ProgressEvery int             // Records between progress updates (default 10000)
	Open          hancock.Options // How files are opened and decoded
	Logger        zerolog.Logger  // Logger
	Progress      Progress        // Optional progress sink
	Handler       Handler         // Optional per-record callback
}

// Summary describes one fully decoded file.
type Summary struct {
	Metadata hancock.Metadata
	Records  uint32 // records decoded
	Hits     uint64 // total hits across all records
	MinShot  uint32
	MaxShot  uint32
	Bytes    int64 // file size (decompressed for .zst)
	Elapsed  time.Duration
}

// Result is the outcome for a single path.
type Result struct {
	Path    string
	Summary Summary
	Err     error
}

// Report aggregates the results of a run, in input order.
type Report struct {
	Results []Result
	Elapsed time.Duration
}

// Succeeded returns the number of files decoded without error.
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that ended in an error.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every per-file error, or returns nil if all files succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Runner decodes batches of Hancock files with bounded parallelism.
type Runner struct {
	cfg Config
	log zerolog.Logger
}

// NewRunner creates a runner, filling in defaults.
func NewRunner(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10000
	}
	// Progress is counted in uint32 records.
	if int64(cfg.ProgressEvery) > math.MaxUint32 {
		cfg.ProgressEvery = math.MaxUint32
	}
	if cfg.Progress == nil {
		cfg.Progress = nopProgress{}
	}
	return &Runner{
		cfg: cfg,
		log: cfg.Logger,
	}
}

// Run decodes every path and returns one result per path. A failing file
// never stops the others. Cancelling ctx stops in-flight files before their
// next record and fails files that have not started.
func (r *Runner) Run(ctx context.Context, paths []string) Report {
	start := time.Now()
	results := make([]Result, len(paths))

	r.log.Info().Int("files", len(paths)).Int("workers", r.cfg.Workers).Msg("decoding files")

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i, path := range paths {
		// Go blocks until a worker slot is free.
		g.Go(func() error {
			sum, err := r.processFile(ctx, path)
			results[i] = Result{Path: path, Summary: sum, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results, Elapsed: time.Since(start)}
	r.log.Info().
		Int("succeeded", report.Succeeded()).
		Int("failed", len(report.Failed())).
		Dur("elapsed", report.Elapsed).
		Msg("batch complete")
	return report
}

// processFile decodes a single file to completion.
func (r *Runner) processFile(ctx context.Context, path string) (sum Summary, err error) {
	var done uint32
	defer func() {
		if err != nil {
			r.log.Error().Err(err).Str("file", filepath.Base(path)).Uint32("records", done).Msg("decode failed")
		}
		r.cfg.Progress.Finish(path, done, err)
	}()

	if err := ctx.Err(); err != nil {
		return sum, err
	}

	startTime := time.Now()
	rd, err := hancock.Open(path, r.cfg.Open)
	if err != nil {
		return sum, err
	}
	defer rd.Close()

	md := rd.Metadata
	sum.Metadata = md
	sum.Bytes = md.BodySize + hancock.TrailerSize

	r.log.Debug().
		Str("path", path).
		Uint32("records", md.RecordCount).
		Float64("origin_x", md.Origin.X).
		Float64("origin_y", md.Origin.Y).
		Float64("origin_z", md.Origin.Z).
		Msg("starting file decode")
	r.cfg.Progress.Start(path, md.RecordCount)

	every := uint32(r.cfg.ProgressEvery)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("decode %s: %w", path, err)
		}

		if done == 0 || rec.ShotIndex < sum.MinShot {
			sum.MinShot = rec.ShotIndex
		}
		if rec.ShotIndex > sum.MaxShot {
			sum.MaxShot = rec.ShotIndex
		}
		sum.Hits += uint64(rec.HitCount)
		done++
		sum.Records = done

		if r.cfg.Handler != nil {
			if err := r.cfg.Handler(path, md, &rec); err != nil {
				return sum, fmt.Errorf("handle record %d of %s: %w", done-1, path, err)
			}
		}

		if done%every == 0 {
			r.cfg.Progress.Update(path, done)
		}
	}

	sum.Elapsed = time.Since(startTime)
	ev := r.log.Info().
		Str("file", filepath.Base(path)).
		Uint32("records", sum.Records).
		Uint64("hits", sum.Hits).
		Dur("elapsed", sum.Elapsed)
	if sum.Elapsed > 0 {
		ev = ev.Float64("records_per_sec", float64(sum.Records)/sum.Elapsed.Seconds())
	}
	ev.Msg("file decode complete")

	return sum, nil
}

type nopProgress struct{}

func (nopProgress) Start(string, uint32)         {}
func (nopProgress) Update(string, uint32)        {}
func (nopProgress) Finish(string, uint32, error) {}
