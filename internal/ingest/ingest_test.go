package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/freeeve/hancock/internal/hancock"
	"github.com/freeeve/hancock/internal/hancock/hancocktest"
	"github.com/freeeve/hancock/internal/ingest"
)

// recorder is a Progress that records every call.
type recorder struct {
	mu        sync.Mutex
	starts    map[string]uint32
	updates   map[string][]uint32
	finishes  map[string]uint32
	errs      map[string]error
	active    int
	maxActive int
}

func newRecorder() *recorder {
	return &recorder{
		starts:   make(map[string]uint32),
		updates:  make(map[string][]uint32),
		finishes: make(map[string]uint32),
		errs:     make(map[string]error),
	}
}

func (r *recorder) Start(path string, total uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts[path] = total
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
}

func (r *recorder) Update(path string, done uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[path] = append(r.updates[path], done)
}

func (r *recorder) Finish(path string, done uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.starts[path]; ok {
		r.active--
	}
	r.finishes[path] = done
	r.errs[path] = err
}

func writeFiles(t *testing.T, dir string, counts []int) []string {
	t.Helper()
	paths := make([]string, len(counts))
	for i, n := range counts {
		data := hancocktest.Encode(nil, hancock.Point64{X: float64(i)}, hancocktest.Records(n, 5))
		paths[i] = hancocktest.WriteFile(t, dir, fmt.Sprintf("file%02d.bin", i), data)
	}
	return paths
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	counts := []int{120, 0, 75, 300, 9, 41}
	paths := writeFiles(t, dir, counts)

	// Seed one truncated file and one missing path.
	truncated := hancocktest.WriteFile(t, dir, "truncated.bin", []byte{1, 2, 3})
	missing := filepath.Join(dir, "missing.bin")
	all := append([]string{truncated}, paths...)
	all = append(all, missing)

	rec := newRecorder()
	runner := ingest.NewRunner(ingest.Config{
		Workers:       3,
		ProgressEvery: 25,
		Logger:        zerolog.Nop(),
		Progress:      rec,
	})
	report := runner.Run(context.Background(), all)

	if len(report.Results) != len(all) {
		t.Fatalf("got %d results, want %d", len(report.Results), len(all))
	}
	for i, res := range report.Results {
		if res.Path != all[i] {
			t.Errorf("result %d path = %s, want %s", i, res.Path, all[i])
		}
	}

	if !errors.Is(report.Results[0].Err, hancock.ErrTruncatedFile) {
		t.Errorf("truncated file err = %v, want ErrTruncatedFile", report.Results[0].Err)
	}
	if report.Results[len(all)-1].Err == nil {
		t.Error("missing file succeeded")
	}
	for i, n := range counts {
		res := report.Results[i+1]
		if res.Err != nil {
			t.Errorf("%s: %v", res.Path, res.Err)
			continue
		}
		if res.Summary.Records != uint32(n) || res.Summary.Metadata.RecordCount != uint32(n) {
			t.Errorf("%s: decoded %d of %d records, want %d",
				res.Path, res.Summary.Records, res.Summary.Metadata.RecordCount, n)
		}
		if res.Summary.Metadata.Origin.X != float64(i) {
			t.Errorf("%s: origin X = %v, want %d", res.Path, res.Summary.Metadata.Origin.X, i)
		}
	}

	if report.Succeeded() != len(counts) {
		t.Errorf("Succeeded = %d, want %d", report.Succeeded(), len(counts))
	}
	if len(report.Failed()) != 2 {
		t.Errorf("Failed = %d, want 2", len(report.Failed()))
	}
	if err := report.Err(); !errors.Is(err, hancock.ErrTruncatedFile) {
		t.Errorf("Report.Err = %v, want to wrap ErrTruncatedFile", err)
	}

	if rec.maxActive > 3 {
		t.Errorf("max concurrent files = %d, want <= 3", rec.maxActive)
	}
	if len(rec.finishes) != len(all) {
		t.Errorf("Finish called for %d paths, want %d", len(rec.finishes), len(all))
	}
}

func TestRunProgressCadence(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, []int{110, 100})

	rec := newRecorder()
	runner := ingest.NewRunner(ingest.Config{
		Workers:       1,
		ProgressEvery: 50,
		Logger:        zerolog.Nop(),
		Progress:      rec,
	})
	report := runner.Run(context.Background(), paths)
	if err := report.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if diff := cmp.Diff([]uint32{50, 100}, rec.updates[paths[0]]); diff != "" {
		t.Errorf("updates for 110 records (-want +got):\n%s", diff)
	}
	// The final completion fires even off a multiple of ProgressEvery.
	if rec.finishes[paths[0]] != 110 {
		t.Errorf("finish for 110 records = %d", rec.finishes[paths[0]])
	}
	if rec.finishes[paths[1]] != 100 {
		t.Errorf("finish for 100 records = %d", rec.finishes[paths[1]])
	}
	if rec.starts[paths[0]] != 110 {
		t.Errorf("start total = %d, want 110", rec.starts[paths[0]])
	}
}

func TestRunProgressEveryPastUint32(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, []int{3, 0})

	var logs bytes.Buffer
	rec := newRecorder()
	runner := ingest.NewRunner(ingest.Config{
		ProgressEvery: 1 << 32,
		Logger:        zerolog.New(&logs),
		Progress:      rec,
	})
	report := runner.Run(context.Background(), paths)
	if err := report.Err(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.updates[paths[0]]) != 0 {
		t.Errorf("updates = %v, want none", rec.updates[paths[0]])
	}
	if rec.finishes[paths[0]] != 3 {
		t.Errorf("finish = %d, want 3", rec.finishes[paths[0]])
	}
	if bytes.Contains(logs.Bytes(), []byte("NaN")) {
		t.Errorf("logs contain NaN:\n%s", logs.String())
	}
}

func TestRunSummary(t *testing.T) {
	records := hancocktest.Records(12, 3)
	data := hancocktest.Encode(nil, hancock.Point64{}, records)
	path := hancocktest.WriteFile(t, t.TempDir(), "one.bin", data)

	var wantHits uint64
	for _, r := range records {
		wantHits += uint64(r.HitCount)
	}

	var seen []uint32
	runner := ingest.NewRunner(ingest.Config{
		Logger: zerolog.Nop(),
		Handler: func(_ string, _ hancock.Metadata, rec *hancock.Record) error {
			seen = append(seen, rec.ShotIndex)
			return nil
		},
	})
	report := runner.Run(context.Background(), []string{path})
	res := report.Results[0]
	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}

	sum := res.Summary
	if sum.Hits != wantHits {
		t.Errorf("Hits = %d, want %d", sum.Hits, wantHits)
	}
	if sum.MinShot != records[0].ShotIndex || sum.MaxShot != records[11].ShotIndex {
		t.Errorf("shot range = [%d, %d], want [%d, %d]",
			sum.MinShot, sum.MaxShot, records[0].ShotIndex, records[11].ShotIndex)
	}
	if sum.Bytes != int64(len(data)) {
		t.Errorf("Bytes = %d, want %d", sum.Bytes, len(data))
	}

	// Records reach the handler in storage order.
	for i, shot := range seen {
		if shot != records[i].ShotIndex {
			t.Fatalf("record %d shot = %d, want %d", i, shot, records[i].ShotIndex)
		}
	}
}

func TestRunHandlerErrorFailsFile(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, []int{10, 10})
	boom := errors.New("boom")

	runner := ingest.NewRunner(ingest.Config{
		Workers: 2,
		Logger:  zerolog.Nop(),
		Handler: func(path string, _ hancock.Metadata, _ *hancock.Record) error {
			if path == paths[0] {
				return boom
			}
			return nil
		},
	})
	report := runner.Run(context.Background(), paths)
	if !errors.Is(report.Results[0].Err, boom) {
		t.Errorf("handler error = %v, want boom", report.Results[0].Err)
	}
	if report.Results[1].Err != nil {
		t.Errorf("sibling failed: %v", report.Results[1].Err)
	}
}

func TestRunCorruptFile(t *testing.T) {
	records := hancocktest.Records(4, 2)
	data := hancocktest.Encode(nil, hancock.Point64{}, records)
	// Drop the last body byte but keep the trailer intact.
	body := data[:len(data)-hancock.TrailerSize-1]
	corrupt := append(append([]byte{}, body...), data[len(data)-hancock.TrailerSize:]...)
	path := hancocktest.WriteFile(t, t.TempDir(), "corrupt.bin", corrupt)

	rec := newRecorder()
	runner := ingest.NewRunner(ingest.Config{Logger: zerolog.Nop(), Progress: rec})
	report := runner.Run(context.Background(), []string{path})
	if !errors.Is(report.Results[0].Err, hancock.ErrCorruptFile) {
		t.Fatalf("err = %v, want ErrCorruptFile", report.Results[0].Err)
	}
	if got := rec.finishes[path]; got != 3 {
		t.Errorf("finish done = %d, want 3", got)
	}
}

func TestRunCancelled(t *testing.T) {
	paths := writeFiles(t, t.TempDir(), []int{5, 5, 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := ingest.NewRunner(ingest.Config{Logger: zerolog.Nop()})
	report := runner.Run(ctx, paths)
	for _, res := range report.Results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("%s: err = %v, want context.Canceled", res.Path, res.Err)
		}
	}
}

func TestReportErrNilOnSuccess(t *testing.T) {
	report := ingest.Report{Results: []ingest.Result{{Path: "a"}, {Path: "b"}}}
	if err := report.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
	report.Results[1].Err = io.ErrUnexpectedEOF
	if err := report.Err(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Err = %v, want io.ErrUnexpectedEOF", err)
	}
}
