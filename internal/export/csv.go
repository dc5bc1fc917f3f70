// Package export writes decoded Hancock records to CSV, one output file per
// input file, optionally zstd-compressed.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/hancock/internal/hancock"
	"github.com/freeeve/hancock/internal/ingest"
)

// Header is the CSV header row.
var Header = []string{"shot_index", "zenith", "azimuth", "x", "y", "z", "hit", "range", "reflectance"}

// Options configures an Exporter.
type Options struct {
	Dir      string // output directory
	Compress bool   // write .csv.zst instead of .csv
	Absolute bool   // add the origin offset to x/y/z
}

// Exporter is an ingest.Handler that streams records to CSV files.
type Exporter struct {
	opts    Options
	mu      sync.Mutex
	files   map[string]*csvFile
	paths   map[string]string // input -> output
	claimed map[string]bool   // outputs already assigned
}

type csvFile struct {
	path string
	f    *os.File
	zw   *zstd.Encoder
	w    *csv.Writer
	row  []string
}

// New creates the output directory and returns an Exporter.
func New(opts Options) (*Exporter, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}
	return &Exporter{
		opts:    opts,
		files:   make(map[string]*csvFile),
		paths:   make(map[string]string),
		claimed: make(map[string]bool),
	}, nil
}

// OutputPath returns the preferred CSV path for an input file. Inputs that
// share a name are given distinct paths by Reserve.
func OutputPath(dir, input string, compress bool) string {
	return filepath.Join(dir, outputStem(input)+outputExt(compress))
}

func outputStem(input string) string {
	name := filepath.Base(input)
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func outputExt(compress bool) string {
	if compress {
		return ".csv.zst"
	}
	return ".csv"
}

// Reserve assigns output paths to inputs in order. An input whose preferred
// path is already taken gets a numbered one, such as plot-1.csv. Inputs not
// reserved are assigned when their first record arrives.
func (e *Exporter) Reserve(inputs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, in := range inputs {
		e.assign(in)
	}
}

// assign returns the output path for input. e.mu must be held.
func (e *Exporter) assign(input string) string {
	if p, ok := e.paths[input]; ok {
		return p
	}
	stem, ext := outputStem(input), outputExt(e.opts.Compress)
	p := filepath.Join(e.opts.Dir, stem+ext)
	for n := 1; e.claimed[p]; n++ {
		p = filepath.Join(e.opts.Dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
	e.claimed[p] = true
	e.paths[input] = p
	return p
}

// Handle writes one record. It satisfies ingest.Handler.
func (e *Exporter) Handle(path string, md hancock.Metadata, rec *hancock.Record) error {
	cf, err := e.file(path)
	if err != nil {
		return err
	}
	return cf.write(rec, md.Origin, e.opts.Absolute)
}

// Close flushes every output. Outputs of failed inputs are removed;
// successful inputs with no records get a header-only file. Errors name the
// input whose output could not be written.
func (e *Exporter) Close(results []ingest.Result) error {
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			if err := e.discard(res.Path); err != nil {
				errs = append(errs, fmt.Errorf("remove output of %s: %w", res.Path, err))
			}
			continue
		}
		cf, err := e.file(res.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("create output of %s: %w", res.Path, err))
			continue
		}
		if err := cf.close(); err != nil {
			errs = append(errs, fmt.Errorf("write %s for %s: %w", cf.path, res.Path, err))
		}
	}
	return errors.Join(errs...)
}

// Outputs returns the output path of every input with an open file.
func (e *Exporter) Outputs() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.files))
	for in, cf := range e.files {
		out[in] = cf.path
	}
	return out
}

func (e *Exporter) file(input string) (*csvFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cf, ok := e.files[input]; ok {
		return cf, nil
	}
	cf, err := createCSV(e.assign(input), e.opts.Compress)
	if err != nil {
		return nil, err
	}
	e.files[input] = cf
	return cf, nil
}

func (e *Exporter) discard(input string) error {
	e.mu.Lock()
	cf, ok := e.files[input]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	cf.close()
	if err := os.Remove(cf.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func createCSV(path string, compress bool) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cf := &csvFile{path: path, f: f, row: make([]string, len(Header))}

	var w io.Writer = f
	if compress {
		cf.zw, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w = cf.zw
	}
	cf.w = csv.NewWriter(w)
	if err := cf.w.Write(Header); err != nil {
		cf.close()
		return nil, err
	}
	return cf, nil
}

// write emits one row per hit, or a single row with hit=-1 for shots with
// no hits.
func (cf *csvFile) write(rec *hancock.Record, origin hancock.Point64, absolute bool) error {
	row := cf.row
	row[0] = strconv.FormatUint(uint64(rec.ShotIndex), 10)
	row[1] = formatF32(rec.Zenith)
	row[2] = formatF32(rec.Azimuth)
	if absolute {
		p := rec.Absolute(origin)
		row[3] = strconv.FormatFloat(p.X, 'f', -1, 64)
		row[4] = strconv.FormatFloat(p.Y, 'f', -1, 64)
		row[5] = strconv.FormatFloat(p.Z, 'f', -1, 64)
	} else {
		row[3] = formatF32(rec.Position.X)
		row[4] = formatF32(rec.Position.Y)
		row[5] = formatF32(rec.Position.Z)
	}

	if rec.HitCount == 0 {
		row[6], row[7], row[8] = "-1", "", ""
		return cf.w.Write(row)
	}
	for i := 0; i < int(rec.HitCount); i++ {
		row[6] = strconv.Itoa(i)
		row[7] = formatF32(rec.Ranges[i])
		row[8] = formatF32(rec.Reflectances[i])
		if err := cf.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (cf *csvFile) close() error {
	if cf.f == nil {
		return nil
	}
	cf.w.Flush()
	err := cf.w.Error()
	if cf.zw != nil {
		if zerr := cf.zw.Close(); err == nil {
			err = zerr
		}
	}
	if ferr := cf.f.Close(); err == nil {
		err = ferr
	}
	cf.f = nil
	return err
}

func formatF32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
