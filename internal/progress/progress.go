// Package progress renders per-file decode progress. On a terminal it
// draws one bar per file; otherwise it writes log lines.
package progress

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const (
	barWidth    = 40
	refreshRate = 100 * time.Millisecond
)

type fileBar struct {
	bar     *mpb.Bar
	name    string
	total   uint32
	failure atomic.Pointer[string]
}

// Terminal implements ingest.Progress.
type Terminal struct {
	mu   sync.Mutex
	live bool
	log  zerolog.Logger
	p    *mpb.Progress
	bars map[string]*fileBar

	green, red *color.Color
}

// NewTerminal returns a Terminal writing to f. Bars are drawn only when f
// is a terminal.
func NewTerminal(f *os.File, log zerolog.Logger) *Terminal {
	fd := f.Fd()
	live := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return New(f, live, log)
}

// New returns a Terminal writing to out. When live is false, progress is
// reported through log instead of bars.
func New(out io.Writer, live bool, log zerolog.Logger) *Terminal {
	t := &Terminal{
		live:  live,
		log:   log,
		bars:  make(map[string]*fileBar),
		green: color.New(color.FgGreen),
		red:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{t.green, t.red} {
		if live {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if live {
		t.p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithWidth(barWidth),
			mpb.WithRefreshRate(refreshRate),
			mpb.WithAutoRefresh(),
		)
	}
	return t
}

// Start registers a file with its declared record count.
func (t *Terminal) Start(path string, total uint32) {
	if !t.live {
		t.mu.Lock()
		t.entry(path).total = total
		t.mu.Unlock()
		t.log.Info().Str("file", filepath.Base(path)).Uint32("records", total).Msg("processing file")
		return
	}
	t.mu.Lock()
	fb := t.entry(path)
	t.mu.Unlock()
	fb.bar.SetTotal(int64(total), false)
}

// Update records progress for path.
func (t *Terminal) Update(path string, done uint32) {
	t.mu.Lock()
	fb := t.entry(path)
	t.mu.Unlock()

	if !t.live {
		t.log.Info().
			Str("file", fb.name).
			Uint32("done", done).
			Uint32("total", fb.total).
			Msg("progress")
		return
	}
	fb.bar.SetCurrent(int64(done))
}

// Finish marks path complete. A nil err means the file decoded fully.
func (t *Terminal) Finish(path string, done uint32, err error) {
	t.mu.Lock()
	fb := t.entry(path)
	t.mu.Unlock()

	if !t.live {
		total := max(fb.total, done)
		if err != nil {
			t.log.Error().Err(err).Str("file", fb.name).Uint32("done", done).Uint32("total", total).Msg("failed")
			return
		}
		t.log.Info().Str("file", fb.name).Uint32("done", done).Uint32("total", total).Msg("done!")
		return
	}

	fb.bar.SetCurrent(int64(done))
	if err != nil {
		msg := err.Error()
		fb.failure.Store(&msg)
		fb.bar.Abort(false)
		return
	}
	fb.bar.SetTotal(int64(done), true)
}

// Wait blocks until every bar has been drawn for the last time. Every
// started file must have been finished.
func (t *Terminal) Wait() {
	if t.p != nil {
		t.p.Wait()
	}
}

// entry returns the bar for path, creating it if needed. Files that fail to
// open reach Finish without Start. t.mu must be held.
func (t *Terminal) entry(path string) *fileBar {
	if fb, ok := t.bars[path]; ok {
		return fb
	}
	fb := &fileBar{name: filepath.Base(path)}
	if t.live {
		fb.bar = t.p.New(0,
			mpb.BarStyle().Lbound("[").Filler("#").Tip(">").Padding("-").Rbound("]"),
			mpb.PrependDecorators(
				t.status(fb),
				decor.Elapsed(decor.ET_STYLE_HHMMSS, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("%d/%d", decor.WCSyncSpace),
				decor.OnAbort(decor.OnComplete(decor.AverageETA(decor.ET_STYLE_HHMMSS), ""), ""),
			),
		)
	}
	t.bars[path] = fb
	return fb
}

// status shows the file name followed by its outcome.
func (t *Terminal) status(fb *fileBar) decor.Decorator {
	d := decor.Any(func(s decor.Statistics) string {
		switch {
		case s.Aborted:
			if msg := fb.failure.Load(); msg != nil {
				return fb.name + " failed: " + *msg
			}
			return fb.name + " failed"
		case s.Completed:
			return fb.name + " done!"
		default:
			return "Processing file: " + fb.name
		}
	}, decor.WCSyncSpaceR)
	d = decor.OnCompleteMeta(d, func(s string) string { return t.green.Sprint(s) })
	return decor.OnAbortMeta(d, func(s string) string { return t.red.Sprint(s) })
}
