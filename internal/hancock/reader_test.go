package hancock_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/hancock/internal/hancock"
	"github.com/freeeve/hancock/internal/hancock/hancocktest"
)

func TestOpenSourcesAgree(t *testing.T) {
	dir := t.TempDir()
	records := hancocktest.Records(1000, 12)
	origin := hancock.Point64{X: 512000.25, Y: 6100000.5, Z: 12}
	data := hancocktest.Encode(nil, origin, records)

	plain := hancocktest.WriteFile(t, dir, "plot.bin", data)

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	compressed := hancocktest.WriteFile(t, dir, "plot.bin.zst", encoder.EncodeAll(data, nil))
	encoder.Close()

	tests := []struct {
		name string
		path string
		opts hancock.Options
	}{
		{"streaming", plain, hancock.Options{}},
		{"streaming small buffer", plain, hancock.Options{BufferSize: 64}},
		{"in memory", plain, hancock.Options{InMemory: true}},
		{"zstd", compressed, hancock.Options{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := hancock.Open(tt.path, tt.opts)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()

			if r.Metadata.Origin != origin {
				t.Errorf("Origin = %+v, want %+v", r.Metadata.Origin, origin)
			}
			if r.Metadata.BodySize != int64(len(data)-hancock.TrailerSize) {
				t.Errorf("BodySize = %d, want %d", r.Metadata.BodySize, len(data)-hancock.TrailerSize)
			}
			got, err := decodeAll(t, r)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(records, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := hancock.Open(filepath.Join(t.TempDir(), "missing.bin"), hancock.Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) = %v, want fs.ErrNotExist", err)
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	path := hancocktest.WriteFile(t, t.TempDir(), "short.bin", make([]byte, 10))
	r, err := hancock.Open(path, hancock.Options{})
	if !errors.Is(err, hancock.ErrTruncatedFile) {
		t.Errorf("Open(short) = %v, want ErrTruncatedFile", err)
	}
	if r != nil {
		t.Errorf("Open(short) returned a reader")
	}
}
