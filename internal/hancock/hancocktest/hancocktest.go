// Package hancocktest builds Hancock file images for tests.
package hancocktest

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/hancock/internal/hancock"
)

// Encode returns a complete file image: body followed by trailer.
// A nil order selects binary.NativeEndian.
func Encode(order binary.ByteOrder, origin hancock.Point64, records []hancock.Record) []byte {
	if order == nil {
		order = binary.NativeEndian
	}
	var buf []byte
	for i := range records {
		buf = AppendRecord(buf, order, &records[i])
	}
	return append(buf, Trailer(order, origin, uint32(len(records)))...)
}

// AppendRecord appends the encoded record to buf.
func AppendRecord(buf []byte, order binary.ByteOrder, rec *hancock.Record) []byte {
	buf = appendF32(buf, order, rec.Zenith)
	buf = appendF32(buf, order, rec.Azimuth)
	buf = appendF32(buf, order, rec.Position.X)
	buf = appendF32(buf, order, rec.Position.Y)
	buf = appendF32(buf, order, rec.Position.Z)
	buf = appendU32(buf, order, rec.ShotIndex)
	buf = append(buf, rec.HitCount)
	for i := 0; i < int(rec.HitCount); i++ {
		buf = appendF32(buf, order, rec.Ranges[i])
		buf = appendF32(buf, order, rec.Reflectances[i])
	}
	return buf
}

// Trailer returns an encoded trailer.
func Trailer(order binary.ByteOrder, origin hancock.Point64, count uint32) []byte {
	buf := make([]byte, 0, hancock.TrailerSize)
	buf = appendU64(buf, order, math.Float64bits(origin.X))
	buf = appendU64(buf, order, math.Float64bits(origin.Y))
	buf = appendU64(buf, order, math.Float64bits(origin.Z))
	return appendU32(buf, order, count)
}

// Records returns n deterministic records with hit counts cycling 0..maxHits.
func Records(n int, maxHits int) []hancock.Record {
	records := make([]hancock.Record, n)
	for i := range records {
		hits := 0
		if maxHits > 0 {
			hits = i % (maxHits + 1)
		}
		rec := hancock.Record{
			Zenith:       float32(i) * 0.25,
			Azimuth:      float32(i) * 0.5,
			Position:     hancock.Point32{X: float32(i), Y: float32(-i), Z: float32(i) / 10},
			ShotIndex:    uint32(1000 + 3*i),
			HitCount:     uint8(hits),
			Ranges:       make([]float32, hits),
			Reflectances: make([]float32, hits),
		}
		for h := 0; h < hits; h++ {
			rec.Ranges[h] = float32(i) + float32(h)
			rec.Reflectances[h] = float32(h) / 100
		}
		records[i] = rec
	}
	return records
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		tb.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

func appendF32(buf []byte, order binary.ByteOrder, v float32) []byte {
	return appendU32(buf, order, math.Float32bits(v))
}

func appendU32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var b [4]byte
	order.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, order binary.ByteOrder, v uint64) []byte {
	var b [8]byte
	order.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
