package hancock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Size constants
const (
	TrailerSize       = 3*8 + 4                            // origin X/Y/Z (float64) + record count (uint32)
	RecordHeaderSize  = 5*4 + 4 + 1                        // 5 float32 + shot index + hit count
	HitSize           = 4 + 4                              // range + reflectance
	MaxHits           = 255                                // hit count is a uint8
	MaxRecordSize     = RecordHeaderSize + MaxHits*HitSize // 2065 bytes
	DefaultBufferSize = 3_000_000                          // bufio capacity for FileSource
)

var (
	// ErrTruncatedFile is returned when a source is too short to hold a trailer.
	ErrTruncatedFile = errors.New("hancock: truncated file")

	// ErrOutOfBounds is returned when a seek target lies outside the source.
	ErrOutOfBounds = errors.New("hancock: offset out of bounds")

	// ErrCorruptFile is returned when the body ends before the trailer's
	// declared record count has been decoded.
	ErrCorruptFile = errors.New("hancock: corrupt file")

	// errExhausted signals true end of source inside the cursor. The
	// metadata and record layers translate it.
	errExhausted = errors.New("hancock: source exhausted")
)

// Point32 is a record position relative to the dataset origin.
type Point32 struct {
	X, Y, Z float32
}

// Point64 is an absolute coordinate.
type Point64 struct {
	X, Y, Z float64
}

// Metadata is the per-file trailer.
type Metadata struct {
	Origin      Point64 // local coordinate origin
	RecordCount uint32  // number of records in the body (authoritative)
	BodySize    int64   // bytes before the trailer
}

// Record is one decoded waveform shot.
// Ranges[i] and Reflectances[i] belong to hit i.
type Record struct {
	Zenith       float32
	Azimuth      float32
	Position     Point32
	ShotIndex    uint32
	HitCount     uint8
	Ranges       []float32
	Reflectances []float32
}

// Size returns the encoded size of the record in bytes.
func (r *Record) Size() int {
	return RecordHeaderSize + int(r.HitCount)*HitSize
}

// Absolute returns the record position in the origin's reference frame.
func (r *Record) Absolute(origin Point64) Point64 {
	return Point64{
		X: origin.X + float64(r.Position.X),
		Y: origin.Y + float64(r.Position.Y),
		Z: origin.Z + float64(r.Position.Z),
	}
}

// ParseByteOrder maps a config value to a byte order.
// The empty string and "native" select binary.NativeEndian.
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native":
		return binary.NativeEndian, nil
	case "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q (want native, little or big)", s)
	}
}
