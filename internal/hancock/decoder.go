package hancock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
)

// Decoder iterates over the records in a Hancock body.
// It is forward-only and cannot be restarted.
type Decoder struct {
	cur     *Cursor
	order   binary.ByteOrder
	total   uint32
	emitted uint32
	err     error // sticky
}

// NewDecoder returns a decoder that reads total records from c, which must
// be positioned at the start of the body.
func NewDecoder(c *Cursor, total uint32, order binary.ByteOrder) *Decoder {
	if order == nil {
		order = binary.NativeEndian
	}
	return &Decoder{cur: c, order: order, total: total}
}

// Total returns the number of records the trailer declared.
func (d *Decoder) Total() uint32 {
	return d.total
}

// Emitted returns the number of records decoded so far.
func (d *Decoder) Emitted() uint32 {
	return d.emitted
}

// Next decodes the next record. It returns io.EOF after Total records,
// even if body bytes remain. A body that ends early yields ErrCorruptFile.
func (d *Decoder) Next() (Record, error) {
	if d.err != nil {
		return Record{}, d.err
	}
	if d.emitted >= d.total {
		return Record{}, io.EOF
	}

	rec, err := d.decodeRecord()
	if err != nil {
		if errors.Is(err, errExhausted) {
			err = fmt.Errorf("%w: record %d of %d ends past body at offset %d",
				ErrCorruptFile, d.emitted, d.total, d.cur.Offset())
		}
		d.err = err
		return Record{}, err
	}
	d.emitted++
	return rec, nil
}

// Records returns an iterator over the remaining records. Iteration stops
// after the first error, which is yielded with a zero Record.
func (d *Decoder) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (d *Decoder) decodeRecord() (Record, error) {
	hdr, err := d.cur.ReadExact(RecordHeaderSize)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Zenith:  d.f32(hdr[0:4]),
		Azimuth: d.f32(hdr[4:8]),
		Position: Point32{
			X: d.f32(hdr[8:12]),
			Y: d.f32(hdr[12:16]),
			Z: d.f32(hdr[16:20]),
		},
		ShotIndex: d.order.Uint32(hdr[20:24]),
		HitCount:  hdr[24],
	}

	n := int(rec.HitCount)
	// hdr is invalidated by the next ReadExact.
	tail, err := d.cur.ReadExact(n * HitSize)
	if err != nil {
		return Record{}, err
	}

	// Hits are interleaved: range then reflectance for each hit.
	rec.Ranges = make([]float32, n)
	rec.Reflectances = make([]float32, n)
	for i := 0; i < n; i++ {
		off := i * HitSize
		rec.Ranges[i] = d.f32(tail[off : off+4])
		rec.Reflectances[i] = d.f32(tail[off+4 : off+8])
	}
	return rec, nil
}

func (d *Decoder) f32(b []byte) float32 {
	return math.Float32frombits(d.order.Uint32(b))
}
