package hancock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ReadMetadata decodes the trailer at the end of c's source, then rewinds
// c to offset 0 and bounds it to the body.
func ReadMetadata(c *Cursor, order binary.ByteOrder) (Metadata, error) {
	size := c.Size()
	if size < TrailerSize {
		return Metadata{}, fmt.Errorf("%w: %d bytes, trailer needs %d", ErrTruncatedFile, size, TrailerSize)
	}

	if err := c.SeekEnd(-TrailerSize); err != nil {
		return Metadata{}, err
	}
	buf, err := c.ReadExact(TrailerSize)
	if err != nil {
		if errors.Is(err, errExhausted) {
			return Metadata{}, fmt.Errorf("%w: trailer unreadable", ErrTruncatedFile)
		}
		return Metadata{}, fmt.Errorf("read trailer: %w", err)
	}
	md := decodeTrailer(buf, order)
	md.BodySize = size - TrailerSize

	if err := c.SeekStart(0); err != nil {
		return Metadata{}, err
	}
	if err := c.Limit(md.BodySize); err != nil {
		return Metadata{}, err
	}
	return md, nil
}

// decodeTrailer decodes a TrailerSize-byte trailer. BodySize is left unset.
func decodeTrailer(buf []byte, order binary.ByteOrder) Metadata {
	return Metadata{
		Origin: Point64{
			X: math.Float64frombits(order.Uint64(buf[0:8])),
			Y: math.Float64frombits(order.Uint64(buf[8:16])),
			Z: math.Float64frombits(order.Uint64(buf[16:24])),
		},
		RecordCount: order.Uint32(buf[24:28]),
	}
}
