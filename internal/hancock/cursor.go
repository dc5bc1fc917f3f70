package hancock

import (
	"errors"
	"fmt"
	"io"
)

// maxConsecutiveEmptyReads matches bufio's guard against readers that
// keep returning (0, nil).
const maxConsecutiveEmptyReads = 100

// Cursor reads exact-size chunks from a Source.
// A Cursor has a single owner and is not safe for concurrent use.
type Cursor struct {
	src   Source
	pos   int64
	limit int64  // reads never cross this offset
	buf   []byte // scratch, reused across ReadExact calls
}

// NewCursor returns a cursor at offset 0 that may read the whole source.
func NewCursor(src Source) *Cursor {
	return &Cursor{
		src:   src,
		limit: src.Size(),
		buf:   make([]byte, MaxRecordSize),
	}
}

// Size returns the size of the underlying source.
func (c *Cursor) Size() int64 {
	return c.src.Size()
}

// Offset returns the current read position.
func (c *Cursor) Offset() int64 {
	return c.pos
}

// Limit bounds subsequent reads to [0, n).
func (c *Cursor) Limit(n int64) error {
	if n < 0 || n > c.src.Size() {
		return fmt.Errorf("%w: limit %d, size %d", ErrOutOfBounds, n, c.src.Size())
	}
	c.limit = n
	return nil
}

// ReadExact returns exactly n bytes, or errExhausted if the source ends
// (or the limit is reached) first. Short reads from the source are retried
// until the request is satisfied.
//
// The returned slice is only valid until the next call.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("hancock: negative read size %d", n)
	}
	if c.pos+int64(n) > c.limit {
		return nil, errExhausted
	}
	if cap(c.buf) < n {
		c.buf = make([]byte, n)
	}
	p := c.buf[:n]

	got, empty := 0, 0
	for got < n {
		m, err := c.src.Read(p[got:])
		got += m
		if got == n {
			break
		}
		switch {
		case errors.Is(err, io.EOF):
			if m == 0 {
				c.pos += int64(got)
				return nil, errExhausted
			}
		case err != nil:
			c.pos += int64(got)
			return nil, fmt.Errorf("read at offset %d: %w", c.pos, err)
		case m == 0:
			empty++
			if empty >= maxConsecutiveEmptyReads {
				c.pos += int64(got)
				return nil, io.ErrNoProgress
			}
			continue
		}
		empty = 0
	}

	c.pos += int64(n)
	return p, nil
}

// SeekStart moves the cursor to offset bytes from the start of the source.
func (c *Cursor) SeekStart(offset int64) error {
	if offset < 0 || offset > c.src.Size() {
		return fmt.Errorf("%w: offset %d, size %d", ErrOutOfBounds, offset, c.src.Size())
	}
	if _, err := c.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	c.pos = offset
	return nil
}

// SeekEnd moves the cursor to offset bytes relative to the end of the
// source. offset is normally negative.
func (c *Cursor) SeekEnd(offset int64) error {
	target := c.src.Size() + offset
	if offset > 0 || target < 0 {
		return fmt.Errorf("%w: offset %d from end, size %d", ErrOutOfBounds, offset, c.src.Size())
	}
	return c.SeekStart(target)
}
