package hancock

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Options configures how a file is opened.
type Options struct {
	BufferSize int              // FileSource buffer capacity (default DefaultBufferSize)
	InMemory   bool             // load the whole file instead of streaming it
	ByteOrder  binary.ByteOrder // field byte order (default binary.NativeEndian)
}

// Reader is one decoding session: a source, its trailer, and a decoder
// positioned at the first record.
type Reader struct {
	*Decoder
	Metadata Metadata
	src      Source
}

// Open opens path, reads its trailer and returns a Reader ready to decode
// the body. Compressed (.zst) files are always loaded into memory.
func Open(path string, opts Options) (*Reader, error) {
	var (
		src Source
		err error
	)
	if opts.InMemory || IsCompressed(path) {
		src, err = LoadFile(path)
	} else {
		src, err = OpenFileSource(path, opts.BufferSize)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r, err := NewReader(src, opts.ByteOrder)
	if err != nil {
		closeSource(src)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// NewReader reads the trailer of src and returns a Reader over its body.
// A nil order selects binary.NativeEndian.
func NewReader(src Source, order binary.ByteOrder) (*Reader, error) {
	if order == nil {
		order = binary.NativeEndian
	}
	cur := NewCursor(src)
	md, err := ReadMetadata(cur, order)
	if err != nil {
		return nil, err
	}
	return &Reader{
		Decoder:  NewDecoder(cur, md.RecordCount, order),
		Metadata: md,
		src:      src,
	}, nil
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	return closeSource(r.src)
}

func closeSource(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
