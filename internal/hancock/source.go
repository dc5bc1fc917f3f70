package hancock

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Source is the byte source a Cursor reads from.
type Source interface {
	io.Reader
	io.Seeker
	// Size returns the total number of bytes in the source.
	Size() int64
}

// FileSource streams a file through a bufio.Reader.
// Reads may come back short when they cross a buffer refill boundary;
// Cursor takes care of that.
type FileSource struct {
	f    *os.File
	br   *bufio.Reader
	size int64
}

// OpenFileSource opens path for buffered streaming reads.
// bufSize <= 0 selects DefaultBufferSize.
func OpenFileSource(path string, bufSize int) (*FileSource, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return NewFileSource(f, info.Size(), bufSize), nil
}

// NewFileSource wraps an already open file of the given size.
func NewFileSource(f *os.File, size int64, bufSize int) *FileSource {
	return &FileSource{
		f:    f,
		br:   bufio.NewReaderSize(f, bufSize),
		size: size,
	}
}

func (s *FileSource) Read(p []byte) (int, error) {
	return s.br.Read(p)
}

// Seek repositions the file and discards buffered data.
func (s *FileSource) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		// The file offset is ahead of the logical offset by whatever is buffered.
		offset -= int64(s.br.Buffered())
	}
	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	s.br.Reset(s.f)
	return pos, nil
}

// Size returns the file size captured at open time.
func (s *FileSource) Size() int64 {
	return s.size
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// MemorySource holds a whole file in memory.
type MemorySource struct {
	*bytes.Reader
}

// NewMemorySource returns a source over data. data must not be modified
// while the source is in use.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{Reader: bytes.NewReader(data)}
}

// Close is a no-op.
func (s *MemorySource) Close() error {
	return nil
}

// LoadFile reads path fully into a MemorySource.
// Files ending in .zst are decompressed first.
func LoadFile(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return NewMemorySource(data), nil
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer decoder.Close()

	body, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return NewMemorySource(body), nil
}

// IsCompressed reports whether path names a zstd-compressed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
