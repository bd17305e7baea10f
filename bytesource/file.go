package bytesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/crazypenguincode/CNTK/internal/mmap"
)

// FileReader is the default loose-file strategy. Files are memory-mapped
// for zero-copy sequential throughput; the returned blob keeps the
// mapping alive until closed.
//
// Files ending in .zst, .zstd or .lz4 are transparently decompressed
// into a heap buffer.
type FileReader struct {
	zstd *zstd.Decoder
}

// NewFileReader creates a FileReader.
func NewFileReader() (*FileReader, error) {
	// A nil-stream decoder is concurrency-safe for DecodeAll.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &FileReader{zstd: dec}, nil
}

// Read returns the bytes of the file at path.
func (r *FileReader) Read(ctx context.Context, sequenceID uint64, path string) (*Blob, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return r.readZstd(path)
	case ".lz4":
		return r.readLZ4(path)
	}

	m, err := mmap.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("mmap %q: %w", path, err)
	}
	return NewBlobWithCloser(m.Data(), m), nil
}

func (r *FileReader) readZstd(path string) (*Blob, error) {
	m, err := mmap.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %q: %w", path, ErrNotFound)
		}
		return nil, err
	}
	defer m.Close()

	data, err := r.zstd.DecodeAll(m.Data(), nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress %q: %w", path, err)
	}
	return NewBlob(data), nil
}

func (r *FileReader) readLZ4(path string) (*Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %q: %w", path, ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(lz4.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress %q: %w", path, err)
	}
	return NewBlob(data), nil
}
