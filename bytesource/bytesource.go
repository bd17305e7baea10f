// Package bytesource acquires the raw bytes backing dataset sequences.
//
// A sequence's path is either a loose file on disk, an entry inside an
// archive container (`container.zip@item/path`), or an object in a
// remote store (`s3://bucket/key`). The Resolver builds a routing table
// from sequence id to the reader that serves it; readers return
// immutable byte buffers.
package bytesource

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a path does not resolve to an existing
// file, archive entry, or object.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrUnsupportedFormat is returned when a path requires a capability
// that is disabled or unknown (container paths with container support
// turned off, or an unregistered remote scheme).
var ErrUnsupportedFormat = errors.New("bytesource: unsupported path format")

// Reader reads the raw bytes for a sequence.
//
// Implementations must be safe for concurrent Read calls on different
// sequence ids.
type Reader interface {
	Read(ctx context.Context, sequenceID uint64, path string) (*Blob, error)
}

// Blob is an immutable byte buffer, optionally backed by a resource
// that must be released (e.g. a memory mapping).
type Blob struct {
	Data   []byte
	closer io.Closer
}

// NewBlob wraps a heap buffer that needs no release.
func NewBlob(data []byte) *Blob {
	return &Blob{Data: data}
}

// NewBlobWithCloser wraps a buffer whose backing storage is released by
// closer. Data must not be accessed after Close.
func NewBlobWithCloser(data []byte, closer io.Closer) *Blob {
	return &Blob{Data: data, closer: closer}
}

// Close releases the backing storage, if any.
func (b *Blob) Close() error {
	if b.closer == nil {
		return nil
	}
	c := b.closer
	b.closer = nil
	b.Data = nil
	return c.Close()
}
