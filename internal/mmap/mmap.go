// Package mmap provides read-only memory-mapped file access.
//
// Image files are mapped rather than read so that chunk loads move no
// bytes through userspace buffers; the mapping stays valid until the
// owning chunk releases it.
//
// Mapping and reading are safe for concurrent use. Close is idempotent,
// but callers must ensure no goroutine touches Data after Close returns.
package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// ErrClosed is returned when accessing a closed mapping.
var ErrClosed = errors.New("mmap: mapping is closed")

// File is a read-only memory mapping of a regular file.
type File struct {
	data   []byte
	closed atomic.Bool
}

// Open maps the file at path into memory as read-only.
// Empty files produce a mapping with no data.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &File{}, nil
	}
	if size < 0 {
		return nil, errors.New("mmap: negative file size")
	}

	data, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

// Data returns the mapped bytes. The slice is valid until Close.
func (m *File) Data() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// ReadAt implements io.ReaderAt over the mapping.
func (m *File) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the memory. It is idempotent.
func (m *File) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return osUnmap(data)
}
