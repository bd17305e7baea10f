package bytesource

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
)

// ContainerReader serves sequences stored as entries of a zip archive.
//
// One handle exists per distinct container path and is shared by every
// sequence routed to it. The archive index is opened lazily on first
// read; concurrent reads of different entries are safe because each
// entry opens an independent reader over the archive's ReaderAt.
type ContainerReader struct {
	path string

	mu    sync.Mutex
	items map[uint64]string // sequence id -> in-container item path

	openOnce sync.Once
	openErr  error
	rc       *zip.ReadCloser
	entries  map[string]*zip.File
}

// NewContainerReader creates a handle for the archive at path. The
// archive is not touched until the first Read.
func NewContainerReader(path string) *ContainerReader {
	return &ContainerReader{
		path:  path,
		items: make(map[uint64]string),
	}
}

// Path returns the container path.
func (c *ContainerReader) Path() string {
	return c.path
}

// Register records the item paths this handle must be able to serve,
// keyed by sequence id. Called once per container after the index build
// has seen every line.
func (c *ContainerReader) Register(items map[uint64]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, item := range items {
		c.items[id] = item
	}
}

func (c *ContainerReader) open() error {
	c.openOnce.Do(func() {
		rc, err := zip.OpenReader(c.path)
		if err != nil {
			c.openErr = fmt.Errorf("open container %q: %w", c.path, err)
			return
		}
		c.rc = rc
		c.entries = make(map[string]*zip.File, len(rc.File))
		for _, f := range rc.File {
			c.entries[NormalizeItemPath(f.Name)] = f
		}
	})
	return c.openErr
}

// Read returns the bytes of the item registered for sequenceID. The
// path argument is the full `container@item` path and is only used to
// derive the item when the sequence was never registered.
func (c *ContainerReader) Read(ctx context.Context, sequenceID uint64, path string) (*Blob, error) {
	if err := c.open(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	item, ok := c.items[sequenceID]
	c.mu.Unlock()
	if !ok {
		_, item, _ = SplitContainerPath(path)
	}

	f, ok := c.entries[item]
	if !ok {
		return nil, fmt.Errorf("container %q has no item %q: %w", c.path, item, ErrNotFound)
	}

	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open item %q in %q: %w", item, c.path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read item %q in %q: %w", item, c.path, err)
	}
	return NewBlob(data), nil
}

// Close releases the archive handle.
func (c *ContainerReader) Close() error {
	if c.rc == nil {
		return nil
	}
	return c.rc.Close()
}

// SplitContainerPath splits `container@item` into its parts. The item
// path is normalized; a leading separator after the marker is dropped.
func SplitContainerPath(path string) (container, item string, ok bool) {
	container, item, ok = strings.Cut(path, ContainerSeparator)
	if !ok {
		return path, "", false
	}
	item = NormalizeItemPath(item)
	return container, item, true
}

// NormalizeItemPath maps `\` separators to `/` (the only separator zip
// archives use) and strips a leading separator.
func NormalizeItemPath(item string) string {
	item = strings.ReplaceAll(item, `\`, "/")
	return strings.TrimPrefix(item, "/")
}
