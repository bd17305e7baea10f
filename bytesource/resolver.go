package bytesource

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ContainerSeparator marks the boundary between a container path and an
// in-container item path.
const ContainerSeparator = "@"

// Resolver routes sequence ids to the reader that serves their path.
//
// Resolution happens during the single-threaded index build; after
// Finalize the routing table is frozen and Read may be called
// concurrently from any number of workers.
type Resolver struct {
	def        Reader
	containers bool
	remote     map[string]Reader

	mu       sync.Mutex
	handles  map[string]*ContainerReader // container path -> shared handle
	pending  map[*ContainerReader]map[uint64]string
	bySeq    map[uint64]Reader
	finalize sync.Once
}

// NewResolver creates a resolver whose default strategy is the
// memory-mapped file reader. Container support is enabled.
func NewResolver() (*Resolver, error) {
	def, err := NewFileReader()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		def:        def,
		containers: true,
		remote:     make(map[string]Reader),
		handles:    make(map[string]*ContainerReader),
		pending:    make(map[*ContainerReader]map[uint64]string),
		bySeq:      make(map[uint64]Reader),
	}, nil
}

// SetContainerSupport toggles the container capability. When disabled,
// resolving a container-style path fails with ErrUnsupportedFormat.
func (r *Resolver) SetContainerSupport(enabled bool) {
	r.containers = enabled
}

// SetRemote routes paths of the form `scheme://...` to reader.
func (r *Resolver) SetRemote(scheme string, reader Reader) {
	r.remote[scheme] = reader
}

// Resolve records which reader serves sequenceID's path. Loose-file
// paths need no entry; they fall through to the default strategy.
func (r *Resolver) Resolve(sequenceID uint64, path string) error {
	if path == "" {
		return fmt.Errorf("empty path: %w", ErrNotFound)
	}

	if scheme, _, ok := strings.Cut(path, "://"); ok {
		reader, known := r.remote[scheme]
		if !known {
			return fmt.Errorf("remote scheme %q is not configured: %w", scheme, ErrUnsupportedFormat)
		}
		r.mu.Lock()
		r.bySeq[sequenceID] = reader
		r.mu.Unlock()
		return nil
	}

	container, item, ok := SplitContainerPath(path)
	if !ok {
		return nil // plain file, default strategy
	}
	if !r.containers {
		return fmt.Errorf("container path %q: container support is disabled: %w", path, ErrUnsupportedFormat)
	}
	if container == "" || item == "" {
		return fmt.Errorf("malformed container path %q: %w", path, ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.handles[container]
	if !exists {
		h = NewContainerReader(container)
		r.handles[container] = h
		r.pending[h] = make(map[uint64]string)
	}
	r.pending[h][sequenceID] = item
	r.bySeq[sequenceID] = h
	return nil
}

// Finalize hands each container handle the full item set it must serve.
// Called once when the index build completes; the routing table is
// immutable afterwards.
func (r *Resolver) Finalize() {
	r.finalize.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for h, items := range r.pending {
			h.Register(items)
		}
		r.pending = nil
	})
}

// Read dispatches to the reader resolved for sequenceID, or to the
// default loose-file strategy when none was recorded.
func (r *Resolver) Read(ctx context.Context, sequenceID uint64, path string) (*Blob, error) {
	if reader, ok := r.bySeq[sequenceID]; ok {
		return reader.Read(ctx, sequenceID, path)
	}
	return r.def.Read(ctx, sequenceID, path)
}

// NumContainers returns the number of distinct container handles.
func (r *Resolver) NumContainers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close releases all container handles.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, h := range r.handles {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
