// Package corpus provides the corpus-level key registry and inclusion
// filter consumed by deserializers.
//
// Keys from mapping files are interned into dense uint64 ids by a
// Registry; a Descriptor combines a registry with an inclusion set so a
// corpus can be restricted to a subset of its keys (e.g. a train/test
// split) without touching the mapping files.
package corpus

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Registry interns string keys into stable uint64 ids.
// Ids are assigned densely in first-seen order.
type Registry struct {
	mu   sync.RWMutex
	ids  map[string]uint64
	keys []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]uint64)}
}

// Intern returns the id for key, assigning a new one if unseen.
func (r *Registry) Intern(key string) uint64 {
	r.mu.RLock()
	id, ok := r.ids[key]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[key]; ok {
		return id
	}
	id = uint64(len(r.keys))
	r.ids[key] = id
	r.keys = append(r.keys, key)
	return id
}

// ID returns the id for key without interning it.
func (r *Registry) ID(key string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[key]
	return id, ok
}

// Key returns the key for a previously interned id.
func (r *Registry) Key(id uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id >= uint64(len(r.keys)) {
		return "", false
	}
	return r.keys[id], true
}

// Len returns the number of interned keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Descriptor exposes the corpus to deserializers: a key registry plus an
// inclusion filter. The zero-restriction descriptor includes every key.
type Descriptor struct {
	reg *Registry

	mu       sync.RWMutex
	included *roaring64.Bitmap // nil means include everything
}

// NewDescriptor creates a descriptor that includes every key.
func NewDescriptor() *Descriptor {
	return &Descriptor{reg: NewRegistry()}
}

// NewRestrictedDescriptor creates a descriptor that includes only the
// given keys.
func NewRestrictedDescriptor(keys []string) *Descriptor {
	d := &Descriptor{reg: NewRegistry(), included: roaring64.New()}
	for _, k := range keys {
		d.included.Add(d.reg.Intern(k))
	}
	return d
}

// Registry returns the key registry.
func (d *Descriptor) Registry() *Registry {
	return d.reg
}

// IsIncluded reports whether the key participates in the corpus.
func (d *Descriptor) IsIncluded(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.included == nil {
		return true
	}
	id, ok := d.reg.ID(key)
	if !ok {
		return false
	}
	return d.included.Contains(id)
}

// Include adds key to the inclusion set. On a previously unrestricted
// descriptor this switches it to restricted mode.
func (d *Descriptor) Include(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.included == nil {
		d.included = roaring64.New()
	}
	d.included.Add(d.reg.Intern(key))
}

// NumIncluded returns the inclusion set cardinality, or the registry
// size when unrestricted.
func (d *Descriptor) NumIncluded() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.included == nil {
		return uint64(d.reg.Len())
	}
	return d.included.GetCardinality()
}
