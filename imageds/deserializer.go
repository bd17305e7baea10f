package imageds

import (
	"fmt"

	"github.com/crazypenguincode/CNTK/bytesource"
	"github.com/crazypenguincode/CNTK/corpus"
)

// Deserializer exposes an image/label dataset as chunks of sequences.
//
// All tables are built during New and frozen; every method is safe for
// concurrent use afterwards.
type Deserializer struct {
	opts     options
	labelDim int
	labels   labelGenerator
	resolver *bytesource.Resolver
	tables   *tables
	streams  []StreamDescription
	logger   *Logger
}

// New builds a Deserializer from the mapping file at mapPath. Keys are
// interned into (and filtered by) the given corpus descriptor; labelDim
// is the number of classes and every class id must be below it.
func New(corp *corpus.Descriptor, mapPath string, labelDim int, optFns ...Option) (*Deserializer, error) {
	opts := applyOptions(optFns)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	labels, err := newLabelGenerator(opts.precision, labelDim)
	if err != nil {
		return nil, err
	}

	resolver, err := bytesource.NewResolver()
	if err != nil {
		return nil, err
	}
	resolver.SetContainerSupport(opts.containerSupport)
	for scheme, reader := range opts.remote {
		resolver.SetRemote(scheme, reader)
	}

	b := &indexBuilder{
		corpus:   corp,
		resolver: resolver,
		labelDim: labelDim,
		replicas: opts.replicas,
		capacity: opts.chunkCapacity,
		logger:   opts.logger,
	}
	t, err := b.build(mapPath)
	if err != nil {
		resolver.Close()
		return nil, err
	}

	return &Deserializer{
		opts:     opts,
		labelDim: labelDim,
		labels:   labels,
		resolver: resolver,
		tables:   t,
		streams: []StreamDescription{
			{ID: 0, Name: "features", Storage: StorageDense, ElementType: ElementTypeUnknown},
			{ID: 1, Name: "labels", Storage: StorageSparseCSC, ElementType: opts.precision, SampleShape: []int{labelDim}},
		},
		logger: opts.logger,
	}, nil
}

// Streams describes the two produced streams: dense per-image features
// and sparse one-hot labels.
func (d *Deserializer) Streams() []StreamDescription {
	out := make([]StreamDescription, len(d.streams))
	copy(out, d.streams)
	return out
}

// NumSequences returns the total number of sequence ids.
func (d *Deserializer) NumSequences() int {
	return len(d.tables.sequences)
}

// ChunkDescriptions returns the chunk table.
func (d *Deserializer) ChunkDescriptions() []ChunkDescription {
	out := make([]ChunkDescription, len(d.tables.chunks))
	copy(out, d.tables.chunks)
	return out
}

// SequencesForChunk returns the descriptions of every sequence in the
// chunk, in id order.
func (d *Deserializer) SequencesForChunk(chunkID ChunkID) ([]SequenceDescription, error) {
	if int(chunkID) >= len(d.tables.chunks) {
		return nil, fmt.Errorf("chunk %d: %w", chunkID, ErrNotFound)
	}
	c := d.tables.chunks[chunkID]
	out := make([]SequenceDescription, c.NumSequences)
	copy(out, d.tables.sequences[c.StartIndex:c.StartIndex+c.NumSequences])
	return out, nil
}

// SequenceByKey resolves a sequence by its external identity. It
// returns false (not an error) when the key is unknown or the sample
// index is nonzero.
func (d *Deserializer) SequenceByKey(key Key) (SequenceDescription, bool) {
	if key.Sample != 0 {
		return SequenceDescription{}, false
	}
	idx, ok := d.tables.keyToSequence[key.Sequence]
	if !ok {
		return SequenceDescription{}, false
	}
	return d.tables.sequences[idx], true
}

// Close releases shared container handles. Chunks loaded earlier keep
// their own buffers and stay readable.
func (d *Deserializer) Close() error {
	return d.resolver.Close()
}
