package imageds

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/crazypenguincode/CNTK/bytesource"
	"github.com/crazypenguincode/CNTK/imageds/decode"
)

// Chunk owns the raw byte buffers of every sequence in its range.
//
// A loaded chunk starts with one reference. Consumers that hand the
// chunk to other goroutines call Retain per holder; each holder calls
// Release when done. The last Release closes mmap-backed buffers, so
// GetSequence must not be called after it.
type Chunk struct {
	d     *Deserializer
	desc  ChunkDescription
	blobs []*bytesource.Blob
	refs  atomic.Int64
}

// LoadChunk eagerly reads the raw bytes of every sequence in the chunk,
// in index order. The read fans out across sequences but the call
// returns only when every buffer is in memory; consumers request a full
// chunk only when they intend to consume most of it, amortizing
// per-file open overhead.
//
// Independent LoadChunk calls may run concurrently.
func (d *Deserializer) LoadChunk(ctx context.Context, chunkID ChunkID) (*Chunk, error) {
	if int(chunkID) >= len(d.tables.chunks) {
		return nil, fmt.Errorf("chunk %d: %w", chunkID, ErrNotFound)
	}
	desc := d.tables.chunks[chunkID]

	c := &Chunk{
		d:     d,
		desc:  desc,
		blobs: make([]*bytesource.Blob, desc.NumSequences),
	}
	c.refs.Store(1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.readConcurrency)
	for i := 0; i < desc.NumSequences; i++ {
		g.Go(func() error {
			seq := d.tables.sequences[desc.StartIndex+i]
			blob, err := d.resolver.Read(gctx, seq.ID, seq.Path)
			if err != nil {
				return fmt.Errorf("sequence %d: %w", seq.ID, err)
			}
			c.blobs[i] = blob
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.close()
		return nil, fmt.Errorf("load chunk %d: %w", chunkID, err)
	}

	d.logger.WithChunk(chunkID).Debug("chunk loaded", "sequences", desc.NumSequences)
	return c, nil
}

// ID returns the chunk id.
func (c *Chunk) ID() ChunkID {
	return c.desc.ID
}

// Retain adds a reference for another holder.
func (c *Chunk) Retain() {
	c.refs.Add(1)
}

// Release drops one reference; the last one frees the raw buffers.
func (c *Chunk) Release() error {
	if c.refs.Add(-1) > 0 {
		return nil
	}
	return c.close()
}

func (c *Chunk) close() error {
	var first error
	for _, b := range c.blobs {
		if b == nil {
			continue
		}
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// GetSequence decodes the sequence with the given global id into a
// dense image sample and its one-hot label. The id must fall in this
// chunk's range.
//
// Decoding is lazy and idempotent: nothing is cached, and repeated
// calls yield bit-identical buffers. Concurrent calls for different
// sequences of the same chunk are safe.
func (c *Chunk) GetSequence(sequenceID uint64) (*DenseSample, *SparseLabel, error) {
	start := uint64(c.desc.StartIndex)
	if sequenceID < start || sequenceID >= start+uint64(c.desc.NumSequences) {
		return nil, nil, fmt.Errorf("sequence %d is not in chunk %d: %w", sequenceID, c.desc.ID, ErrNotFound)
	}
	seq := c.d.tables.sequences[sequenceID]
	data := c.blobs[sequenceID-start].Data

	img, err := decode.Decode(data, c.d.opts.grayscale)
	if err != nil {
		return nil, nil, &DecodeError{SequenceID: seq.ID, Path: seq.Path, cause: err}
	}

	sample := &DenseSample{
		SequenceID: seq.ID,
		Height:     img.Height,
		Width:      img.Width,
		Channels:   img.Channels,
	}
	// 8-bit pixels are exposed as-is; any other depth converts (the
	// expensive path) to the configured float type.
	switch {
	case img.Depth == 8:
		sample.ElementType = ElementTypeUint8
		sample.U8 = img.Pix8
	case c.d.opts.precision == ElementTypeFloat64:
		sample.ElementType = ElementTypeFloat64
		sample.F64 = make([]float64, len(img.Pix16))
		for i, v := range img.Pix16 {
			sample.F64[i] = float64(v)
		}
	default:
		sample.ElementType = ElementTypeFloat32
		sample.F32 = make([]float32, len(img.Pix16))
		for i, v := range img.Pix16 {
			sample.F32[i] = float32(v)
		}
	}

	label := c.d.labels.CreateLabelFor(seq.ClassID)
	label.SequenceID = seq.ID
	return sample, label, nil
}
