package imageds

import "math"

// ElementType identifies the numeric element type of a produced buffer.
type ElementType int

const (
	// ElementTypeUnknown marks a stream whose element type is resolved
	// per sample (each image decodes to its own type).
	ElementTypeUnknown ElementType = iota
	// ElementTypeUint8 is an 8-bit unsigned element.
	ElementTypeUint8
	// ElementTypeFloat32 is a 32-bit float element.
	ElementTypeFloat32
	// ElementTypeFloat64 is a 64-bit float element.
	ElementTypeFloat64
)

func (e ElementType) String() string {
	switch e {
	case ElementTypeUint8:
		return "uint8"
	case ElementTypeFloat32:
		return "float32"
	case ElementTypeFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// ChunkID identifies a chunk. The id space bounds the total number of
// sequence ids a build may assign.
type ChunkID uint32

// MaxChunkID is the largest representable chunk id.
const MaxChunkID = math.MaxUint32

// Key is the external identity of a sequence: the corpus-interned
// mapping-file key plus a sample index within it. Image sequences
// always carry sample index 0.
type Key struct {
	Sequence uint64
	Sample   uint32
}

// SequenceDescription describes one logical sample. Immutable after the
// index build.
type SequenceDescription struct {
	ID      uint64
	ChunkID ChunkID
	Path    string
	ClassID uint32
	Key     Key
}

// ChunkDescription describes one contiguous slice of the sequence
// table. Chunks are non-overlapping, ordered by id, and together cover
// the table exactly.
type ChunkDescription struct {
	ID           ChunkID
	StartIndex   int
	NumSamples   int
	NumSequences int
}

// StorageType distinguishes dense from sparse stream storage.
type StorageType int

const (
	// StorageDense is contiguous row-major storage.
	StorageDense StorageType = iota
	// StorageSparseCSC is sparse storage with explicit indices.
	StorageSparseCSC
)

// StreamDescription describes one produced output stream.
type StreamDescription struct {
	ID          int
	Name        string
	Storage     StorageType
	ElementType ElementType
	// SampleShape is the per-sample layout where it is fixed
	// (labels); nil for the feature stream, whose height, width and
	// channel count vary per image.
	SampleShape []int
}

// DenseSample is a decoded image in contiguous row-major HWC layout.
// Exactly one of U8, F32, F64 is set, according to ElementType.
type DenseSample struct {
	SequenceID  uint64
	Height      int
	Width       int
	Channels    int
	ElementType ElementType
	U8          []uint8
	F32         []float32
	F64         []float64
}

// Shape returns the height×width×channel layout.
func (s *DenseSample) Shape() [3]int {
	return [3]int{s.Height, s.Width, s.Channels}
}

// SparseLabel is a one-hot class label: a single nonzero entry of value
// one at the class index. Exactly one of F32, F64 is set.
type SparseLabel struct {
	SequenceID  uint64
	ElementType ElementType
	Dimension   int
	Indices     []int32
	F32         []float32
	F64         []float64
}
