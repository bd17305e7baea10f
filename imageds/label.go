package imageds

import (
	"fmt"
	"math"
)

// labelGenerator produces the one-hot sparse label for a class id. One
// variant exists per element type, selected once at construction, so
// the per-sample path carries no type switching.
//
// CreateLabelFor never fails: class ids are range-checked against the
// label dimension when the index is built.
type labelGenerator interface {
	CreateLabelFor(classID uint32) *SparseLabel
}

func newLabelGenerator(precision ElementType, labelDim int) (labelGenerator, error) {
	if labelDim < 1 {
		return nil, &ConfigError{Option: "label dimension", Reason: "must be at least 1"}
	}
	if labelDim > math.MaxInt32 {
		return nil, &ConfigError{
			Option: "label dimension",
			Reason: fmt.Sprintf("%d exceeds the maximum sparse index %d", labelDim, math.MaxInt32),
		}
	}

	indices := make([]int32, labelDim)
	for i := range indices {
		indices[i] = int32(i)
	}

	switch precision {
	case ElementTypeFloat32:
		return &float32LabelGenerator{indices: indices, one: [1]float32{1}}, nil
	case ElementTypeFloat64:
		return &float64LabelGenerator{indices: indices, one: [1]float64{1}}, nil
	default:
		return nil, &ConfigError{Option: "precision", Reason: "unsupported label element type " + precision.String()}
	}
}

// float32LabelGenerator shares one iota index table and one value
// buffer across all produced labels; callers treat labels as read-only.
type float32LabelGenerator struct {
	indices []int32
	one     [1]float32
}

func (g *float32LabelGenerator) CreateLabelFor(classID uint32) *SparseLabel {
	return &SparseLabel{
		ElementType: ElementTypeFloat32,
		Dimension:   len(g.indices),
		Indices:     g.indices[classID : classID+1],
		F32:         g.one[:],
	}
}

type float64LabelGenerator struct {
	indices []int32
	one     [1]float64
}

func (g *float64LabelGenerator) CreateLabelFor(classID uint32) *SparseLabel {
	return &SparseLabel{
		ElementType: ElementTypeFloat64,
		Dimension:   len(g.indices),
		Indices:     g.indices[classID : classID+1],
		F64:         g.one[:],
	}
}
