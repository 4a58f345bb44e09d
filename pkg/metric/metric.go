// Package metric implements the named distance functions the query engine
// supports, generic over any engine.Number coordinate type. The return
// semantics are load-bearing: L2 is squared (no root is ever taken), so
// callers' un-squared L2 radii must be squared exactly once before being
// compared against its values.
package metric

import (
	"fmt"
	"math"

	"github.com/nearestk/spatialindex/pkg/engine"
)

// Kind names one of the four recognized metrics.
type Kind int

const (
	// L1 is the Manhattan distance: Σ|xᵢ-yᵢ|.
	L1 Kind = iota
	// L2 is the *squared* Euclidean distance: Σ(xᵢ-yᵢ)². The square root is
	// never taken; callers' un-squared radii are squared once internally.
	L2
	// LInf is the Chebyshev distance: max|xᵢ-yᵢ|.
	LInf
	// Cosine is 1 - cos(x,y), computed via one square root of the
	// magnitude product. Not usable with the voxel index.
	Cosine
)

func (k Kind) String() string {
	switch k {
	case L1:
		return "L1"
	case L2:
		return "L2"
	case LInf:
		return "LInf"
	case Cosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SquaresRadius reports whether this metric requires the engine to square
// caller-supplied radii internally before comparing against it. Only L2
// does: its distance value is already squared.
func (k Kind) SquaresRadius() bool {
	return k == L2
}

// VoxelSupported reports whether the voxel index can enumerate shells for
// this metric. Cosine distance has no grid-cell notion of locality and is
// KD-tree/linear only.
func (k Kind) VoxelSupported() bool {
	return k != Cosine
}

// Func computes the named metric's distance value between two points of
// equal length d.
type Func[D engine.Number] func(x, y engine.Point[D]) float64

// For returns the Func implementing kind over coordinate type D, or
// engine.ErrUnsupportedMetric if kind is not a recognized value.
func For[D engine.Number](kind Kind) (Func[D], error) {
	switch kind {
	case L1:
		return l1Distance[D], nil
	case L2:
		return l2Squared[D], nil
	case LInf:
		return lInfDistance[D], nil
	case Cosine:
		return cosineDistance[D], nil
	default:
		return nil, fmt.Errorf("metric: %w: %v", engine.ErrUnsupportedMetric, kind)
	}
}

func l1Distance[D engine.Number](x, y engine.Point[D]) float64 {
	var sum float64
	for i := range x {
		diff := float64(x[i]) - float64(y[i])
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum
}

// l2Squared is the load-bearing squared-L2 convention: no root is taken
// here, and radii received from callers for this metric are squared
// exactly once before being compared against values this function returns.
func l2Squared[D engine.Number](x, y engine.Point[D]) float64 {
	var sum float64
	for i := range x {
		diff := float64(x[i]) - float64(y[i])
		sum += diff * diff
	}
	return sum
}

func lInfDistance[D engine.Number](x, y engine.Point[D]) float64 {
	var max float64
	for i := range x {
		diff := float64(x[i]) - float64(y[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > max {
			max = diff
		}
	}
	return max
}

// cosineDistance returns 1 - (x·y)/(‖x‖‖y‖). When either magnitude is zero,
// distance 2 is returned, the "opposite direction" convention for degenerate
// vectors; this is checked first because a zero vector also has x·y == 0.
// Otherwise, when x·y == 0 the vectors are orthogonal and distance 1 is
// returned directly.
func cosineDistance[D engine.Number](x, y engine.Point[D]) float64 {
	var dot, normX, normY float64
	for i := range x {
		xi, yi := float64(x[i]), float64(y[i])
		dot += xi * yi
		normX += xi * xi
		normY += yi * yi
	}

	if normX == 0 || normY == 0 {
		return 2
	}
	if dot == 0 {
		return 1
	}

	similarity := dot / math.Sqrt(normX*normY)
	return 1 - similarity
}
