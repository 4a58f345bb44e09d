// Package linear implements the exhaustive scan index: the baseline used
// both as a usable index kind and as the correctness oracle the KD-tree
// and voxel index are tested against.
package linear

import (
	"fmt"

	"github.com/nearestk/spatialindex/pkg/bpl"
	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/metric"
)

// Scanner is an immutable, build-once linear index over N points.
type Scanner[D engine.Number, N any] struct {
	dim      int
	kind     metric.Kind
	dist     metric.Func[D]
	points   []engine.Point[D]
	payloads []N
}

// Build constructs a linear index over points/payloads of equal length
// using the named metric.
func Build[D engine.Number, N any](points []engine.Point[D], payloads []N, kind metric.Kind) (*Scanner[D, N], error) {
	n := len(points)
	if n == 0 {
		return nil, engine.ErrEmptyInput
	}
	if n != len(payloads) {
		return nil, engine.ErrShapeMismatch
	}
	d := len(points[0])
	if d == 0 {
		return nil, engine.ErrInvalidDimension
	}
	for _, p := range points {
		if len(p) != d {
			return nil, engine.ErrShapeMismatch
		}
	}

	distFn, err := metric.For[D](kind)
	if err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}

	s := &Scanner[D, N]{
		dim:      d,
		kind:     kind,
		dist:     distFn,
		points:   make([]engine.Point[D], n),
		payloads: make([]N, n),
	}
	for i := range points {
		s.points[i] = points[i].Clone()
	}
	copy(s.payloads, payloads)

	return s, nil
}

// Dimensions returns d.
func (s *Scanner[D, N]) Dimensions() int { return s.dim }

// Count returns N.
func (s *Scanner[D, N]) Count() int { return len(s.points) }

// AllData returns a cursor over every (point, payload) pair.
func (s *Scanner[D, N]) AllData() engine.Cursor[D, N] {
	return engine.NewCursor(s.points, s.payloads, nil)
}

// NearestNeighbor returns the single closest point to q.
func (s *Scanner[D, N]) NearestNeighbor(q engine.Point[D]) (engine.Pair[D, N], bool, error) {
	results, err := s.NearestNeighbors(q, 1)
	if err != nil {
		return engine.Pair[D, N]{}, false, err
	}
	if len(results) == 0 {
		return engine.Pair[D, N]{}, false, nil
	}
	return results[0], true, nil
}

// NearestNeighbors returns up to k points closest to q, ascending distance.
func (s *Scanner[D, N]) NearestNeighbors(q engine.Point[D], k int) ([]engine.Pair[D, N], error) {
	if len(q) != s.dim {
		return nil, engine.ErrShapeMismatch
	}
	if k <= 0 || k >= len(s.points) {
		return s.allPairs(q), nil
	}

	list := bpl.New[int, float64](k)
	for i, p := range s.points {
		list.Add(i, s.dist(p, q))
	}
	return s.materialize(list), nil
}

// NeighborsInRadius returns up to k points within radius of q, ascending
// distance. A negative radius returns an empty result.
func (s *Scanner[D, N]) NeighborsInRadius(q engine.Point[D], radius float64, k int) ([]engine.Pair[D, N], error) {
	if len(q) != s.dim {
		return nil, engine.ErrShapeMismatch
	}
	if radius < 0 {
		return nil, nil
	}

	effRadius := radius
	if s.kind.SquaresRadius() {
		effRadius = radius * radius
	}
	capK := k
	if capK <= 0 {
		capK = len(s.points)
	}

	list := bpl.New[int, float64](capK)
	for i, p := range s.points {
		d := s.dist(p, q)
		if d <= effRadius {
			list.Add(i, d)
		}
	}
	return s.materialize(list), nil
}

func (s *Scanner[D, N]) allPairs(q engine.Point[D]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], len(s.points))
	for i, p := range s.points {
		out[i] = engine.Pair[D, N]{Point: p, Payload: s.payloads[i], Dist: s.dist(p, q)}
	}
	return out
}

func (s *Scanner[D, N]) materialize(list *bpl.List[int, float64]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], list.Len())
	for i := 0; i < list.Len(); i++ {
		idx, d := list.At(i)
		out[i] = engine.Pair[D, N]{Point: s.points[idx], Payload: s.payloads[idx], Dist: d}
	}
	return out
}
