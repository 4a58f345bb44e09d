// Package kdtree implements a balanced, level-order KD-tree index: a
// complete-binary-heap array of points built by repeated median splits,
// queried by recursive branch-and-bound with hyper-rectangle pruning.
// Parent/child bookkeeping is by integer id over parallel arrays; there
// are no node pointers, and the read path is mutex-free once built.
package kdtree

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/nearestk/spatialindex/pkg/bpl"
	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/geom"
	"github.com/nearestk/spatialindex/pkg/metric"
	"github.com/nearestk/spatialindex/pkg/selectutil"
)

// Config configures Build via BuildWithConfig; DefaultConfig returns the
// recommended values (squared-L2, sentinel ±∞ root bounds).
type Config[D engine.Number] struct {
	Metric metric.Kind
	DimMin *D
	DimMax *D
}

// DefaultConfig returns a Config using squared-L2 and the coordinate type's
// sentinel ±∞ bounds.
func DefaultConfig[D engine.Number]() Config[D] {
	return Config[D]{Metric: metric.L2}
}

// BuildWithConfig is Build taking a Config value instead of positional
// metric/bound arguments.
func BuildWithConfig[D engine.Number, N any](points []engine.Point[D], payloads []N, cfg Config[D]) (*Tree[D, N], error) {
	return Build(points, payloads, cfg.Metric, cfg.DimMin, cfg.DimMax)
}

// Tree is an immutable, build-once KD-tree over N points in d dimensions.
// pointAt/payloadAt/present are parallel arrays of size
// M = 2^ceil(log2(N+1)), indexed as a complete binary heap: root 0,
// children of i are 2i+1 (left) and 2i+2 (right).
type Tree[D engine.Number, N any] struct {
	dim    int
	count  int
	kind   metric.Kind
	dist   metric.Func[D]
	dimMin D
	dimMax D

	pointAt   []engine.Point[D]
	payloadAt []N
	present   []bool
}

type indexed[D engine.Number, N any] struct {
	point   engine.Point[D]
	payload N
}

// Build constructs a KD-tree over points/payloads of equal length using the
// named metric. dimMin/dimMax optionally override the coordinate type's
// sentinel ±∞ bounds used for the root hyper-rectangle; pass nil to use
// engine.MinValue/MaxValue.
func Build[D engine.Number, N any](points []engine.Point[D], payloads []N, kind metric.Kind, dimMin, dimMax *D) (*Tree[D, N], error) {
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
		return nil, fmt.Errorf("kdtree: %w", err)
	}

	t := &Tree[D, N]{
		dim:   d,
		count: n,
		kind:  kind,
		dist:  distFn,
	}
	if dimMin != nil {
		t.dimMin = *dimMin
	} else {
		t.dimMin = engine.MinValue[D]()
	}
	if dimMax != nil {
		t.dimMax = *dimMax
	} else {
		t.dimMax = engine.MaxValue[D]()
	}

	capacity := capacityFor(n)
	t.pointAt = make([]engine.Point[D], capacity)
	t.payloadAt = make([]N, capacity)
	t.present = make([]bool, capacity)

	items := make([]indexed[D, N], n)
	for i := range points {
		items[i] = indexed[D, N]{point: points[i].Clone(), payload: payloads[i]}
	}
	t.build(0, 0, items)

	return t, nil
}

// capacityFor returns M = 2^ceil(log2(N+1)).
func capacityFor(n int) int {
	size := 1
	for size < n+1 {
		size <<= 1
	}
	return size
}

// build recursively writes the median of items into index, then partitions
// the rest into left/right subtrees. The median slot fills exactly once
// (the first item whose axis projection equals the pivot); remaining
// equal-to-pivot items overflow left until left reaches its target size,
// so the tree height stays logarithmic even with many ties.
func (t *Tree[D, N]) build(index, axis int, items []indexed[D, N]) {
	count := len(items)
	if count == 0 {
		return
	}
	if count == 1 {
		t.write(index, items[0])
		return
	}

	m := count / 2
	projection := make([]D, count)
	for i, it := range items {
		projection[i] = it.point[axis]
	}
	pivot := selectutil.NthPosition(projection, m)

	var median indexed[D, N]
	haveMedian := false
	left := make([]indexed[D, N], 0, m)
	right := make([]indexed[D, N], 0, count-m)

	for _, it := range items {
		v := it.point[axis]
		if !haveMedian && v == pivot {
			median = it
			haveMedian = true
			continue
		}
		if v <= pivot && len(left) < m {
			left = append(left, it)
		} else {
			right = append(right, it)
		}
	}

	t.write(index, median)

	nextAxis := (axis + 1) % t.dim
	if len(left) > 0 {
		t.build(2*index+1, nextAxis, left)
	}
	if len(right) > 0 {
		t.build(2*index+2, nextAxis, right)
	}
}

func (t *Tree[D, N]) write(index int, it indexed[D, N]) {
	t.pointAt[index] = it.point
	t.payloadAt[index] = it.payload
	t.present[index] = true
}

// Dimensions returns d.
func (t *Tree[D, N]) Dimensions() int { return t.dim }

// Count returns N.
func (t *Tree[D, N]) Count() int { return t.count }

// AllData returns a cursor over every live (point, payload) pair.
func (t *Tree[D, N]) AllData() engine.Cursor[D, N] {
	return engine.NewCursor(t.pointAt, t.payloadAt, t.present)
}

// Stats summarizes a built tree's shape, useful for tuning without
// re-running a query (no persistence is implied; this is purely in-memory
// introspection over the already-built arrays).
type Stats struct {
	NodeCount  int // live nodes (== Count())
	ArraySize  int // M, the allocated heap-array capacity
	Height     int // depth of the deepest live node, root at depth 0
	Dimensions int
}

// Stats computes a snapshot of the tree's current shape.
func (t *Tree[D, N]) Stats() Stats {
	height := 0
	for i, present := range t.present {
		if !present {
			continue
		}
		depth := bits.Len(uint(i+1)) - 1
		if depth > height {
			height = depth
		}
	}
	return Stats{
		NodeCount:  t.count,
		ArraySize:  len(t.present),
		Height:     height,
		Dimensions: t.dim,
	}
}

func (t *Tree[D, N]) rootRect() geom.Rect[D] {
	return geom.Infinite[D](t.dim, t.dimMin, t.dimMax)
}

// search is the recursive branch-and-bound traversal. rect encloses the
// region node index's subtree can occupy; a subtree is visited only when
// the distance from q to rect's closest point could still beat the k-list.
// maxSq is the caller's effective radius cutoff, already squared for L2
// (+Inf for an unbounded k-NN query).
func (t *Tree[D, N]) search(index, depth int, rect geom.Rect[D], q engine.Point[D], maxSq float64, list *bpl.List[int, float64]) {
	if index >= len(t.present) || !t.present[index] {
		return
	}

	axis := depth % t.dim
	pivot := t.pointAt[index][axis]
	leftRect, rightRect := rect.Split(axis, pivot)

	leftIdx, rightIdx := 2*index+1, 2*index+2
	var nearIdx, farIdx int
	var nearRect, farRect geom.Rect[D]
	if q[axis] <= pivot {
		nearIdx, nearRect = leftIdx, leftRect
		farIdx, farRect = rightIdx, rightRect
	} else {
		nearIdx, nearRect = rightIdx, rightRect
		farIdx, farRect = leftIdx, leftRect
	}

	t.search(nearIdx, depth+1, nearRect, q, maxSq, list)

	farBound := t.dist(farRect.ClosestPointTo(q), q)
	if farBound <= maxSq {
		if !list.IsFull() {
			t.search(farIdx, depth+1, farRect, q, maxSq, list)
		} else if maxVal, ok := list.MaxPriority(); ok && farBound < maxVal {
			t.search(farIdx, depth+1, farRect, q, maxSq, list)
		}
	}

	d := t.dist(t.pointAt[index], q)
	if d <= maxSq {
		list.Add(index, d)
	}
}

// NearestNeighbor returns the single closest point to q.
func (t *Tree[D, N]) NearestNeighbor(q engine.Point[D]) (engine.Pair[D, N], bool, error) {
	results, err := t.NearestNeighbors(q, 1)
	if err != nil {
		return engine.Pair[D, N]{}, false, err
	}
	if len(results) == 0 {
		return engine.Pair[D, N]{}, false, nil
	}
	return results[0], true, nil
}

// NearestNeighbors returns up to k points closest to q, ascending distance.
// k <= 0 or k >= Count() returns every live point, unordered.
func (t *Tree[D, N]) NearestNeighbors(q engine.Point[D], k int) ([]engine.Pair[D, N], error) {
	if len(q) != t.dim {
		return nil, engine.ErrShapeMismatch
	}
	if k <= 0 || k >= t.count {
		return t.allPairs(q), nil
	}

	list := bpl.New[int, float64](k)
	t.search(0, 0, t.rootRect(), q, math.Inf(1), list)
	return t.materialize(list), nil
}

// NeighborsInRadius returns up to k points within radius of q, ascending
// distance. radius is un-squared even for L2 (squared internally exactly
// once). k <= 0 means uncapped (k = Count()). A negative radius returns an
// empty result.
func (t *Tree[D, N]) NeighborsInRadius(q engine.Point[D], radius float64, k int) ([]engine.Pair[D, N], error) {
	if len(q) != t.dim {
		return nil, engine.ErrShapeMismatch
	}
	if radius < 0 {
		return nil, nil
	}

	effRadius := radius
	if t.kind.SquaresRadius() {
		effRadius = radius * radius
	}

	capK := k
	if capK <= 0 {
		capK = t.count
	}

	list := bpl.New[int, float64](capK)
	t.search(0, 0, t.rootRect(), q, effRadius, list)
	return t.materialize(list), nil
}

func (t *Tree[D, N]) allPairs(q engine.Point[D]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], 0, t.count)
	for i, present := range t.present {
		if !present {
			continue
		}
		out = append(out, engine.Pair[D, N]{
			Point:   t.pointAt[i],
			Payload: t.payloadAt[i],
			Dist:    t.dist(t.pointAt[i], q),
		})
	}
	return out
}

func (t *Tree[D, N]) materialize(list *bpl.List[int, float64]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], list.Len())
	for i := 0; i < list.Len(); i++ {
		idx, d := list.At(i)
		out[i] = engine.Pair[D, N]{Point: t.pointAt[idx], Payload: t.payloadAt[idx], Dist: d}
	}
	return out
}
