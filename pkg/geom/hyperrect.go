// Package geom implements the axis-aligned bounding box the KD-tree
// narrows at every level of its descent to bound how close a pruned
// subtree's contents could possibly be to the query point.
package geom

import "github.com/nearestk/spatialindex/pkg/engine"

// Rect is a d-dimensional axis-aligned box: Min[i] <= Max[i] for every axis.
type Rect[D engine.Number] struct {
	Min engine.Point[D]
	Max engine.Point[D]
}

// Infinite returns a d-dimensional box spanning [min, max] on every axis,
// the root rect a KD-tree search begins with. min and max are the
// dimension's sentinel bounds (engine.MinValue/MaxValue, or the caller's
// override).
func Infinite[D engine.Number](d int, min, max D) Rect[D] {
	lo := make(engine.Point[D], d)
	hi := make(engine.Point[D], d)
	for i := 0; i < d; i++ {
		lo[i] = min
		hi[i] = max
	}
	return Rect[D]{Min: lo, Max: hi}
}

// Clone returns an independent copy so that Split never aliases a parent
// rect's backing arrays across sibling subtrees.
func (r Rect[D]) Clone() Rect[D] {
	return Rect[D]{Min: r.Min.Clone(), Max: r.Max.Clone()}
}

// Split narrows r at axis by pivot, producing the two child rects a KD-tree
// node's left and right subtrees are confined to.
func (r Rect[D]) Split(axis int, pivot D) (left, right Rect[D]) {
	left = r.Clone()
	right = r.Clone()
	left.Max[axis] = pivot
	right.Min[axis] = pivot
	return left, right
}

// ClosestPointTo clamps every coordinate of q into [Min[i], Max[i]]. The
// result equals q wherever q already lies inside the box. This is the only
// operation that affects KD-tree pruning correctness: the lower bound on
// any point in r's region is metric(r.ClosestPointTo(q), q).
func (r Rect[D]) ClosestPointTo(q engine.Point[D]) engine.Point[D] {
	out := make(engine.Point[D], len(q))
	for i, v := range q {
		switch {
		case v < r.Min[i]:
			out[i] = r.Min[i]
		case v > r.Max[i]:
			out[i] = r.Max[i]
		default:
			out[i] = v
		}
	}
	return out
}
