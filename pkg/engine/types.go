package engine

// Point is an ordered sequence of d coordinates of numeric type D. All
// points within one index share d.
type Point[D Number] []D

// Equal reports coordinate-wise equality, the identity the ensemble
// dedupes merged sub-index results by. NaN coordinates are not supported
// and are not handled specially here.
func (p Point[D]) Equal(other Point[D]) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the point so that index construction
// never aliases caller-owned slices.
func (p Point[D]) Clone() Point[D] {
	cp := make(Point[D], len(p))
	copy(cp, p)
	return cp
}

// Pair couples a point with its associated payload and the distance the
// query's metric produced for it (squared for L2, un-rooted for the rest).
type Pair[D Number, N any] struct {
	Point   Point[D]
	Payload N
	Dist    float64
}

// Cursor iterates the (point, payload) pairs an index holds, in unspecified
// order, without copying the whole backing store up front.
type Cursor[D Number, N any] struct {
	points   []Point[D]
	payloads []N
	present  []bool // nil means every slot is present
	i        int
}

// NewCursor builds a cursor over parallel points/payloads slices. present,
// when non-nil, marks which slots are live (used by the KD-tree's sparse
// heap-array storage); pass nil when every slot holds a point.
func NewCursor[D Number, N any](points []Point[D], payloads []N, present []bool) Cursor[D, N] {
	return Cursor[D, N]{points: points, payloads: payloads, present: present}
}

// Next returns the next live pair, advancing the cursor; ok is false once
// exhausted.
func (c *Cursor[D, N]) Next() (Pair[D, N], bool) {
	for c.i < len(c.points) {
		idx := c.i
		c.i++
		if c.present != nil && !c.present[idx] {
			continue
		}
		return Pair[D, N]{Point: c.points[idx], Payload: c.payloads[idx]}, true
	}
	return Pair[D, N]{}, false
}

// SearchMethod is the uniform query surface every index kind exposes.
type SearchMethod[D Number, N any] interface {
	// Dimensions returns d, the shared coordinate count of every point.
	Dimensions() int
	// Count returns the number of points the index holds.
	Count() int
	// AllData returns a cursor over every (point, payload) pair; order is
	// unspecified.
	AllData() Cursor[D, N]
	// NearestNeighbor returns the single closest point to q, if any.
	NearestNeighbor(q Point[D]) (Pair[D, N], bool, error)
	// NearestNeighbors returns up to k points closest to q, ascending
	// distance. k <= 0 or k >= Count() returns every point, unordered.
	NearestNeighbors(q Point[D], k int) ([]Pair[D, N], error)
	// NeighborsInRadius returns up to k points within radius of q (ascending
	// distance); k <= 0 means uncapped. radius is un-squared even for L2.
	NeighborsInRadius(q Point[D], radius float64, k int) ([]Pair[D, N], error)
}
