// Package voxel implements a uniform-grid index: points are bucketed into
// a regular d-dimensional grid of roughly min(N, 10^6) cells, and a query
// enumerates grid cells in concentric shells outward from the query's home
// cell until it can prove no closer point remains unvisited. The shell
// shape must match the metric (diamonds for L1, squares for Chebyshev,
// integer-radius spheres for squared Euclidean), so cosine distance, which
// has no grid-cell notion of locality, is not supported here.
package voxel

import (
	"fmt"
	"math"

	"github.com/nearestk/spatialindex/pkg/bpl"
	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/metric"
)

// maxCells is the hard ceiling on the total number of grid cells,
// regardless of N; it also keeps cell-index arithmetic far from overflow.
const maxCells = 1_000_000

// Config configures Build via BuildWithConfig; DefaultConfig returns the
// recommended value (squared-L2).
type Config struct {
	Metric metric.Kind
}

// DefaultConfig returns a Config using squared-L2.
func DefaultConfig() Config {
	return Config{Metric: metric.L2}
}

// BuildWithConfig is Build taking a Config value instead of a bare metric
// argument.
func BuildWithConfig[D engine.Number, N any](points []engine.Point[D], payloads []N, cfg Config) (*Grid[D, N], error) {
	return Build(points, payloads, cfg.Metric)
}

// Grid is an immutable, build-once uniform grid index over N points in d
// dimensions.
type Grid[D engine.Number, N any] struct {
	dim   int
	count int
	kind  metric.Kind
	dist  metric.Func[D]

	points   []engine.Point[D]
	payloads []N

	minima []float64
	maxima []float64

	sideLength float64
	invSide    float64

	cellsPerAxis    []int
	axisMultipliers []int
	buckets         [][]int

	shell shellFunc
}

// Build constructs a voxel grid over points/payloads of equal length using
// the named metric. Cosine distance has no grid-cell notion of locality and
// is rejected with engine.ErrUnsupportedMetric.
func Build[D engine.Number, N any](points []engine.Point[D], payloads []N, kind metric.Kind) (*Grid[D, N], error) {
	n := len(points)
	if n == 0 {
		return nil, engine.ErrEmptyInput
	}
	if n != len(payloads) {
		return nil, engine.ErrShapeMismatch
	}
	if !kind.VoxelSupported() {
		return nil, fmt.Errorf("voxel: %w: %v", engine.ErrUnsupportedMetric, kind)
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
		return nil, fmt.Errorf("voxel: %w", err)
	}

	g := &Grid[D, N]{
		dim:      d,
		count:    n,
		kind:     kind,
		dist:     distFn,
		points:   make([]engine.Point[D], n),
		payloads: make([]N, n),
		minima:   make([]float64, d),
		maxima:   make([]float64, d),
	}
	for i := range points {
		g.points[i] = points[i].Clone()
	}
	copy(g.payloads, payloads)

	for i := 0; i < d; i++ {
		g.minima[i] = float64(points[0][i])
		g.maxima[i] = float64(points[0][i])
	}
	for _, p := range points {
		for i := 0; i < d; i++ {
			v := float64(p[i])
			if v < g.minima[i] {
				g.minima[i] = v
			}
			if v > g.maxima[i] {
				g.maxima[i] = v
			}
		}
	}

	targetCells := n
	if targetCells > maxCells {
		targetCells = maxCells
	}
	g.computeGrid(targetCells)

	g.shell = shellFuncFor(kind)

	g.buckets = make([][]int, totalCells(g.cellsPerAxis))
	for idx, p := range g.points {
		coords := g.cellCoords(p)
		cell := g.cellIndex(coords)
		g.buckets[cell] = append(g.buckets[cell], idx)
	}

	return g, nil
}

// computeGrid picks sideLength so the regular grid has roughly targetCells
// cells, then derives per-axis cell counts and strides. The closed-form
// sideLength is only an approximation: independent per-axis rounding can
// push the actual cell count well past the target, so a single corrective
// pass re-scales sideLength when that happens.
func (g *Grid[D, N]) computeGrid(targetCells int) {
	volume := 1.0
	for i := 0; i < g.dim; i++ {
		volume *= (g.maxima[i] - g.minima[i])
	}

	sideLength := 1.0
	if volume > 0 {
		sideLength = math.Pow(volume/float64(targetCells), 1.0/float64(g.dim))
	}
	if sideLength <= 0 || math.IsNaN(sideLength) || math.IsInf(sideLength, 0) {
		sideLength = 1.0
	}

	cellsPerAxis, total := g.axisCounts(sideLength)
	if total > 4*targetCells && total > 4 {
		scale := math.Pow(float64(total)/float64(targetCells), 1.0/float64(g.dim))
		sideLength *= scale
		cellsPerAxis, total = g.axisCounts(sideLength)
	}
	// Per-axis rounding can still land above the hard cell ceiling; keep
	// coarsening until the bucket table fits.
	for total > maxCells {
		sideLength *= 2
		cellsPerAxis, total = g.axisCounts(sideLength)
	}

	g.sideLength = sideLength
	g.invSide = 1.0 / sideLength
	g.cellsPerAxis = cellsPerAxis
	g.axisMultipliers = strides(cellsPerAxis)
}

func (g *Grid[D, N]) axisCounts(sideLength float64) ([]int, int) {
	invSide := 1.0 / sideLength
	counts := make([]int, g.dim)
	total := 1
	for i := 0; i < g.dim; i++ {
		c := 1 + int(math.Floor((g.maxima[i]-g.minima[i])*invSide))
		if c < 1 {
			c = 1
		}
		counts[i] = c
		total *= c
	}
	return counts, total
}

func strides(cellsPerAxis []int) []int {
	out := make([]int, len(cellsPerAxis))
	stride := 1
	for i, c := range cellsPerAxis {
		out[i] = stride
		stride *= c
	}
	return out
}

func totalCells(cellsPerAxis []int) int {
	total := 1
	for _, c := range cellsPerAxis {
		total *= c
	}
	return total
}

func (g *Grid[D, N]) axisIndex(axis int, v float64) int {
	idx := int(math.Floor((v - g.minima[axis]) * g.invSide))
	if idx < 0 {
		idx = 0
	}
	if idx >= g.cellsPerAxis[axis] {
		idx = g.cellsPerAxis[axis] - 1
	}
	return idx
}

func (g *Grid[D, N]) cellCoords(p engine.Point[D]) []int {
	coords := make([]int, g.dim)
	for i, v := range p {
		coords[i] = g.axisIndex(i, float64(v))
	}
	return coords
}

func (g *Grid[D, N]) cellIndex(coords []int) int {
	idx := 0
	for i, c := range coords {
		idx += c * g.axisMultipliers[i]
	}
	return idx
}

// Dimensions returns d.
func (g *Grid[D, N]) Dimensions() int { return g.dim }

// Count returns N.
func (g *Grid[D, N]) Count() int { return g.count }

// AllData returns a cursor over every (point, payload) pair.
func (g *Grid[D, N]) AllData() engine.Cursor[D, N] {
	return engine.NewCursor(g.points, g.payloads, nil)
}

// Stats summarizes a built grid's shape, useful for tuning the target cell
// count without re-running a query.
type Stats struct {
	PointCount     int
	TotalCells     int
	PopulatedCells int
	CellsPerAxis   []int
	SideLength     float64
}

// Stats computes a snapshot of the grid's current shape.
func (g *Grid[D, N]) Stats() Stats {
	populated := 0
	for _, b := range g.buckets {
		if len(b) > 0 {
			populated++
		}
	}
	cellsPerAxis := make([]int, len(g.cellsPerAxis))
	copy(cellsPerAxis, g.cellsPerAxis)
	return Stats{
		PointCount:     g.count,
		TotalCells:     len(g.buckets),
		PopulatedCells: populated,
		CellsPerAxis:   cellsPerAxis,
		SideLength:     g.sideLength,
	}
}

// maxCellsPerAxis returns the largest per-axis cell count, used to detect
// when a radius search's layer cap would cover the entire grid.
func (g *Grid[D, N]) maxCellsPerAxis() int {
	m := 0
	for _, c := range g.cellsPerAxis {
		if c > m {
			m = c
		}
	}
	return m
}

// hardCap returns the largest layer that could possibly contain an in-grid
// cell, bounding every scan loop even when no tighter cap has been derived
// yet.
func (g *Grid[D, N]) hardCap() int {
	switch g.kind {
	case metric.L1:
		s := 0
		for _, c := range g.cellsPerAxis {
			s += c - 1
		}
		return s
	case metric.LInf:
		m := 0
		for _, c := range g.cellsPerAxis {
			if c-1 > m {
				m = c - 1
			}
		}
		return m
	case metric.L2:
		s := 0
		for _, c := range g.cellsPerAxis {
			s += (c - 1) * (c - 1)
		}
		return s
	default:
		return 0
	}
}

// layerCapFromDistance converts a known candidate distance (the metric's
// own value, so squared for L2) into the last shell layer that could still
// hold a closer point. A cell at per-axis offset o contributes at least
// (o-1) side lengths on that axis, which bounds the per-axis reach of the
// distance; the cap is the largest layer any cell within that reach can
// occupy. Safe overestimates, not tight ones.
func (g *Grid[D, N]) layerCapFromDistance(dist float64) int {
	switch g.kind {
	case metric.L2:
		reach := int(math.Ceil(math.Sqrt(dist)*g.invSide)) + 1
		return g.dim * reach * reach
	case metric.L1:
		return int(math.Ceil(dist*g.invSide)) + g.dim
	default: // LInf
		return int(math.Ceil(dist*g.invSide)) + 1
	}
}

// visitShell calls fn for every (pointIndex, distance) pair in the cells at
// the given layer around q's home cell.
func (g *Grid[D, N]) visitShell(q engine.Point[D], layer int, fn func(idx int, dist float64)) {
	home := g.cellCoords(q)
	coords := make([]int, g.dim)
	g.shell(g.dim, layer, func(delta []int) {
		for i := 0; i < g.dim; i++ {
			c := home[i] + delta[i]
			if c < 0 || c >= g.cellsPerAxis[i] {
				return
			}
			coords[i] = c
		}
		cell := g.cellIndex(coords)
		for _, idx := range g.buckets[cell] {
			fn(idx, g.dist(g.points[idx], q))
		}
	})
}

// NearestNeighbor returns the single closest point to q.
func (g *Grid[D, N]) NearestNeighbor(q engine.Point[D]) (engine.Pair[D, N], bool, error) {
	if len(q) != g.dim {
		return engine.Pair[D, N]{}, false, engine.ErrShapeMismatch
	}

	list := bpl.New[int, float64](1)
	cap := -1
	hard := g.hardCap()
	for layer := 0; layer <= hard; layer++ {
		found := false
		g.visitShell(q, layer, func(idx int, dist float64) {
			if list.Add(idx, dist) {
				found = true
			}
		})
		if found && cap < 0 {
			if best, ok := list.MaxPriority(); ok {
				cap = g.layerCapFromDistance(best)
			}
		}
		if cap >= 0 && layer >= cap {
			break
		}
	}

	if list.Len() == 0 {
		return engine.Pair[D, N]{}, false, nil
	}
	idx, d := list.At(0)
	return engine.Pair[D, N]{Point: g.points[idx], Payload: g.payloads[idx], Dist: d}, true, nil
}

// NearestNeighbors returns up to k points closest to q, ascending distance.
func (g *Grid[D, N]) NearestNeighbors(q engine.Point[D], k int) ([]engine.Pair[D, N], error) {
	if len(q) != g.dim {
		return nil, engine.ErrShapeMismatch
	}
	if k <= 0 || k >= g.count {
		return g.allPairs(q), nil
	}

	list := bpl.New[int, float64](k)
	cap := -1
	hard := g.hardCap()
	for layer := 0; layer <= hard; layer++ {
		g.visitShell(q, layer, func(idx int, dist float64) {
			list.Add(idx, dist)
		})
		if cap < 0 && list.IsFull() {
			// The kth distance only shrinks from here, so a cap derived
			// from it now stays safe for the rest of the scan.
			if worst, ok := list.MaxPriority(); ok {
				cap = g.layerCapFromDistance(worst)
			}
		}
		if cap >= 0 && layer >= cap {
			break
		}
	}

	return g.materialize(list), nil
}

// NeighborsInRadius returns up to k points within radius of q, ascending
// distance. A negative radius returns an empty result.
func (g *Grid[D, N]) NeighborsInRadius(q engine.Point[D], radius float64, k int) ([]engine.Pair[D, N], error) {
	if len(q) != g.dim {
		return nil, engine.ErrShapeMismatch
	}
	if radius < 0 {
		return nil, nil
	}

	effRadius := radius
	if g.kind.SquaresRadius() {
		effRadius = radius * radius
	}
	capK := k
	if capK <= 0 {
		capK = g.count
	}

	// reach is the largest per-axis cell offset the radius can span; when
	// it covers the whole grid a plain scan beats shell bookkeeping.
	reach := int(math.Ceil(radius*g.invSide)) + 1
	if reach >= g.maxCellsPerAxis() {
		return g.exhaustiveRadius(q, effRadius, capK), nil
	}

	maxLayer := g.layerCapFromDistance(effRadius)
	list := bpl.New[int, float64](capK)
	for layer := 0; layer <= maxLayer; layer++ {
		g.visitShell(q, layer, func(idx int, dist float64) {
			if dist <= effRadius {
				list.Add(idx, dist)
			}
		})
	}
	return g.materialize(list), nil
}

func (g *Grid[D, N]) exhaustiveRadius(q engine.Point[D], effRadius float64, capK int) []engine.Pair[D, N] {
	list := bpl.New[int, float64](capK)
	for i, p := range g.points {
		d := g.dist(p, q)
		if d <= effRadius {
			list.Add(i, d)
		}
	}
	return g.materialize(list)
}

func (g *Grid[D, N]) allPairs(q engine.Point[D]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], g.count)
	for i, p := range g.points {
		out[i] = engine.Pair[D, N]{Point: p, Payload: g.payloads[i], Dist: g.dist(p, q)}
	}
	return out
}

func (g *Grid[D, N]) materialize(list *bpl.List[int, float64]) []engine.Pair[D, N] {
	out := make([]engine.Pair[D, N], list.Len())
	for i := 0; i < list.Len(); i++ {
		idx, d := list.At(i)
		out[i] = engine.Pair[D, N]{Point: g.points[idx], Payload: g.payloads[idx], Dist: d}
	}
	return out
}
