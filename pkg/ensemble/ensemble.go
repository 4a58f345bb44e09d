// Package ensemble implements the concurrent composite index: it builds a
// KD-tree and a voxel grid (and, optionally, a linear scanner) over the
// same point set and races them on every query, one goroutine per
// sub-index. Nearest-1 returns as soon as the first sub-index answers;
// k-NN and radius queries run every sub-index to completion and merge
// their results, deduplicating by coordinate equality.
//
// The two index families have very different cost profiles (the grid wins
// on dense uniform low-d data, the tree on everything else); racing them
// bounds worst-case latency at the cost of redundant work.
package ensemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/kdtree"
	"github.com/nearestk/spatialindex/pkg/linear"
	"github.com/nearestk/spatialindex/pkg/metric"
	"github.com/nearestk/spatialindex/pkg/voxel"
)

// Options controls which sub-indices the ensemble runs and how race
// outcomes are reported.
type Options struct {
	// IncludeLinear additionally races the linear scan baseline alongside
	// the KD-tree and voxel index.
	IncludeLinear bool
	// WinObserver, when non-nil, is called with the name of the sub-index
	// ("kdtree", "voxel", "linear") that answered a NearestNeighbor race
	// first. Must be safe for concurrent use.
	WinObserver func(subindex string)
}

// Ensemble holds one instance of the KD-tree, voxel, and (optionally)
// linear indices built over the same point set.
type Ensemble[D engine.Number, N any] struct {
	dim   int
	count int

	kd     *kdtree.Tree[D, N]
	voxel  *voxel.Grid[D, N] // nil when the metric doesn't support voxel search (Cosine)
	linear *linear.Scanner[D, N]

	winObserver func(subindex string)
}

// Build constructs the KD-tree, voxel, and (if requested) linear sub-indices
// over the same points/payloads. dimMin/dimMax (in D's units) feed the
// KD-tree's root hyper-rectangle bounds.
func Build[D engine.Number, N any](points []engine.Point[D], payloads []N, kind metric.Kind, dimMin, dimMax *D, opts Options) (*Ensemble[D, N], error) {
	n := len(points)
	if n == 0 {
		return nil, engine.ErrEmptyInput
	}
	if n != len(payloads) {
		return nil, engine.ErrShapeMismatch
	}

	kd, err := kdtree.Build(points, payloads, kind, dimMin, dimMax)
	if err != nil {
		return nil, fmt.Errorf("ensemble: kdtree: %w", err)
	}

	e := &Ensemble[D, N]{
		dim:         kd.Dimensions(),
		count:       kd.Count(),
		kd:          kd,
		winObserver: opts.WinObserver,
	}

	if kind.VoxelSupported() {
		vox, err := voxel.Build(points, payloads, kind)
		if err != nil {
			return nil, fmt.Errorf("ensemble: voxel: %w", err)
		}
		e.voxel = vox
	}

	if opts.IncludeLinear {
		lin, err := linear.Build(points, payloads, kind)
		if err != nil {
			return nil, fmt.Errorf("ensemble: linear: %w", err)
		}
		e.linear = lin
	}

	return e, nil
}

// Dimensions returns d.
func (e *Ensemble[D, N]) Dimensions() int { return e.dim }

// Count returns N.
func (e *Ensemble[D, N]) Count() int { return e.count }

// AllData returns a cursor over every (point, payload) pair, sourced from
// the KD-tree (every sub-index holds the same point set).
func (e *Ensemble[D, N]) AllData() engine.Cursor[D, N] { return e.kd.AllData() }

type subIndex[D engine.Number, N any] struct {
	name   string
	method engine.SearchMethod[D, N]
}

func (e *Ensemble[D, N]) subIndices() []subIndex[D, N] {
	subs := make([]subIndex[D, N], 0, 3)
	subs = append(subs, subIndex[D, N]{name: "kdtree", method: e.kd})
	if e.voxel != nil {
		subs = append(subs, subIndex[D, N]{name: "voxel", method: e.voxel})
	}
	if e.linear != nil {
		subs = append(subs, subIndex[D, N]{name: "linear", method: e.linear})
	}
	return subs
}

type singleResult[D engine.Number, N any] struct {
	name string
	pair engine.Pair[D, N]
	ok   bool
	err  error
}

// NearestNeighbor launches every sub-index concurrently and returns the
// first one to complete without error. The remaining sub-indices keep
// running to completion but their results are discarded; they are never
// cancelled.
func (e *Ensemble[D, N]) NearestNeighbor(q engine.Point[D]) (engine.Pair[D, N], bool, error) {
	subs := e.subIndices()
	results := make(chan singleResult[D, N], len(subs))

	for _, sub := range subs {
		go func(sub subIndex[D, N]) {
			pair, ok, err := sub.method.NearestNeighbor(q)
			results <- singleResult[D, N]{name: sub.name, pair: pair, ok: ok, err: err}
		}(sub)
	}

	for i := 0; i < len(subs); i++ {
		r := <-results
		if r.err != nil {
			// A sub-index fault is swallowed; the race continues with the
			// remaining sub-indices.
			continue
		}
		if e.winObserver != nil {
			e.winObserver(r.name)
		}
		return r.pair, r.ok, nil
	}
	return engine.Pair[D, N]{}, false, nil
}

type manyResult[D engine.Number, N any] struct {
	pairs []engine.Pair[D, N]
	err   error
}

// NearestNeighbors runs every sub-index to completion and merges their
// results in completion order, deduplicating by coordinate equality so a
// caller consuming the full stream sees each point once. Within one
// sub-index's contribution, order is its own ascending-distance order.
func (e *Ensemble[D, N]) NearestNeighbors(q engine.Point[D], k int) ([]engine.Pair[D, N], error) {
	return e.mergeAll(func(m engine.SearchMethod[D, N]) ([]engine.Pair[D, N], error) {
		return m.NearestNeighbors(q, k)
	})
}

// NeighborsInRadius runs every sub-index to completion and merges their
// results the same way NearestNeighbors does.
func (e *Ensemble[D, N]) NeighborsInRadius(q engine.Point[D], radius float64, k int) ([]engine.Pair[D, N], error) {
	return e.mergeAll(func(m engine.SearchMethod[D, N]) ([]engine.Pair[D, N], error) {
		return m.NeighborsInRadius(q, radius, k)
	})
}

func (e *Ensemble[D, N]) mergeAll(query func(engine.SearchMethod[D, N]) ([]engine.Pair[D, N], error)) ([]engine.Pair[D, N], error) {
	subs := e.subIndices()
	results := make(chan manyResult[D, N], len(subs))

	for _, sub := range subs {
		go func(m engine.SearchMethod[D, N]) {
			pairs, err := query(m)
			results <- manyResult[D, N]{pairs: pairs, err: err}
		}(sub.method)
	}

	seen := make(map[string]bool)
	merged := make([]engine.Pair[D, N], 0)
	var firstErr error
	for i := 0; i < len(subs); i++ {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		for _, p := range r.pairs {
			key := dedupeKey(p.Point)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, p)
		}
	}

	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

// dedupeKey builds a coordinate-wise string key used to identify duplicate
// points returned by different sub-indices. Safe for numeric types with
// value semantics; NaN coordinates are not supported.
func dedupeKey[D engine.Number](p engine.Point[D]) string {
	var sb strings.Builder
	for _, v := range p {
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
		sb.WriteByte('|')
	}
	return sb.String()
}
