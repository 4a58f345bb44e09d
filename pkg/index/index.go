// Package index exposes the single factory surface every caller goes
// through: Create builds whichever underlying SearchMethod the requested
// Kind names, over the same (points, payloads, metric) triple.
package index

import (
	"fmt"

	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/ensemble"
	"github.com/nearestk/spatialindex/pkg/kdtree"
	"github.com/nearestk/spatialindex/pkg/linear"
	"github.com/nearestk/spatialindex/pkg/metric"
	"github.com/nearestk/spatialindex/pkg/voxel"
)

// Kind names which underlying implementation Create builds.
type Kind int

const (
	// KDTree builds a balanced KD-tree.
	KDTree Kind = iota
	// Voxel builds a uniform grid index. Not valid with metric.Cosine.
	Voxel
	// Linear builds the exhaustive scan baseline.
	Linear
	// Ensemble races KD-tree, voxel (when supported), and optionally linear
	// concurrently.
	Ensemble
)

func (k Kind) String() string {
	switch k {
	case KDTree:
		return "kdtree"
	case Voxel:
		return "voxel"
	case Linear:
		return "linear"
	case Ensemble:
		return "ensemble"
	default:
		return "unknown"
	}
}

// Options configures Create. DimMin/DimMax override the KD-tree's sentinel
// ±∞ root bounds; EnsembleLinear additionally races the linear scanner when
// Kind is Ensemble; EnsembleWinObserver, when non-nil, receives the name of
// the sub-index that answers each ensemble nearest-neighbor race first.
type Options[D engine.Number] struct {
	DimMin              *D
	DimMax              *D
	EnsembleLinear      bool
	EnsembleWinObserver func(subindex string)
}

// Create builds the named index kind over points/payloads using the given
// metric. It returns engine.SearchMethod so callers can hold the result
// without naming the concrete implementation type.
func Create[D engine.Number, N any](kind Kind, points []engine.Point[D], payloads []N, metricKind metric.Kind, opts Options[D]) (engine.SearchMethod[D, N], error) {
	switch kind {
	case KDTree:
		return kdtree.Build(points, payloads, metricKind, opts.DimMin, opts.DimMax)
	case Voxel:
		if !metricKind.VoxelSupported() {
			return nil, fmt.Errorf("index: voxel: %w", engine.ErrUnsupportedMetric)
		}
		return voxel.Build(points, payloads, metricKind)
	case Linear:
		return linear.Build(points, payloads, metricKind)
	case Ensemble:
		return ensemble.Build(points, payloads, metricKind, opts.DimMin, opts.DimMax, ensemble.Options{
			IncludeLinear: opts.EnsembleLinear,
			WinObserver:   opts.EnsembleWinObserver,
		})
	default:
		return nil, fmt.Errorf("index: unknown kind %d", kind)
	}
}
