// Package selectutil implements the quickselect the KD-tree builder uses to
// find the median of a 1-D axis projection in-place, without a full sort.
package selectutil

import "github.com/nearestk/spatialindex/pkg/engine"

// NthPosition returns the value that would occupy sorted position n in
// values, using in-place Lomuto quickselect with the last element of each
// partition as pivot. values is reordered in the process; the caller must
// not rely on its order afterward.
//
// This does not guarantee the classical quickselect property that every
// element strictly less than the result ends up to its left, only that
// some value equal to the true n-th order statistic is returned. The
// KD-tree build only relies on that weaker guarantee.
func NthPosition[D engine.Number](values []D, n int) D {
	lo, hi := 0, len(values)-1
	for lo < hi {
		p := partition(values, lo, hi)
		switch {
		case p == n:
			return values[n]
		case n < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	return values[n]
}

func partition[D engine.Number](values []D, lo, hi int) int {
	pivot := values[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if values[j] <= pivot {
			values[i], values[j] = values[j], values[i]
			i++
		}
	}
	values[i], values[hi] = values[hi], values[i]
	return i
}
