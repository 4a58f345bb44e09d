package voxel

import (
	"math"

	"github.com/nearestk/spatialindex/pkg/metric"
)

// shellFunc enumerates every integer offset vector δ at the given layer
// around a home cell, calling emit once per offset. layer 0 always emits
// exactly the zero vector (the home cell itself).
type shellFunc func(dim, layer int, emit func(delta []int))

// shellFuncFor selects the enumerator matching kind's neighbor-shell
// shape. L∞ gets its own max|δ|==layer square-shell enumerator; reusing
// the L2 sphere enumerator would skip cells whose squared offset is not
// an exact layer value and miss Chebyshev candidates.
func shellFuncFor(kind metric.Kind) shellFunc {
	switch kind {
	case metric.L1:
		return l1Shell
	case metric.LInf:
		return lInfShell
	case metric.L2:
		return l2Shell
	default:
		return l2Shell
	}
}

// l1Shell enumerates diamond shells: Σ|δᵢ| == layer.
func l1Shell(dim, layer int, emit func(delta []int)) {
	mags := make([]int, dim)
	var rec func(pos, remaining int)
	rec = func(pos, remaining int) {
		if pos == dim-1 {
			mags[pos] = remaining
			emitSignVariants(mags, emit)
			return
		}
		for v := 0; v <= remaining; v++ {
			mags[pos] = v
			rec(pos+1, remaining-v)
		}
	}
	rec(0, layer)
}

// lInfShell enumerates square shells: max|δᵢ| == layer.
func lInfShell(dim, layer int, emit func(delta []int)) {
	if layer == 0 {
		emitSignVariants(make([]int, dim), emit)
		return
	}
	mags := make([]int, dim)
	var rec func(pos int, hasMax bool)
	rec = func(pos int, hasMax bool) {
		if pos == dim {
			if hasMax {
				emitSignVariants(mags, emit)
			}
			return
		}
		for v := 0; v <= layer; v++ {
			mags[pos] = v
			rec(pos+1, hasMax || v == layer)
		}
	}
	rec(0, false)
}

// l2Shell enumerates integer-radius spherical shells: Σδᵢ² == layer. In low
// dimension many layers are empty, since not every integer is a sum of d
// squares (from d = 4 on, every integer is).
func l2Shell(dim, layer int, emit func(delta []int)) {
	mags := make([]int, dim)
	var rec func(pos, remaining int)
	rec = func(pos, remaining int) {
		if pos == dim-1 {
			r := int(math.Round(math.Sqrt(float64(remaining))))
			if r*r == remaining {
				mags[pos] = r
				emitSignVariants(mags, emit)
			}
			return
		}
		limit := int(math.Sqrt(float64(remaining)))
		for v := 0; v <= limit; v++ {
			mags[pos] = v
			rec(pos+1, remaining-v*v)
		}
	}
	rec(0, layer)
}

// emitSignVariants emits every sign combination of mags' nonzero
// components, matching each magnitude vector to its full set of shell
// offsets.
func emitSignVariants(mags []int, emit func(delta []int)) {
	nonzero := make([]int, 0, len(mags))
	for i, m := range mags {
		if m != 0 {
			nonzero = append(nonzero, i)
		}
	}

	combos := 1 << len(nonzero)
	out := make([]int, len(mags))
	for mask := 0; mask < combos; mask++ {
		copy(out, mags)
		for bit, idx := range nonzero {
			if mask&(1<<bit) != 0 {
				out[idx] = -out[idx]
			}
		}
		emit(out)
	}
}
