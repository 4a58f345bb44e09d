// Package engine holds the shared numeric constraint, point/payload types,
// and the uniform query surface (SearchMethod) implemented by every index
// kind in this module.
package engine

import "math"

// Number is the constraint a point's coordinate type must satisfy: total
// order, arithmetic, and conversion to/from float64 (needed for voxel cell
// sizing and for every metric's accumulation).
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// MaxValue returns the typed +∞ sentinel for D: the largest finite value
// for integer types, +Inf for floating types.
func MaxValue[D Number]() D {
	var zero D
	switch any(zero).(type) {
	case float32:
		return D(math.Inf(1))
	case float64:
		return D(math.Inf(1))
	case int:
		v := math.MaxInt
		return D(v)
	case int8:
		v := math.MaxInt8
		return D(v)
	case int16:
		v := math.MaxInt16
		return D(v)
	case int32:
		v := math.MaxInt32
		return D(v)
	case int64:
		v := math.MaxInt64
		return D(v)
	default:
		return D(math.Inf(1))
	}
}

// MinValue returns the typed -∞ sentinel for D.
func MinValue[D Number]() D {
	var zero D
	switch any(zero).(type) {
	case float32:
		return D(math.Inf(-1))
	case float64:
		return D(math.Inf(-1))
	case int:
		v := math.MinInt
		return D(v)
	case int8:
		v := math.MinInt8
		return D(v)
	case int16:
		v := math.MinInt16
		return D(v)
	case int32:
		v := math.MinInt32
		return D(v)
	case int64:
		v := math.MinInt64
		return D(v)
	default:
		return D(math.Inf(-1))
	}
}
