// Package bpl implements a bounded priority list: a fixed-capacity
// container that keeps the K best (element, priority) pairs seen so far,
// sorted ascending by priority. The KD-tree and voxel index both use it to
// accumulate k-NN candidates without ever holding more than k of them.
//
// Two parallel sorted slices are used rather than a binary heap: K is
// typically small (at most a few hundred), and a binary-searched insert
// into a contiguous array beats heap upkeep at that size.
package bpl

import "sort"

// List holds up to Capacity (element, priority) pairs, sorted ascending by
// priority. Priority ties are broken by stable insertion order: an item
// inserted with a priority equal to existing entries is placed after them.
type List[E any, P interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}] struct {
	capacity int
	elems    []E
	prios    []P
}

// New creates a List with the given fixed capacity. A non-positive capacity
// produces a list that rejects every Add.
func New[E any, P interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}](capacity int) *List[E, P] {
	if capacity < 0 {
		capacity = 0
	}
	return &List[E, P]{
		capacity: capacity,
		elems:    make([]E, 0, capacity),
		prios:    make([]P, 0, capacity),
	}
}

// Len returns the current element count (<= Capacity).
func (l *List[E, P]) Len() int { return len(l.elems) }

// Capacity returns the fixed capacity K this list was built with.
func (l *List[E, P]) Capacity() int { return l.capacity }

// IsFull reports whether Len() == Capacity(). A zero-capacity list never
// reports full.
func (l *List[E, P]) IsFull() bool { return l.capacity > 0 && len(l.elems) >= l.capacity }

// At returns the element and priority at sorted position i.
func (l *List[E, P]) At(i int) (E, P) { return l.elems[i], l.prios[i] }

// MinPriority returns the smallest stored priority (index 0). ok is false
// when the list is empty.
func (l *List[E, P]) MinPriority() (P, bool) {
	if len(l.prios) == 0 {
		var zero P
		return zero, false
	}
	return l.prios[0], true
}

// MaxPriority returns the largest stored priority (the priority of the last
// element). ok is false when the list is empty.
func (l *List[E, P]) MaxPriority() (P, bool) {
	if len(l.prios) == 0 {
		var zero P
		return zero, false
	}
	return l.prios[len(l.prios)-1], true
}

// Add inserts (e, p) if the list isn't full, or if p is strictly smaller
// than the current max (evicting it). Otherwise the insert is a no-op.
// Returns whether the element was kept.
func (l *List[E, P]) Add(e E, p P) bool {
	if l.capacity <= 0 {
		return false
	}

	if len(l.elems) < l.capacity {
		idx := sort.Search(len(l.prios), func(i int) bool { return l.prios[i] > p })
		l.insertAt(idx, e, p)
		return true
	}

	if p < l.prios[len(l.prios)-1] {
		idx := sort.Search(len(l.prios), func(i int) bool { return l.prios[i] > p })
		l.insertAt(idx, e, p)
		// insertAt grew the slices by one past capacity; drop the evicted max.
		l.elems = l.elems[:l.capacity]
		l.prios = l.prios[:l.capacity]
		return true
	}

	return false
}

func (l *List[E, P]) insertAt(idx int, e E, p P) {
	var zeroE E
	var zeroP P
	l.elems = append(l.elems, zeroE)
	l.prios = append(l.prios, zeroP)
	copy(l.elems[idx+1:], l.elems[idx:len(l.elems)-1])
	copy(l.prios[idx+1:], l.prios[idx:len(l.prios)-1])
	l.elems[idx] = e
	l.prios[idx] = p
}
