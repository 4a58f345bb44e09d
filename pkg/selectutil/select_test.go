package selectutil

import (
	"sort"
	"testing"
)

func TestNthPosition_MatchesSortedOrder(t *testing.T) {
	values := []int{9, 3, 7, 1, 8, 2, 6, 5, 4}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	for n := range sorted {
		input := append([]int(nil), values...)
		got := NthPosition(input, n)
		if got != sorted[n] {
			t.Errorf("NthPosition(%d): expected %d, got %d", n, sorted[n], got)
		}
	}
}

func TestNthPosition_SingleElement(t *testing.T) {
	values := []float64{42}
	if got := NthPosition(values, 0); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestNthPosition_AllEqual(t *testing.T) {
	values := []int{5, 5, 5, 5}
	if got := NthPosition(values, 2); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestNthPosition_Median(t *testing.T) {
	values := []int{5, 3, 1, 4, 2}
	got := NthPosition(values, 2)
	if got != 3 {
		t.Errorf("expected median 3, got %d", got)
	}
}
