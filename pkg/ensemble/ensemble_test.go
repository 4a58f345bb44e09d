package ensemble

import (
	"testing"

	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/metric"
)

func wikiPoints() ([]engine.Point[float64], []string) {
	points := []engine.Point[float64]{
		{7, 2}, {5, 4}, {2, 3}, {4, 7}, {9, 6}, {8, 1},
	}
	payloads := []string{"A", "B", "C", "D", "E", "F"}
	return points, payloads
}

func TestBuild_DefaultOptionsOmitsLinear(t *testing.T) {
	points, payloads := wikiPoints()
	ens, err := Build(points, payloads, metric.L2, nil, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ens.linear != nil {
		t.Error("expected linear sub-index to be absent without IncludeLinear")
	}
	if ens.voxel == nil {
		t.Error("expected voxel sub-index for an L2 build")
	}
}

func TestBuild_CosineOmitsVoxel(t *testing.T) {
	points, payloads := wikiPoints()
	ens, err := Build(points, payloads, metric.Cosine, nil, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ens.voxel != nil {
		t.Error("expected voxel sub-index to be absent for Cosine metric")
	}
}

func TestNearestNeighbor_ReturnsAWinningResult(t *testing.T) {
	points, payloads := wikiPoints()
	ens, err := Build(points, payloads, metric.L2, nil, nil, Options{IncludeLinear: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, found, err := ens.NearestNeighbor(engine.Point[float64]{9, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || pair.Payload != "F" {
		t.Errorf("expected F, got found=%v payload=%v", found, pair.Payload)
	}
}

func TestNearestNeighbors_MergedResultsAreDeduped(t *testing.T) {
	points, payloads := wikiPoints()
	ens, err := Build(points, payloads, metric.L2, nil, nil, Options{IncludeLinear: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := ens.NearestNeighbors(engine.Point[float64]{9, 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Payload] {
			t.Errorf("payload %s appeared more than once", r.Payload)
		}
		seen[r.Payload] = true
	}
	if len(results) != 3 {
		t.Errorf("expected 3 merged results, got %d", len(results))
	}
}

func TestBuild_RejectsEmptyInput(t *testing.T) {
	if _, err := Build[float64, string](nil, nil, metric.L2, nil, nil, Options{}); err != engine.ErrEmptyInput {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestNearestNeighbor_ReportsWinnerToObserver(t *testing.T) {
	points, payloads := wikiPoints()

	wins := make(chan string, 1)
	ens, err := Build(points, payloads, metric.L2, nil, nil, Options{
		WinObserver: func(subindex string) { wins <- subindex },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := ens.NearestNeighbor(engine.Point[float64]{9, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case winner := <-wins:
		if winner != "kdtree" && winner != "voxel" {
			t.Errorf("unexpected winning sub-index %q", winner)
		}
	default:
		t.Error("expected the win observer to be called")
	}
}

func TestDedupeKey_DistinguishesDifferentPoints(t *testing.T) {
	a := dedupeKey(engine.Point[float64]{1, 2})
	b := dedupeKey(engine.Point[float64]{1, 3})
	if a == b {
		t.Error("expected distinct points to produce distinct dedupe keys")
	}
	c := dedupeKey(engine.Point[float64]{1, 2})
	if a != c {
		t.Error("expected identical points to produce identical dedupe keys")
	}
}
