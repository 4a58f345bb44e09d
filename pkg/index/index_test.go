package index

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

func TestCreate_EveryKindAnswersTheSameNearestNeighbor(t *testing.T) {
	points, payloads := wikiPoints()
	q := engine.Point[float64]{9, 2}

	for _, kind := range []Kind{KDTree, Voxel, Linear, Ensemble} {
		method, err := Create(kind, points, payloads, metric.L2, Options[float64]{})
		if err != nil {
			t.Fatalf("kind %v: unexpected error: %v", kind, err)
		}
		pair, found, err := method.NearestNeighbor(q)
		if err != nil {
			t.Fatalf("kind %v: query failed: %v", kind, err)
		}
		if !found || pair.Payload != "F" {
			t.Errorf("kind %v: expected F, got found=%v payload=%v", kind, found, pair.Payload)
		}
	}
}

func TestCreate_VoxelRejectsCosine(t *testing.T) {
	points, payloads := wikiPoints()
	if _, err := Create(Voxel, points, payloads, metric.Cosine, Options[float64]{}); err == nil {
		t.Fatal("expected an error requesting a voxel index over Cosine distance")
	}
}

func TestCreate_UnknownKindErrors(t *testing.T) {
	points, payloads := wikiPoints()
	if _, err := Create(Kind(99), points, payloads, metric.L2, Options[float64]{}); err == nil {
		t.Fatal("expected an error for an unrecognized index kind")
	}
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{KDTree: "kdtree", Voxel: "voxel", Linear: "linear", Ensemble: "ensemble"}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("kind %d: expected %s, got %s", kind, want, got)
		}
	}
}
