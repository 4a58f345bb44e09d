package kdtree

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

func TestBuild_RejectsEmptyInput(t *testing.T) {
	if _, err := Build[float64, string](nil, nil, metric.L2, nil, nil); err != engine.ErrEmptyInput {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestBuild_RejectsShapeMismatch(t *testing.T) {
	points, _ := wikiPoints()
	if _, err := Build[float64, string](points, []string{"only one"}, metric.L2, nil, nil); err != engine.ErrShapeMismatch {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestNearestNeighbor_WikipediaExample(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, found, err := tree.NearestNeighbor(engine.Point[float64]{9, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a result")
	}
	if pair.Payload != "F" || !pair.Point.Equal(engine.Point[float64]{8, 1}) {
		t.Errorf("expected ((8,1),F), got (%v,%v)", pair.Point, pair.Payload)
	}
}

func TestNearestNeighbors_WikipediaExampleK3(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := tree.NearestNeighbors(engine.Point[float64]{9, 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Squared distances from (9,2): F=2, A=4, E=16.
	wantOrder := []string{"F", "A", "E"}
	for i, want := range wantOrder {
		if results[i].Payload != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].Payload)
		}
	}
}

func TestNeighborsInRadius_MatchesRadiusBound(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := engine.Point[float64]{5, 5}
	results, err := tree.NeighborsInRadius(q, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range results {
		dx, dy := r.Point[0]-q[0], r.Point[1]-q[1]
		dist := dx*dx + dy*dy
		if dist > 4 {
			t.Errorf("result %v exceeds radius: dist²=%v > 4", r.Point, dist)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Dist < results[i-1].Dist {
			t.Errorf("results not ascending by distance at index %d", i)
		}
	}
}

func TestNearestNeighbors_KGreaterThanCountReturnsEverything(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := tree.NearestNeighbors(engine.Point[float64]{0, 0}, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(points) {
		t.Errorf("expected all %d points, got %d", len(points), len(results))
	}
}

func TestAllData_VisitsEveryPoint(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]bool{}
	cursor := tree.AllData()
	for {
		pair, ok := cursor.Next()
		if !ok {
			break
		}
		seen[pair.Payload] = true
	}
	for _, want := range payloads {
		if !seen[want] {
			t.Errorf("expected payload %s to be visited", want)
		}
	}
}

func TestStats_ReflectsBuiltShape(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := tree.Stats()
	if stats.NodeCount != 6 {
		t.Errorf("expected 6 nodes, got %d", stats.NodeCount)
	}
	if stats.ArraySize != 8 {
		t.Errorf("expected heap-array size 8 for 6 points, got %d", stats.ArraySize)
	}
	if stats.Dimensions != 2 {
		t.Errorf("expected 2 dimensions, got %d", stats.Dimensions)
	}
	if stats.Height != 2 {
		t.Errorf("expected a balanced tree of height 2 over 6 points, got %d", stats.Height)
	}
}

func TestBuildWithConfig_DefaultsToL2(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := BuildWithConfig(points, payloads, DefaultConfig[float64]())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, found, err := tree.NearestNeighbor(engine.Point[float64]{9, 2})
	if err != nil || !found {
		t.Fatalf("query failed: found=%v err=%v", found, err)
	}
	if pair.Dist != 2 {
		t.Errorf("expected squared L2 distance 2, got %v", pair.Dist)
	}
}

func TestNearestNeighbors_ShapeMismatchErrors(t *testing.T) {
	points, payloads := wikiPoints()
	tree, err := Build(points, payloads, metric.L2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tree.NearestNeighbors(engine.Point[float64]{1, 2, 3}, 1); err != engine.ErrShapeMismatch {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}
