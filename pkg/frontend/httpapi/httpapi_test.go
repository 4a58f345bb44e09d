package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nearestk/spatialindex/internal/metrics"
	"github.com/nearestk/spatialindex/internal/xlog"
	"github.com/nearestk/spatialindex/pkg/frontend/ratelimit"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.RateLimit = ratelimit.Config{Enabled: false}
	logger := xlog.New(xlog.Error, nil)
	m := metrics.New(prometheus.NewRegistry())
	return New(cfg, logger, m)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createWikiIndex(t *testing.T, s *Server, name, kind string) {
	t.Helper()
	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices", map[string]any{
		"name":     name,
		"kind":     kind,
		"metric":   "l2",
		"points":   [][]float64{{7, 2}, {5, 4}, {2, 3}, {4, 7}, {9, 6}, {8, 1}},
		"payloads": []string{"A", "B", "C", "D", "E", "F"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAndQueryNearest(t *testing.T) {
	s := newTestServer(t, Config{})
	createWikiIndex(t, s, "wiki", "kdtree")

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices/wiki/nearest", map[string]any{
		"point": []float64{9, 2},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("nearest returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Found  bool `json:"found"`
		Result struct {
			Point   []float64 `json:"point"`
			Payload string    `json:"payload"`
			Dist    float64   `json:"dist"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Found || resp.Result.Payload != "F" {
		t.Errorf("expected payload \"F\", got found=%v payload=%s", resp.Found, resp.Result.Payload)
	}
	if resp.Result.Dist != 2 {
		t.Errorf("expected squared distance 2, got %v", resp.Result.Dist)
	}
}

func TestQueryKNN_OrderedResults(t *testing.T) {
	s := newTestServer(t, Config{})
	createWikiIndex(t, s, "wiki", "ensemble")

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices/wiki/knn", map[string]any{
		"point": []float64{9, 2},
		"k":     3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("knn returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Payload string  `json:"payload"`
			Dist    float64 `json:"dist"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Payload != "F" {
		t.Errorf("expected F first, got %s", resp.Results[0].Payload)
	}
}

func TestQueryKNN_RejectsOversizedK(t *testing.T) {
	s := newTestServer(t, Config{MaxQueryK: 5})
	createWikiIndex(t, s, "wiki", "kdtree")

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices/wiki/knn", map[string]any{
		"point": []float64{9, 2},
		"k":     50,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for k above the configured maximum, got %d", rec.Code)
	}
}

func TestQuery_UnknownIndexReturns404(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices/missing/nearest", map[string]any{
		"point": []float64{0, 0},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown index, got %d", rec.Code)
	}
}

func TestCreate_RejectsVoxelWithCosine(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices", map[string]any{
		"name":   "bad",
		"kind":   "voxel",
		"metric": "cosine",
		"points": [][]float64{{1, 0}, {0, 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for voxel+cosine, got %d", rec.Code)
	}
}

func TestCreate_DefaultsFromConfig(t *testing.T) {
	s := newTestServer(t, Config{DefaultKind: "linear", DefaultMetric: "l1"})

	rec := doJSON(t, s.httpServer.Handler, http.MethodPost, "/v1/indices", map[string]any{
		"name":   "defaulted",
		"points": [][]float64{{1, 1}, {2, 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	s.mu.RLock()
	idx := s.indices["defaulted"]
	s.mu.RUnlock()
	if idx.kind.String() != "linear" {
		t.Errorf("expected config default kind linear, got %s", idx.kind)
	}
}
