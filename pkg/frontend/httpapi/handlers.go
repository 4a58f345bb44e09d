package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nearestk/spatialindex/pkg/engine"
	"github.com/nearestk/spatialindex/pkg/index"
	"github.com/nearestk/spatialindex/pkg/metric"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"status": "ok"}, http.StatusOK)
}

type createIndexRequest struct {
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Metric   string          `json:"metric"`
	Points   [][]float64     `json:"points"`
	Payloads json.RawMessage `json:"payloads"`
}

// handleCreateIndex handles POST /v1/indices.
func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	kindName := req.Kind
	if kindName == "" {
		kindName = s.cfg.DefaultKind
	}
	kind, err := parseKind(kindName)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	metricName := req.Metric
	if metricName == "" {
		metricName = s.cfg.DefaultMetric
	}
	metricKind, err := parseMetric(metricName)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var payloads []json.RawMessage
	if len(req.Payloads) > 0 {
		if err := json.Unmarshal(req.Payloads, &payloads); err != nil {
			writeError(w, "invalid payloads: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if payloads == nil {
		payloads = make([]json.RawMessage, len(req.Points))
	}

	points := make([]engine.Point[float64], len(req.Points))
	for i, p := range req.Points {
		points[i] = engine.Point[float64](p)
	}

	start := time.Now()
	method, err := index.Create[float64, json.RawMessage](kind, points, payloads, metricKind, index.Options[float64]{
		EnsembleLinear:      s.cfg.EnsembleLinear,
		EnsembleWinObserver: s.metrics.ObserveEnsembleWin,
	})
	s.metrics.ObserveBuild(kind.String(), err, time.Since(start), len(points))
	if err != nil {
		writeError(w, "build failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.indices[req.Name] = namedIndex{kind: kind, metric: metricKind, method: method}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"name": req.Name, "count": method.Count(), "dimensions": method.Dimensions()}, http.StatusCreated)
}

// handleIndexOp routes /v1/indices/{name}/{op}.
func (s *Server) handleIndexOp(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/indices/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		writeError(w, "expected /v1/indices/{name}/{op}", http.StatusBadRequest)
		return
	}
	name, op := parts[0], parts[1]

	s.mu.RLock()
	idx, ok := s.indices[name]
	s.mu.RUnlock()
	if !ok {
		writeError(w, "unknown index: "+name, http.StatusNotFound)
		return
	}

	switch op {
	case "nearest":
		s.handleNearest(w, r, idx)
	case "knn":
		s.handleKNN(w, r, idx)
	case "radius":
		s.handleRadius(w, r, idx)
	default:
		writeError(w, "unknown operation: "+op, http.StatusNotFound)
	}
}

type queryRequest struct {
	Point  []float64 `json:"point"`
	K      int       `json:"k"`
	Radius float64   `json:"radius"`
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request, idx namedIndex) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	pair, found, err := idx.method.NearestNeighbor(engine.Point[float64](req.Point))
	s.metrics.ObserveQuery(idx.kind.String(), "nearest", err, time.Since(start))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !found {
		writeJSON(w, map[string]any{"found": false}, http.StatusOK)
		return
	}
	writeJSON(w, map[string]any{"found": true, "result": pairJSON(pair)}, http.StatusOK)
}

func (s *Server) handleKNN(w http.ResponseWriter, r *http.Request, idx namedIndex) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if s.cfg.MaxQueryK > 0 && req.K > s.cfg.MaxQueryK {
		writeError(w, fmt.Sprintf("k %d exceeds the configured maximum %d", req.K, s.cfg.MaxQueryK), http.StatusBadRequest)
		return
	}

	start := time.Now()
	pairs, err := idx.method.NearestNeighbors(engine.Point[float64](req.Point), req.K)
	s.metrics.ObserveQuery(idx.kind.String(), "knn", err, time.Since(start))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"results": pairsJSON(pairs)}, http.StatusOK)
}

func (s *Server) handleRadius(w http.ResponseWriter, r *http.Request, idx namedIndex) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if s.cfg.MaxQueryK > 0 && req.K > s.cfg.MaxQueryK {
		writeError(w, fmt.Sprintf("k %d exceeds the configured maximum %d", req.K, s.cfg.MaxQueryK), http.StatusBadRequest)
		return
	}

	start := time.Now()
	pairs, err := idx.method.NeighborsInRadius(engine.Point[float64](req.Point), req.Radius, req.K)
	s.metrics.ObserveQuery(idx.kind.String(), "radius", err, time.Since(start))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"results": pairsJSON(pairs)}, http.StatusOK)
}

func pairJSON(p engine.Pair[float64, json.RawMessage]) map[string]any {
	return map[string]any{
		"point":   []float64(p.Point),
		"payload": p.Payload,
		"dist":    p.Dist,
	}
}

func pairsJSON(pairs []engine.Pair[float64, json.RawMessage]) []map[string]any {
	out := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		out[i] = pairJSON(p)
	}
	return out
}

func parseKind(s string) (index.Kind, error) {
	switch strings.ToLower(s) {
	case "", "kdtree":
		return index.KDTree, nil
	case "voxel":
		return index.Voxel, nil
	case "linear":
		return index.Linear, nil
	case "ensemble":
		return index.Ensemble, nil
	default:
		return 0, errUnknownKind(s)
	}
}

func parseMetric(s string) (metric.Kind, error) {
	switch strings.ToLower(s) {
	case "", "l2":
		return metric.L2, nil
	case "l1":
		return metric.L1, nil
	case "linf":
		return metric.LInf, nil
	case "cosine":
		return metric.Cosine, nil
	default:
		return 0, errUnknownMetric(s)
	}
}

type errUnknownKind string

func (e errUnknownKind) Error() string { return "unknown index kind: " + string(e) }

type errUnknownMetric string

func (e errUnknownMetric) Error() string { return "unknown metric: " + string(e) }
