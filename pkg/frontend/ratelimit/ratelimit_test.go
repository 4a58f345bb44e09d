package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func limited(cfg Config) http.Handler {
	return Middleware(New(cfg))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	h := limited(Config{Enabled: false})
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiting disabled, got %d", i, rec.Code)
		}
	}
}

func TestMiddleware_RejectsBeyondBurst(t *testing.T) {
	h := limited(Config{Enabled: true, RequestsPerSecond: 1, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("expected the first two requests within burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected the third request to be limited, got %v", codes)
	}
}

func TestMiddleware_SeparateClientsHaveSeparateBuckets(t *testing.T) {
	h := limited(Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first client's request to pass, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("expected a different client to have its own bucket, got %d", rec.Code)
	}
}
