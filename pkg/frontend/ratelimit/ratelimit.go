// Package ratelimit provides a per-client token-bucket rate limiter for
// the query server's HTTP frontend: one golang.org/x/time/rate bucket per
// client key (the authenticated subject when present, the caller's IP
// otherwise), with a periodic cleanup goroutine bounding the tracked map.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nearestk/spatialindex/pkg/frontend/auth"
)

// Config configures the limiter.
type Config struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// Limiter tracks one token bucket per client key.
type Limiter struct {
	cfg      Config
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// New creates a Limiter and starts its background cleanup goroutine.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
	go l.cleanup()
	return l
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.limiters[key]; ok {
		return b
	}
	b = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
	l.limiters[key] = b
	return b
}

// cleanup periodically resets the tracked-client map so it never grows
// unbounded under a steady stream of distinct clients.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		if len(l.limiters) > 10000 {
			l.limiters = make(map[string]*rate.Limiter)
		}
		l.mu.Unlock()
	}
}

// Middleware returns an http middleware enforcing l's rate limit.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			bucket := l.bucketFor(key)
			if !bucket.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded for %s","status":429}`, key)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(bucket.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if claims, ok := auth.SubjectFromContext(r.Context()); ok {
		return "subject:" + claims.Subject
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
