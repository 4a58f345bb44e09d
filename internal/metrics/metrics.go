// Package metrics registers the Prometheus instrumentation exposed by the
// query service: build and query counters and latency histograms by index
// kind and method, plus ensemble race outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the engine and frontend touch.
type Metrics struct {
	BuildsTotal   *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec
	BuildPointsN  *prometheus.GaugeVec
	QueryTotal    *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
	EnsembleWins  *prometheus.CounterVec
}

// New creates and registers every collector against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// instances) or prometheus.DefaultRegisterer for the process-wide default.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearestk_builds_total",
				Help: "Total number of index builds by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		BuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nearestk_build_duration_seconds",
				Help:    "Index build duration in seconds by kind",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		BuildPointsN: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nearestk_index_points",
				Help: "Number of points held by the most recent build, by kind",
			},
			[]string{"kind"},
		),
		QueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearestk_queries_total",
				Help: "Total number of queries by kind and method",
			},
			[]string{"kind", "method"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nearestk_query_duration_seconds",
				Help:    "Query duration in seconds by kind and method",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind", "method"},
		),
		QueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearestk_query_errors_total",
				Help: "Total number of query errors by kind and method",
			},
			[]string{"kind", "method"},
		),
		EnsembleWins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nearestk_ensemble_wins_total",
				Help: "Number of times each sub-index answered first in an ensemble nearest-neighbor race",
			},
			[]string{"subindex"},
		),
	}
}

// ObserveBuild records a completed index build.
func (m *Metrics) ObserveBuild(kind string, err error, d time.Duration, n int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BuildsTotal.WithLabelValues(kind, outcome).Inc()
	m.BuildDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err == nil {
		m.BuildPointsN.WithLabelValues(kind).Set(float64(n))
	}
}

// ObserveQuery records a completed query.
func (m *Metrics) ObserveQuery(kind, method string, err error, d time.Duration) {
	m.QueryTotal.WithLabelValues(kind, method).Inc()
	m.QueryDuration.WithLabelValues(kind, method).Observe(d.Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(kind, method).Inc()
	}
}

// ObserveEnsembleWin records which sub-index answered a nearest-1 race first.
func (m *Metrics) ObserveEnsembleWin(subindex string) {
	m.EnsembleWins.WithLabelValues(subindex).Inc()
}
