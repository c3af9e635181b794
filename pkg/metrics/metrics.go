// Package metrics defines the Prometheus metric collectors used by the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	StringsStored        prometheus.Gauge
	StringsCreatedTotal  prometheus.Counter
	StringsDeletedTotal  prometheus.Counter
	NLQueriesTotal       *prometheus.CounterVec
	FilterResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RateLimitedTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		StringsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "strings_stored",
				Help: "Number of analyzed strings currently held in memory.",
			},
		),
		StringsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "strings_created_total",
				Help: "Total strings analyzed and stored.",
			},
		),
		StringsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "strings_deleted_total",
				Help: "Total strings deleted.",
			},
		),
		NLQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nl_queries_total",
				Help: "Natural-language queries by outcome (ok, uninterpretable, conflict, error).",
			},
			[]string{"outcome"},
		),
		FilterResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filter_results_count",
				Help:    "Number of records returned per filter query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "translation_cache_hits_total",
				Help: "Total number of translation cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "translation_cache_misses_total",
				Help: "Total number of translation cache misses.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_requests_total",
				Help: "Total requests rejected by the rate limiter.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StringsStored,
		m.StringsCreatedTotal,
		m.StringsDeletedTotal,
		m.NLQueriesTotal,
		m.FilterResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RateLimitedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
