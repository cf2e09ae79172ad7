package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Resolutions     *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

// NewMetrics creates and registers the service collectors on a fresh
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propane_resolutions_total",
		Help: "Resolution requests by outcome.",
	}, []string{"outcome"})

	m.ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propane_resolve_duration_seconds",
		Help:    "Time spent resolving and emitting a fragment.",
		Buckets: prometheus.DefBuckets,
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propane_cache_hits_total",
		Help: "Resolution requests answered from the KV cache.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propane_cache_misses_total",
		Help: "Resolution requests that missed the KV cache.",
	})

	m.registry.MustRegister(m.Resolutions, m.ResolveDuration, m.CacheHits, m.CacheMisses)
	return m
}

// Registry returns the underlying Prometheus registry for the /metrics
// handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
