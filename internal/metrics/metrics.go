// Package metrics exposes Prometheus collectors and the metrics HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlansComputed counts execution plans by side and fill outcome.
	PlansComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantdesk_plans_computed_total",
		Help: "Total execution plans computed, labeled by side and fill outcome.",
	}, []string{"side", "outcome"})

	// DeskRows counts desk rows produced, labeled by recommendation.
	DeskRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantdesk_desk_rows_total",
		Help: "Total order desk rows produced, labeled by recommendation.",
	}, []string{"recommendation"})

	// CalibrationsTotal counts impact calibrations, labeled by outcome.
	CalibrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantdesk_calibrations_total",
		Help: "Total impact calibrations, labeled by outcome.",
	}, []string{"outcome"})

	// PlanLatency observes execution plan computation latency.
	PlanLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantdesk_plan_latency_seconds",
		Help:    "Execution plan computation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// DeskLatency observes desk review computation latency.
	DeskLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantdesk_desk_latency_seconds",
		Help:    "Order desk review latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// UpstreamRequests counts upstream market data requests by endpoint and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantdesk_upstream_requests_total",
		Help: "Total upstream market data requests, labeled by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// UpstreamLatency observes upstream market data request latency.
	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantdesk_upstream_latency_seconds",
		Help:    "Upstream market data request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// HistoryCacheHits counts history cache hits.
	HistoryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quantdesk_history_cache_hits_total",
		Help: "Total history cache hits.",
	})

	// HistoryCacheMisses counts history cache misses.
	HistoryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quantdesk_history_cache_misses_total",
		Help: "Total history cache misses.",
	})

	// UpstreamBreakerOpen is 1 while the upstream circuit breaker is open.
	UpstreamBreakerOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quantdesk_upstream_breaker_open",
		Help: "1 if the upstream circuit breaker is open, 0 otherwise.",
	})

	// ErrorsTotal counts internal errors by type.
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantdesk_errors_total",
		Help: "Total internal errors, labeled by type.",
	}, []string{"type"})
)
