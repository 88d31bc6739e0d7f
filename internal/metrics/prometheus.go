// Package metrics provides Prometheus metrics collection for the optimizer.
// It tracks request counts, latencies, cache effectiveness, coalescing
// savings, and estimated spend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "prismai"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.5, 5.0, 10.0, 30.0, 60.0,
}

var (
	// TotalRequests counts optimizer calls by endpoint and status code.
	TotalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_total_requests",
			Help:      "Total number of optimizer requests",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// RequestLatency tracks end-to-end request latency.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimizer_request_latency_seconds",
			Help:      "End-to-end optimizer request latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"endpoint"},
	)

	// CacheHits counts responses served from the cache facade.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_cache_hits",
			Help:      "Responses served from the response cache",
		},
		[]string{"endpoint"},
	)

	// CacheMisses counts cache lookups that fell through to upstream.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_cache_misses",
			Help:      "Cache lookups that fell through to upstream",
		},
		[]string{"endpoint"},
	)

	// UpstreamCalls counts actual calls issued to the inference service.
	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_upstream_calls",
			Help:      "Calls issued to the upstream inference service",
		},
		[]string{"endpoint", "model"},
	)

	// CoalescedRequests counts requests resolved by another request's
	// upstream call (group size minus one, per flushed group).
	CoalescedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_coalesced_requests",
			Help:      "Requests served by a coalesced in-flight call",
		},
		[]string{"endpoint"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_rate_limited",
			Help:      "Requests rejected by the sliding-window rate limiter",
		},
		[]string{"endpoint"},
	)

	// EstimatedSpend accumulates estimated upstream cost in USD.
	EstimatedSpend = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_estimated_spend_usd",
			Help:      "Estimated upstream spend in USD",
		},
		[]string{"model"},
	)

	// TotalTokens accumulates token usage by model.
	TotalTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_total_tokens",
			Help:      "Total tokens reported or estimated for upstream calls",
		},
		[]string{"model"},
	)

	// PendingRequests gauges the batch coordinator queue depth.
	PendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "optimizer_pending_requests",
			Help:      "Requests currently queued in the batch coordinator",
		},
	)
)
