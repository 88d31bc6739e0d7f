package metrics

import (
	"strconv"
	"time"
)

// Recorder is the telemetry contract consumed by the optimizer facade.
// Recording is fire-and-forget; implementations must never propagate
// failures.
type Recorder interface {
	Record(endpoint, method string, statusCode int, elapsed time.Duration, at time.Time)
}

// Collector records optimizer metrics to Prometheus. It implements
// Recorder for per-call telemetry and adds internal counters for cache
// effectiveness, coalescing savings, and spend.
type Collector struct{}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record implements Recorder.
func (c *Collector) Record(endpoint, method string, statusCode int, elapsed time.Duration, _ time.Time) {
	TotalRequests.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
	RequestLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordCacheHit counts a response served from the response cache.
func (c *Collector) RecordCacheHit(endpoint string) {
	CacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss counts a cache lookup that fell through to upstream.
func (c *Collector) RecordCacheMiss(endpoint string) {
	CacheMisses.WithLabelValues(endpoint).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (c *Collector) RecordRateLimited(endpoint string) {
	RateLimited.WithLabelValues(endpoint).Inc()
}

// RecordUpstream counts one upstream call with its token usage, estimated
// cost, and the number of additional requests served by the same call.
func (c *Collector) RecordUpstream(endpoint, model string, tokens int, cost float64, coalesced int) {
	UpstreamCalls.WithLabelValues(endpoint, model).Inc()
	if coalesced > 0 {
		CoalescedRequests.WithLabelValues(endpoint).Add(float64(coalesced))
	}
	if tokens > 0 {
		TotalTokens.WithLabelValues(model).Add(float64(tokens))
	}
	if cost > 0 {
		EstimatedSpend.WithLabelValues(model).Add(cost)
	}
}

// NopRecorder discards all events. Used when metrics are disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(string, string, int, time.Duration, time.Time) {}
