package optimizer

import (
	"log/slog"
	"time"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/metrics"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/pricing"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/upstream"
)

// Config holds all configuration for the optimizer client. It is set at
// construction and never mutated afterward.
type Config struct {
	// Upstream is the inference client the optimizer fronts. Required.
	Upstream upstream.InferenceClient

	// Batching
	EnableRequestBatching bool
	EnableDeduplication   bool
	EnableFallback        bool
	BatchTimeout          time.Duration
	MaxBatchSize          int

	// Caching
	CacheEnabled   bool
	CacheTTL       time.Duration
	CacheKeyPrefix string
	Store          cache.Store // custom cache store; defaults to in-memory

	// Rate limiting
	RateLimitPerMinute int
	RateLimitWindow    time.Duration

	// Cost tracking
	CostOptimization bool
	Pricing          []pricing.ModelPricing

	// Observability
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Option is a function that configures the Client.
type Option func(*Config)

// defaultConfig returns sensible defaults.
func defaultConfig() *Config {
	return &Config{
		EnableRequestBatching: true,
		EnableDeduplication:   true,
		EnableFallback:        true,
		BatchTimeout:          100 * time.Millisecond,
		MaxBatchSize:          10,
		CacheEnabled:          true,
		CacheTTL:              time.Hour,
		CacheKeyPrefix:        "prismai",
		RateLimitPerMinute:    60,
		RateLimitWindow:       time.Minute,
		CostOptimization:      true,
	}
}

// WithUpstream sets the upstream inference client. Required.
func WithUpstream(client upstream.InferenceClient) Option {
	return func(c *Config) {
		c.Upstream = client
	}
}

// WithBatching enables or disables request batching.
func WithBatching(enabled bool) Option {
	return func(c *Config) {
		c.EnableRequestBatching = enabled
	}
}

// WithDeduplication enables or disables coalescing of equivalent requests
// within a flush tick. With deduplication off, batching still ticks but
// every pending request is dispatched on its own.
func WithDeduplication(enabled bool) Option {
	return func(c *Config) {
		c.EnableDeduplication = enabled
	}
}

// WithFallback enables or disables the direct-call fallback taken when
// the batch coordinator is unavailable (e.g. shutting down).
func WithFallback(enabled bool) Option {
	return func(c *Config) {
		c.EnableFallback = enabled
	}
}

// WithBatchTimeout sets the flush interval, which bounds how long a
// request waits before its group is attempted.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BatchTimeout = d
	}
}

// WithMaxBatchSize caps how many queued requests are processed per tick.
func WithMaxBatchSize(n int) Option {
	return func(c *Config) {
		c.MaxBatchSize = n
	}
}

// WithCaching enables or disables the response cache.
func WithCaching(enabled bool) Option {
	return func(c *Config) {
		c.CacheEnabled = enabled
	}
}

// WithCacheTTL sets the TTL applied to cached results.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// WithCacheKeyPrefix sets the prefix under which all cache keys live.
func WithCacheKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.CacheKeyPrefix = prefix
	}
}

// WithCacheStore injects a custom cache store (Redis, dual-tier, or any
// cache.Store implementation). The caller retains ownership; the client
// will not close an injected store.
func WithCacheStore(store cache.Store) Option {
	return func(c *Config) {
		c.Store = store
	}
}

// WithRateLimit sets the per-identifier request quota per window.
func WithRateLimit(perMinute int) Option {
	return func(c *Config) {
		c.RateLimitPerMinute = perMinute
	}
}

// WithRateLimitWindow sets the sliding window length (default: 1 minute).
func WithRateLimitWindow(d time.Duration) Option {
	return func(c *Config) {
		c.RateLimitWindow = d
	}
}

// WithCostTracking enables or disables cost estimation and spend metrics.
func WithCostTracking(enabled bool) Option {
	return func(c *Config) {
		c.CostOptimization = enabled
	}
}

// WithPricing overrides the default per-model pricing table.
func WithPricing(pricing []pricing.ModelPricing) Option {
	return func(c *Config) {
		c.Pricing = pricing
	}
}

// WithMetricsRecorder injects a telemetry recorder. Defaults to the
// built-in Prometheus collector.
func WithMetricsRecorder(rec metrics.Recorder) Option {
	return func(c *Config) {
		c.Recorder = rec
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
