package optimizer

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/batch"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/metrics"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/observability"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/pricing"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/ratelimit"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/errors"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// DefaultIdentifier is used when a call provides no caller identifier.
const DefaultIdentifier = "anonymous"

// RequestOptions allows per-call behavior customization.
type RequestOptions struct {
	// Identifier is the caller identity used for rate limiting. Falls
	// back to the request's User field, then DefaultIdentifier.
	Identifier string

	// Priority orders pending requests within a flush tick. Higher
	// values are dispatched first.
	Priority int

	// BypassBatch issues the request directly instead of enqueueing it.
	BypassBatch bool

	// BypassCache skips the cache lookup (the fresh result is still
	// stored).
	BypassCache bool
}

// Client is the optimizer facade. It sequences rate limiting, response
// caching, request coalescing, and cost accounting in front of the
// upstream inference client, returning the same result shape on every
// path.
type Client struct {
	cfg *Config

	facade    *cache.Facade
	limiter   *ratelimit.SlidingWindowLimiter
	coord     *batch.Coordinator
	estimator *pricing.Estimator
	recorder  metrics.Recorder
	collector *metrics.Collector
	logger    *observability.Logger

	store     cache.Store
	ownsStore bool
}

// New creates a new optimizer client. An upstream inference client is
// required; everything else has defaults (in-memory cache store, 100ms
// flush interval, 60 requests/minute, Prometheus metrics).
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Upstream == nil {
		return nil, errors.NewInvalidRequestError("", "upstream inference client is required")
	}

	logger := observability.NewFromSlog(cfg.Logger)

	store := cfg.Store
	ownsStore := false
	if store == nil {
		store = cache.NewMemoryStore(cache.MemoryStoreConfig{DefaultTTL: cfg.CacheTTL})
		ownsStore = true
	}

	facade := cache.NewFacade(store, cache.FacadeConfig{
		Enabled:    cfg.CacheEnabled,
		DefaultTTL: cfg.CacheTTL,
		KeyPrefix:  cfg.CacheKeyPrefix,
	}, logger)

	limiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.RateLimitPerMinute,
		Window: cfg.RateLimitWindow,
	})

	estimator := pricing.NewEstimator(cfg.Pricing)

	recorder := cfg.Recorder
	var collector *metrics.Collector
	if recorder == nil {
		collector = metrics.NewCollector()
		recorder = collector
	} else if c, ok := recorder.(*metrics.Collector); ok {
		collector = c
	}

	coord := batch.New(batch.Config{
		FlushInterval: cfg.BatchTimeout,
		MaxBatchSize:  cfg.MaxBatchSize,
		Deduplicate:   cfg.EnableDeduplication,
		CacheTTL:      cfg.CacheTTL,
		TrackCost:     cfg.CostOptimization,
	}, facade, cfg.Upstream, estimator, limiter, collector, logger)

	return &Client{
		cfg:       cfg,
		facade:    facade,
		limiter:   limiter,
		coord:     coord,
		estimator: estimator,
		recorder:  recorder,
		collector: collector,
		logger:    logger,
		store:     store,
		ownsStore: ownsStore,
	}, nil
}

// CreateChatCompletion resolves a chat completion through the
// optimization pipeline: rate check, cache check, coalesced or direct
// upstream call.
func (c *Client) CreateChatCompletion(ctx context.Context, req *types.ChatRequest, opts *RequestOptions) (*types.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(req.Model, err.Error())
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	if opts.Identifier == "" {
		opts.Identifier = req.User
	}
	return c.do(ctx, types.NewChatRequest(req), opts)
}

// CreateEmbedding resolves an embedding generation through the
// optimization pipeline.
func (c *Client) CreateEmbedding(ctx context.Context, req *types.EmbeddingRequest, opts *RequestOptions) (*types.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewInvalidRequestError(req.Model, err.Error())
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	if opts.Identifier == "" {
		opts.Identifier = req.User
	}
	return c.do(ctx, types.NewEmbeddingRequest(req), opts)
}

// do sequences one call: (1) rate check, fail fast; (2) cache check,
// return on hit; (3) coalesced or direct upstream call; every path
// records telemetry regardless of outcome.
func (c *Client) do(ctx context.Context, req types.Request, opts *RequestOptions) (*types.Result, error) {
	start := time.Now()
	ctx, _ = observability.GetOrCreateRequestID(ctx)
	endpoint := string(req.Kind)

	identifier := opts.Identifier
	if identifier == "" {
		identifier = DefaultIdentifier
	}

	// Rate check comes before any cache lookup or upstream call.
	decision := c.limiter.Check(identifier)
	if !decision.Allowed {
		if c.collector != nil {
			c.collector.RecordRateLimited(endpoint)
		}
		c.record(endpoint, http.StatusTooManyRequests, time.Since(start))
		return nil, errors.NewRateLimitError(identifier, decision.Remaining)
	}

	key := c.facade.DeriveKey(req)

	if c.cfg.CacheEnabled && !opts.BypassCache {
		if cached, ok := c.facade.Get(ctx, key); ok {
			if c.collector != nil {
				c.collector.RecordCacheHit(endpoint)
			}
			c.record(endpoint, http.StatusOK, time.Since(start))
			return withElapsed(cached, time.Since(start)), nil
		}
		if c.collector != nil {
			c.collector.RecordCacheMiss(endpoint)
		}
	}

	var result *types.Result
	var err error
	if c.cfg.EnableRequestBatching && !opts.BypassBatch {
		result, err = c.coord.Enqueue(ctx, req, key, identifier, opts.Priority, opts.BypassCache)
		if err != nil && errors.IsShutdown(err) && c.cfg.EnableFallback {
			c.logger.WithRequestID(ctx).Warn("coordinator unavailable, falling back to direct call")
			result, err = c.coord.CallDirect(ctx, req, key, identifier)
		}
	} else {
		result, err = c.coord.CallDirect(ctx, req, key, identifier)
	}

	if err != nil {
		c.record(endpoint, statusOf(err), time.Since(start))
		return nil, err
	}

	c.record(endpoint, http.StatusOK, time.Since(start))
	return withElapsed(result, time.Since(start)), nil
}

// GetRateLimitStatus reports the current window state for an identifier.
func (c *Client) GetRateLimitStatus(identifier string) RateLimitStatus {
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	return c.limiter.Status(identifier)
}

// ClearCache removes cached entries whose key starts with pattern. An
// empty pattern clears the optimizer's whole namespace. Returns the
// number of entries removed.
func (c *Client) ClearCache(ctx context.Context, pattern string) int {
	return c.facade.Invalidate(ctx, pattern)
}

// CacheStats returns statistics from the underlying cache store.
func (c *Client) CacheStats() cache.Stats {
	return c.facade.Stats()
}

// Close shuts down the coordinator, rejecting pending requests, and
// releases the cache store when the client owns it.
func (c *Client) Close() error {
	err := c.coord.Close()
	if c.ownsStore {
		if cerr := c.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// record emits one telemetry event. Fire-and-forget.
func (c *Client) record(endpoint string, status int, elapsed time.Duration) {
	c.recorder.Record(endpoint, http.MethodPost, status, elapsed, time.Now())
}

// withElapsed returns a shallow copy carrying this caller's wall time.
// The payload pointers stay shared across a coalesced group.
func withElapsed(result *types.Result, elapsed time.Duration) *types.Result {
	out := *result
	out.Elapsed = elapsed
	return &out
}

func statusOf(err error) int {
	var ie *errors.InferenceError
	if stderrors.As(err, &ie) {
		return ie.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}
