package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/observability"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// Facade provides high-level caching operations for the optimizer.
// It wraps a Store and handles serialization, key derivation, and
// fail-open semantics: store unavailability degrades to "always
// recompute", never to an outage.
type Facade struct {
	store   Store
	deriver *KeyDeriver
	logger  *observability.Logger

	defaultTTL time.Duration
	enabled    bool
}

// FacadeConfig holds configuration for the cache facade.
type FacadeConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
	KeyPrefix  string
}

// DefaultFacadeConfig returns sensible defaults.
func DefaultFacadeConfig() FacadeConfig {
	return FacadeConfig{
		Enabled:    true,
		DefaultTTL: time.Hour,
		KeyPrefix:  "prismai",
	}
}

// NewFacade creates a new cache facade.
func NewFacade(store Store, cfg FacadeConfig, logger *observability.Logger) *Facade {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "prismai"
	}
	if logger == nil {
		logger = observability.NewFromSlog(nil)
	}
	return &Facade{
		store:      store,
		deriver:    NewKeyDeriver(cfg.KeyPrefix),
		logger:     logger,
		defaultTTL: cfg.DefaultTTL,
		enabled:    cfg.Enabled,
	}
}

// Enabled reports whether caching is active.
func (f *Facade) Enabled() bool {
	return f.enabled && f.store != nil
}

// DeriveKey returns the deterministic cache key for a request.
func (f *Facade) DeriveKey(req types.Request) string {
	return f.deriver.Derive(req)
}

// KeyPrefix returns the prefix under which all optimizer keys live.
func (f *Facade) KeyPrefix() string {
	return f.deriver.Prefix
}

// Get attempts to retrieve a cached result for the given key.
// Store errors are logged and treated as a miss.
func (f *Facade) Get(ctx context.Context, key string) (*types.Result, bool) {
	if !f.Enabled() {
		return nil, false
	}

	data, err := f.store.Get(ctx, key)
	if err != nil {
		f.logger.WithRequestID(ctx).Warn("cache get failed, treating as miss",
			"key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	result := &types.Result{
		Kind:            env.Kind,
		Tokens:          env.Tokens,
		Cost:            env.Cost,
		ServedFromCache: true,
	}

	switch env.Kind {
	case types.KindChat:
		var resp types.ChatResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			return nil, false
		}
		result.Chat = &resp
	case types.KindEmbedding:
		var resp types.EmbeddingResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			return nil, false
		}
		result.Embedding = &resp
	default:
		return nil, false
	}

	return result, true
}

// Set stores a result under the given key. Store errors are logged and
// swallowed; a failed write never propagates to the caller.
func (f *Facade) Set(ctx context.Context, key string, result *types.Result, ttl time.Duration) {
	if !f.Enabled() || result == nil {
		return
	}
	if ttl <= 0 {
		ttl = f.defaultTTL
	}

	var payload []byte
	var err error
	switch result.Kind {
	case types.KindChat:
		payload, err = json.Marshal(result.Chat)
	case types.KindEmbedding:
		payload, err = json.Marshal(result.Embedding)
	default:
		return
	}
	if err != nil {
		f.logger.WithRequestID(ctx).Warn("cache set skipped, marshal failed", "error", err)
		return
	}

	env := Envelope{
		Timestamp: time.Now().Unix(),
		Kind:      result.Kind,
		Payload:   payload,
		Model:     result.Model(),
		Tokens:    result.Tokens,
		Cost:      result.Cost,
	}

	data, err := json.Marshal(env)
	if err != nil {
		f.logger.WithRequestID(ctx).Warn("cache set skipped, marshal failed", "error", err)
		return
	}

	if err := f.store.Set(ctx, key, data, ttl); err != nil {
		f.logger.WithRequestID(ctx).Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes all cached entries whose key starts with the given
// pattern. An empty pattern clears the whole optimizer namespace.
// Store errors are logged; the facade reports zero removals.
func (f *Facade) Invalidate(ctx context.Context, pattern string) int {
	if f.store == nil {
		return 0
	}
	if pattern == "" {
		pattern = f.deriver.Prefix + ":"
	}

	count, err := f.store.DeleteByPrefix(ctx, pattern)
	if err != nil {
		f.logger.WithRequestID(ctx).Warn("cache invalidate failed", "pattern", pattern, "error", err)
		return 0
	}
	return count
}

// Stats returns the underlying store statistics.
func (f *Facade) Stats() Stats {
	if f.store == nil {
		return Stats{}
	}
	return f.store.Stats()
}
