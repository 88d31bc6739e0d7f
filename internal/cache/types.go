// Package cache provides response caching for optimized inference calls.
// It supports in-memory, Redis, and dual-tier backends behind a single
// Store interface, plus a fail-open facade used by the optimizer.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// Store defines the interface for all cache backends.
type Store interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// If TTL is 0, the backend's default TTL is used.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteByPrefix removes all keys sharing the given prefix and returns
	// the number of keys removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Ping checks if the cache is healthy.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Envelope is the serialized form of a cached result. The payload holds
// either a ChatResponse or an EmbeddingResponse depending on Kind.
type Envelope struct {
	Timestamp int64             `json:"timestamp"`
	Kind      types.RequestKind `json:"kind"`
	Payload   json.RawMessage   `json:"payload"`
	Model     string            `json:"model,omitempty"`
	Tokens    int               `json:"tokens"`
	Cost      float64           `json:"cost"`
}
