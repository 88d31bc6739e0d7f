// Package dual provides a two-tier cache store with a process-local L1
// and Redis L2. Writes go to both tiers, reads check L1 first then L2
// with backfill.
package dual

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nabeelKh14/prismai-platform-sub008/caches/redis"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
)

// Store implements cache.Store with an in-process go-cache L1 and a
// Redis L2 tier.
type Store struct {
	local  *gocache.Cache
	remote *redis.Store
	config Config

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
	sets       atomic.Int64
	deletes    atomic.Int64
	errors     atomic.Int64
}

// Config holds configuration for the dual store.
type Config struct {
	LocalTTL        time.Duration // TTL for the local tier (default: 5 minutes)
	RemoteTTL       time.Duration // TTL for the Redis tier (default: 1 hour)
	CleanupInterval time.Duration // Local tier janitor interval (default: 1 minute)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LocalTTL:        5 * time.Minute,
		RemoteTTL:       time.Hour,
		CleanupInterval: time.Minute,
	}
}

// New creates a new dual-tier store. The remote tier may be nil, in which
// case the store degrades to local-only.
func New(remote *redis.Store, cfg Config) *Store {
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = 5 * time.Minute
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	return &Store{
		local:  gocache.New(cfg.LocalTTL, cfg.CleanupInterval),
		remote: remote,
		config: cfg,
	}
}

// Get retrieves a value, checking the local tier first, then Redis.
// A Redis hit is backfilled into the local tier.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if val, found := s.local.Get(key); found {
		if b, ok := val.([]byte); ok {
			s.localHits.Add(1)
			return b, nil
		}
	}

	if s.remote == nil {
		s.misses.Add(1)
		return nil, nil
	}

	val, err := s.remote.Get(ctx, key)
	if err != nil {
		s.errors.Add(1)
		return nil, err
	}
	if val == nil {
		s.misses.Add(1)
		return nil, nil
	}

	s.remoteHits.Add(1)
	s.local.Set(key, val, s.config.LocalTTL)
	return val, nil
}

// Set stores a value in both tiers. The local tier TTL is capped at the
// configured LocalTTL so the remote tier stays authoritative.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	localTTL := ttl
	if localTTL <= 0 || localTTL > s.config.LocalTTL {
		localTTL = s.config.LocalTTL
	}
	s.local.Set(key, value, localTTL)
	s.sets.Add(1)

	if s.remote == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.config.RemoteTTL
	}
	if err := s.remote.Set(ctx, key, value, ttl); err != nil {
		s.errors.Add(1)
		return err
	}
	return nil
}

// DeleteByPrefix removes matching keys from both tiers. The returned count
// is the remote tier's when present, since that tier is shared.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	localCount := 0
	for key := range s.local.Items() {
		if strings.HasPrefix(key, prefix) {
			s.local.Delete(key)
			localCount++
		}
	}
	s.deletes.Add(int64(localCount))

	if s.remote == nil {
		return localCount, nil
	}

	count, err := s.remote.DeleteByPrefix(ctx, prefix)
	if err != nil {
		s.errors.Add(1)
		return count, err
	}
	return count, nil
}

// Ping checks the remote tier; the local tier is always healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Ping(ctx)
}

// Close releases remote tier resources.
func (s *Store) Close() error {
	s.local.Flush()
	if s.remote == nil {
		return nil
	}
	return s.remote.Close()
}

// Stats returns combined statistics across both tiers.
func (s *Store) Stats() cache.Stats {
	hits := s.localHits.Load() + s.remoteHits.Load()
	misses := s.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return cache.Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Errors:  s.errors.Load(),
		HitRate: hitRate,
	}
}
