// Package redis provides a Redis-based cache store implementation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
)

// Store implements cache.Store using Redis as backend.
type Store struct {
	client     goredis.UniversalClient
	namespace  string
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errors  atomic.Int64
}

// Config holds configuration for the Redis store.
type Config struct {
	// Single node configuration
	Addr     string `yaml:"addr"`     // Redis address (e.g., "localhost:6379")
	Password string `yaml:"password"` // Redis password
	DB       int    `yaml:"db"`       // Redis database number

	// Cluster configuration
	ClusterAddrs []string `yaml:"cluster_addrs"` // Redis cluster addresses

	// Common configuration
	Namespace    string        `yaml:"namespace"`      // Key namespace prefix
	DefaultTTL   time.Duration `yaml:"default_ttl"`    // Default TTL (default: 1 hour)
	DialTimeout  time.Duration `yaml:"dial_timeout"`   // Connection timeout
	ReadTimeout  time.Duration `yaml:"read_timeout"`   // Read timeout
	WriteTimeout time.Duration `yaml:"write_timeout"`  // Write timeout
	PoolSize     int           `yaml:"pool_size"`      // Connection pool size
	MinIdleConns int           `yaml:"min_idle_conns"` // Minimum idle connections
	MaxRetries   int           `yaml:"max_retries"`    // Maximum retries
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		DefaultTTL:   time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	}
}

// New creates a new Redis store.
func New(cfg Config) (*Store, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	var client goredis.UniversalClient

	if len(cfg.ClusterAddrs) > 0 {
		client = goredis.NewClusterClient(&goredis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Password:     cfg.Password,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
		})
	} else {
		client = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{
		client:     client,
		namespace:  cfg.Namespace,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// NewFromClient wraps an existing Redis client. Useful for tests and for
// sharing a connection pool with the rest of the application.
func NewFromClient(client goredis.UniversalClient, namespace string, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Store{
		client:     client,
		namespace:  namespace,
		defaultTTL: defaultTTL,
	}
}

// prefixKey adds the namespace prefix to the key.
func (s *Store) prefixKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

// Get retrieves a value from Redis.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			s.misses.Add(1)
			return nil, nil
		}
		s.errors.Add(1)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	s.hits.Add(1)
	return val, nil
}

// Set stores a value in Redis with TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if err := s.client.Set(ctx, s.prefixKey(key), value, ttl).Err(); err != nil {
		s.errors.Add(1)
		return fmt.Errorf("redis set: %w", err)
	}

	s.sets.Add(1)
	return nil
}

// DeleteByPrefix removes all keys sharing the given prefix using SCAN to
// avoid blocking Redis on large keyspaces.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	pattern := s.prefixKey(prefix) + "*"

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			s.errors.Add(1)
			return deleted, fmt.Errorf("redis scan: %w", err)
		}

		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				s.errors.Add(1)
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.deletes.Add(int64(deleted))
	return deleted, nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.errors.Add(1)
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Stats returns store statistics.
func (s *Store) Stats() cache.Stats {
	hits := s.hits.Load()
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
