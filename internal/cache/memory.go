package cache

import (
	"container/heap"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore implements an in-memory Store with TTL eviction.
// It uses a min-heap for efficient TTL-based expiration and is suitable
// for single-instance deployments and tests.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]*memoryEntry
	ttls map[string]int64 // key -> expiration timestamp (unix nano)

	expirationHeap expirationHeap

	maxSize       int
	defaultTTL    time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	closeOnce     sync.Once

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

type memoryEntry struct {
	value      []byte
	expiration int64 // Unix nano timestamp
}

// expirationEntry represents an entry in the expiration heap.
type expirationEntry struct {
	key        string
	expiration int64
	index      int
}

// expirationHeap implements heap.Interface for TTL-based eviction.
type expirationHeap []*expirationEntry

func (h expirationHeap) Len() int           { return len(h) }
func (h expirationHeap) Less(i, j int) bool { return h[i].expiration < h[j].expiration }
func (h expirationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expirationHeap) Push(x any) {
	n := len(*h)
	entry, ok := x.(*expirationEntry)
	if !ok {
		return
	}
	entry.index = n
	*h = append(*h, entry)
}

func (h *expirationHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil // avoid memory leak
	entry.index = -1
	*h = old[0 : n-1]
	return entry
}

// MemoryStoreConfig holds configuration for MemoryStore.
type MemoryStoreConfig struct {
	MaxSize         int           // Maximum number of items (default: 1000)
	DefaultTTL      time.Duration // Default TTL (default: 1 hour)
	CleanupInterval time.Duration // Cleanup interval (default: 1 minute)
}

// DefaultMemoryStoreConfig returns sensible defaults.
func DefaultMemoryStoreConfig() MemoryStoreConfig {
	return MemoryStoreConfig{
		MaxSize:         1000,
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	s := &MemoryStore{
		data:           make(map[string]*memoryEntry),
		ttls:           make(map[string]int64),
		expirationHeap: make(expirationHeap, 0),
		maxSize:        cfg.MaxSize,
		defaultTTL:     cfg.DefaultTTL,
		stopCleanup:    make(chan struct{}),
	}

	heap.Init(&s.expirationHeap)

	s.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
	go s.cleanupLoop()

	return s
}

// cleanupLoop periodically removes expired entries.
func (s *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.evictExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// evictExpired removes all expired entries.
func (s *MemoryStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()

	for s.expirationHeap.Len() > 0 {
		entry := s.expirationHeap[0]

		// Skip entries whose key was since overwritten
		if storedExp, ok := s.ttls[entry.key]; !ok || storedExp != entry.expiration {
			heap.Pop(&s.expirationHeap)
			continue
		}

		if entry.expiration <= now {
			heap.Pop(&s.expirationHeap)
			delete(s.data, entry.key)
			delete(s.ttls, entry.key)
		} else {
			break // heap is sorted, no more expired entries
		}
	}
}

// evictIfNeeded removes entries if the store is at capacity.
func (s *MemoryStore) evictIfNeeded() {
	now := time.Now().UnixNano()

	for s.expirationHeap.Len() > 0 && len(s.data) >= s.maxSize {
		entry := s.expirationHeap[0]

		if storedExp, ok := s.ttls[entry.key]; !ok || storedExp != entry.expiration {
			heap.Pop(&s.expirationHeap)
			continue
		}

		if entry.expiration <= now || len(s.data) >= s.maxSize {
			heap.Pop(&s.expirationHeap)
			delete(s.data, entry.key)
			delete(s.ttls, entry.key)
		} else {
			break
		}
	}
}

// Get retrieves a value from the store.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, nil
	}

	if entry.expiration > 0 && entry.expiration <= time.Now().UnixNano() {
		s.misses.Add(1)
		// Lazy deletion
		s.mu.Lock()
		delete(s.data, key)
		delete(s.ttls, key)
		s.mu.Unlock()
		return nil, nil
	}

	s.hits.Add(1)
	// Return a copy to prevent mutation
	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a value in the store.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiration := time.Now().Add(ttl).UnixNano()

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) >= s.maxSize {
		s.evictIfNeeded()
	}

	s.data[key] = &memoryEntry{
		value:      valueCopy,
		expiration: expiration,
	}
	s.ttls[key] = expiration

	heap.Push(&s.expirationHeap, &expirationEntry{
		key:        key,
		expiration: expiration,
	})

	s.sets.Add(1)
	return nil
}

// DeleteByPrefix removes all keys sharing the given prefix.
func (s *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
			delete(s.ttls, key)
			count++
		}
	}
	// Stale heap entries are discarded lazily by evictExpired.

	s.deletes.Add(int64(count))
	return count, nil
}

// Ping always returns nil for the memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine and releases resources.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.cleanupTicker.Stop()
		close(s.stopCleanup)
	})
	return nil
}

// Stats returns store statistics.
func (s *MemoryStore) Stats() Stats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		HitRate: hitRate,
	}
}

// Len returns the number of items in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
