// Package ratelimit enforces a sliding per-identifier request quota.
//
// Each identifier carries its own list of request timestamps inside the
// trailing window. Checking is read-only; recording usage is a separate
// explicit step so callers can check-then-decide without consuming a slot.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Status reports the current window state for an identifier.
type Status struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Limited   bool      `json:"limited"`
}

// SlidingWindowLimiter admits or rejects requests per caller identifier
// under a sliding window. State is local to one running instance.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	usage   map[string][]time.Time
	limit   int
	window  time.Duration
	nowFunc func() time.Time
}

// Config holds limiter configuration.
type Config struct {
	Limit  int           // requests per window (default: 60)
	Window time.Duration // window length (default: 60s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Limit: 60, Window: time.Minute}
}

// New creates a new sliding-window limiter.
func New(cfg Config) *SlidingWindowLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &SlidingWindowLimiter{
		usage:   make(map[string][]time.Time),
		limit:   cfg.Limit,
		window:  cfg.Window,
		nowFunc: time.Now,
	}
}

// Check reports whether a request for the identifier would be admitted.
// It prunes expired timestamps but does not record usage.
func (l *SlidingWindowLimiter) Check(identifier string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.prune(identifier)
	remaining := l.limit - len(timestamps)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   len(timestamps) < l.limit,
		Remaining: remaining,
		ResetAt:   l.resetAt(timestamps),
	}
}

// Record appends the current time to the identifier's window.
func (l *SlidingWindowLimiter) Record(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.prune(identifier)
	l.usage[identifier] = append(timestamps, l.nowFunc())
}

// Status returns the current window state for an identifier.
func (l *SlidingWindowLimiter) Status(identifier string) Status {
	d := l.Check(identifier)
	return Status{
		Remaining: d.Remaining,
		ResetAt:   d.ResetAt,
		Limited:   !d.Allowed,
	}
}

// Limit returns the configured quota per window.
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *SlidingWindowLimiter) Window() time.Duration {
	return l.window
}

// prune drops timestamps older than now-window for the identifier and
// returns the surviving list. Identifiers with no surviving timestamps
// are removed from the map entirely. Caller must hold the mutex.
func (l *SlidingWindowLimiter) prune(identifier string) []time.Time {
	cutoff := l.nowFunc().Add(-l.window)
	timestamps := l.usage[identifier]

	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		timestamps = timestamps[i:]
	}

	if len(timestamps) == 0 {
		delete(l.usage, identifier)
		return nil
	}

	l.usage[identifier] = timestamps
	return timestamps
}

// resetAt returns when the oldest surviving timestamp leaves the window.
// With an empty window the quota is already fully available.
func (l *SlidingWindowLimiter) resetAt(timestamps []time.Time) time.Time {
	if len(timestamps) == 0 {
		return l.nowFunc()
	}
	return timestamps[0].Add(l.window)
}

// SetNowFunc overrides the clock. Test hook.
func (l *SlidingWindowLimiter) SetNowFunc(f func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nowFunc = f
}
