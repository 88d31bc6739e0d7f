// Package batch implements the request-coalescing coordinator.
//
// Concurrent equivalent requests are collected into groups and resolved
// from at most one upstream call per distinct request shape per flush
// tick. This is exact-match coalescing, not a provider-side batch API:
// the upstream is always called with a single representative request.
package batch

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/metrics"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/observability"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/pricing"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/ratelimit"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/tokenizer"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/errors"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/upstream"
)

// State describes the coordinator's position in its lifecycle.
type State int32

const (
	// StateIdle means no pending requests and no flush timer armed.
	StateIdle State = iota
	// StateCollecting means requests are queued and a flush timer is armed.
	StateCollecting
	// StateFlushing means a flush pass is in progress.
	StateFlushing
)

// PendingRequest is one caller's in-flight ask, queued for coalescing.
type PendingRequest struct {
	ID         string
	Key        string
	Request    types.Request
	Identifier string
	Priority   int
	// BypassCache skips the group's cache lookup. The fresh result is
	// still stored.
	BypassCache bool
	EnqueuedAt  time.Time

	done chan outcome
}

type outcome struct {
	result *types.Result
	err    error
}

// Config holds coordinator configuration.
type Config struct {
	// FlushInterval bounds how long a request waits before its group is
	// attempted. It does not bound total request latency.
	FlushInterval time.Duration

	// MaxBatchSize caps how many queued requests are processed per tick.
	// Excess requests remain queued for the next tick.
	MaxBatchSize int

	// Deduplicate enables coalescing of equivalent requests. When false,
	// every pending request forms its own group.
	Deduplicate bool

	// CacheTTL is applied when storing fresh upstream results.
	CacheTTL time.Duration

	// TrackCost enables cost estimation on fresh results. When false,
	// results carry zero cost and no spend metrics are recorded.
	TrackCost bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FlushInterval: 100 * time.Millisecond,
		MaxBatchSize:  10,
		Deduplicate:   true,
		CacheTTL:      time.Hour,
		TrackCost:     true,
	}
}

// Coordinator collects concurrent equivalent requests and fans one
// upstream result out to all waiters in a group.
type Coordinator struct {
	cfg       Config
	cache     *cache.Facade
	client    upstream.InferenceClient
	estimator *pricing.Estimator
	limiter   *ratelimit.SlidingWindowLimiter
	collector *metrics.Collector
	logger    *observability.Logger

	mu     sync.Mutex
	queue  []*PendingRequest
	timer  *time.Timer
	closed bool

	state    atomic.Int32
	flushing atomic.Bool
}

// New creates a new coordinator.
func New(cfg Config, facade *cache.Facade, client upstream.InferenceClient,
	estimator *pricing.Estimator, limiter *ratelimit.SlidingWindowLimiter,
	collector *metrics.Collector, logger *observability.Logger) *Coordinator {

	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 100 * time.Millisecond
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	if logger == nil {
		logger = observability.NewFromSlog(nil)
	}

	return &Coordinator{
		cfg:       cfg,
		cache:     facade,
		client:    client,
		estimator: estimator,
		limiter:   limiter,
		collector: collector,
		logger:    logger,
	}
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// PendingCount returns the current queue depth.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Enqueue adds a request to the pending queue and blocks until its group
// resolves or rejects. Once enqueued, a request is never abandoned: the
// context does not cancel it, and the result of the group is returned to
// every member identically.
func (c *Coordinator) Enqueue(ctx context.Context, req types.Request, key, identifier string, priority int, bypassCache bool) (*types.Result, error) {
	p := &PendingRequest{
		ID:          uuid.NewString(),
		Key:         key,
		Request:     req,
		Identifier:  identifier,
		Priority:    priority,
		BypassCache: bypassCache,
		EnqueuedAt:  time.Now(),
		done:        make(chan outcome, 1),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.NewShutdownError()
	}
	c.queue = append(c.queue, p)
	metrics.PendingRequests.Set(float64(len(c.queue)))
	c.armTimerLocked()
	c.mu.Unlock()

	out := <-p.done
	return out.result, out.err
}

// armTimerLocked starts the flush timer if the coordinator is idle.
// Caller must hold the mutex.
func (c *Coordinator) armTimerLocked() {
	if c.timer != nil {
		return
	}
	c.state.Store(int32(StateCollecting))
	c.timer = time.AfterFunc(c.cfg.FlushInterval, c.onTick)
}

// onTick runs a flush pass and re-arms the timer when work remains.
func (c *Coordinator) onTick() {
	c.flush(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = nil
	if c.closed {
		c.state.Store(int32(StateIdle))
		return
	}
	if len(c.queue) > 0 {
		// Requests arrived during flushing: schedule another tick.
		c.armTimerLocked()
	} else {
		c.state.Store(int32(StateIdle))
	}
}

// flush drains up to MaxBatchSize pending requests, partitions them into
// equivalence groups, and resolves each group from one cache lookup or
// one upstream call. The re-entrancy guard ensures no two flush passes
// overlap.
func (c *Coordinator) flush(ctx context.Context) {
	if !c.flushing.CompareAndSwap(false, true) {
		return
	}
	defer c.flushing.Store(false)

	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	c.state.Store(int32(StateFlushing))

	// Highest priority first; ties keep arrival order.
	sort.SliceStable(c.queue, func(i, j int) bool {
		return c.queue[i].Priority > c.queue[j].Priority
	})

	take := len(c.queue)
	if take > c.cfg.MaxBatchSize {
		take = c.cfg.MaxBatchSize
	}
	batch := c.queue[:take]
	c.queue = append([]*PendingRequest(nil), c.queue[take:]...)
	metrics.PendingRequests.Set(float64(len(c.queue)))
	c.mu.Unlock()

	groups := c.partition(batch)

	// Groups run concurrently, but each group's dispatch (cache lookup
	// and, on miss, the upstream call) begins only after the previous,
	// higher-priority group has issued its own dispatch.
	var eg errgroup.Group
	prev := make(chan struct{})
	close(prev)
	for _, g := range groups {
		g := g
		gate := prev
		dispatched := make(chan struct{})
		prev = dispatched
		eg.Go(func() error {
			<-gate
			c.processGroup(ctx, g, dispatched)
			return nil
		})
	}
	_ = eg.Wait()

	c.state.Store(int32(StateCollecting))
}

// partition splits a sorted batch into groups of equivalent requests.
// Grouping is keyed by the derived cache key, with request equivalence
// confirmed before a member joins a group so a key collision can never
// coalesce two distinct request shapes. With deduplication disabled
// every request forms its own group.
func (c *Coordinator) partition(batch []*PendingRequest) []*group {
	var groups []*group
	index := make(map[string][]*group, len(batch))

	for _, p := range batch {
		key := p.Key
		if !c.cfg.Deduplicate {
			key = p.Key + ":" + p.ID
		}

		joined := false
		for _, g := range index[key] {
			if p.Request.EquivalentTo(g.representative().Request) {
				g.members = append(g.members, p)
				joined = true
				break
			}
		}
		if joined {
			continue
		}

		g := &group{key: p.Key, members: []*PendingRequest{p}}
		index[key] = append(index[key], g)
		groups = append(groups, g)
	}

	return groups
}

// group is a set of pending requests judged equivalent and resolved
// together from one upstream call.
type group struct {
	key     string
	members []*PendingRequest
}

// representative returns the request used for the single upstream call.
func (g *group) representative() *PendingRequest {
	return g.members[0]
}

// bypassCache reports whether any member asked to skip the cache lookup.
func (g *group) bypassCache() bool {
	for _, m := range g.members {
		if m.BypassCache {
			return true
		}
	}
	return false
}

// processGroup resolves one coalescing group. The dispatched channel is
// closed as soon as the group has issued its cache lookup and, on miss,
// initiated its upstream call, letting the next group proceed while this
// group's upstream round trip is still in flight.
func (c *Coordinator) processGroup(ctx context.Context, g *group, dispatched chan struct{}) {
	var once sync.Once
	release := func() { once.Do(func() { close(dispatched) }) }
	defer release()

	rep := g.representative()

	// Shared key: one cache lookup for the whole group, skipped when any
	// member asked for a fresh result.
	if !g.bypassCache() {
		if cached, ok := c.cache.Get(ctx, g.key); ok {
			release()
			g.resolve(cached)
			return
		}
	}

	release()

	result, err := c.callUpstream(ctx, rep.Request)
	if err != nil {
		c.logger.WithRequestID(ctx).Warn("upstream call failed, rejecting group",
			"key", g.key, "members", len(g.members), "error", err)
		g.reject(err)
		return
	}

	c.cache.Set(ctx, g.key, result, c.cfg.CacheTTL)

	// One usage entry per distinct caller identifier present in the group.
	if c.limiter != nil {
		seen := make(map[string]struct{}, len(g.members))
		for _, m := range g.members {
			if _, ok := seen[m.Identifier]; ok {
				continue
			}
			seen[m.Identifier] = struct{}{}
			c.limiter.Record(m.Identifier)
		}
	}

	if c.collector != nil {
		c.collector.RecordUpstream(string(rep.Request.Kind), result.Model(),
			result.Tokens, result.Cost, len(g.members)-1)
	}

	g.resolve(result)
}

// callUpstream issues exactly one call for the group's representative
// request and converts the reply into a Result with cost attached.
func (c *Coordinator) callUpstream(ctx context.Context, req types.Request) (*types.Result, error) {
	switch req.Kind {
	case types.KindChat:
		normalized := req.Chat.Normalized()
		resp, err := c.client.CreateChatCompletion(ctx, &normalized)
		if err != nil {
			return nil, errors.NewUpstreamError(normalized.Model, err)
		}

		tokens := 0
		if resp.Usage != nil {
			tokens = resp.Usage.TotalTokens
		}
		if tokens == 0 {
			tokens = tokenizer.EstimatePromptTokens(normalized.Model, &normalized) +
				tokenizer.EstimateCompletionTokens(normalized.Model, resp, "")
		}

		return &types.Result{
			Kind:   types.KindChat,
			Chat:   resp,
			Tokens: tokens,
			Cost:   c.estimateCost(tokens, normalized.Model),
		}, nil

	case types.KindEmbedding:
		normalized := req.Embedding.Normalized()
		resp, err := c.client.CreateEmbedding(ctx, &normalized)
		if err != nil {
			return nil, errors.NewUpstreamError(normalized.Model, err)
		}

		tokens := resp.ApproximateTokens
		if tokens == 0 {
			tokens = tokenizer.EstimateEmbeddingTokens(normalized.Model, &normalized)
		}

		return &types.Result{
			Kind:      types.KindEmbedding,
			Embedding: resp,
			Tokens:    tokens,
			Cost:      c.estimateCost(tokens, normalized.Model),
		}, nil
	}

	return nil, errors.NewInvalidRequestError("", "unknown request kind")
}

func (c *Coordinator) estimateCost(tokens int, model string) float64 {
	if !c.cfg.TrackCost || c.estimator == nil {
		return 0
	}
	return c.estimator.Estimate(tokens, model)
}

// resolve fans the identical result out to every member. The payload
// pointer is shared: members are never resolved independently once
// grouped.
func (g *group) resolve(result *types.Result) {
	for _, m := range g.members {
		m.done <- outcome{result: result}
	}
}

// reject fans the same error out to every member. A group either
// succeeds for all members or fails for all members.
func (g *group) reject(err error) {
	for _, m := range g.members {
		m.done <- outcome{err: err}
	}
}

// CallDirect bypasses the queue and issues the request immediately, still
// caching the result and recording limiter usage. Used when batching is
// disabled or explicitly bypassed for a call.
func (c *Coordinator) CallDirect(ctx context.Context, req types.Request, key, identifier string) (*types.Result, error) {
	result, err := c.callUpstream(ctx, req)
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, key, result, c.cfg.CacheTTL)
	if c.limiter != nil {
		c.limiter.Record(identifier)
	}
	if c.collector != nil {
		c.collector.RecordUpstream(string(req.Kind), result.Model(),
			result.Tokens, result.Cost, 0)
	}

	return result, nil
}

// Close stops the flush timer and rejects all pending requests with a
// shutdown error. Requests are resolved or rejected, never abandoned.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	pending := c.queue
	c.queue = nil
	metrics.PendingRequests.Set(0)
	c.state.Store(int32(StateIdle))
	c.mu.Unlock()

	err := errors.NewShutdownError()
	for _, p := range pending {
		p.done <- outcome{err: err}
	}
	return nil
}
