package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/pricing"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/ratelimit"
	opterrors "github.com/nabeelKh14/prismai-platform-sub008/pkg/errors"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/upstream/upstreamtest"
)

type testEnv struct {
	coord   *Coordinator
	mock    *upstreamtest.MockClient
	facade  *cache.Facade
	limiter *ratelimit.SlidingWindowLimiter
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	store := cache.NewMemoryStore(cache.DefaultMemoryStoreConfig())
	t.Cleanup(func() { store.Close() })

	facade := cache.NewFacade(store, cache.DefaultFacadeConfig(), nil)
	limiter := ratelimit.New(ratelimit.Config{Limit: 1000, Window: time.Minute})
	mock := upstreamtest.NewMockClient()

	coord := New(cfg, facade, mock, pricing.NewEstimator(nil), limiter, nil, nil)
	t.Cleanup(func() { coord.Close() })

	return &testEnv{coord: coord, mock: mock, facade: facade, limiter: limiter}
}

func testChatRequest(content string) types.Request {
	return types.NewChatRequest(&types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{{Role: "user", Content: content}},
	})
}

// enqueueAll fires n concurrent Enqueue calls and collects the outcomes.
func enqueueAll(env *testEnv, reqs []types.Request, keys []string, identifiers []string) ([]*types.Result, []error) {
	results := make([]*types.Result, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.coord.Enqueue(context.Background(), reqs[i], keys[i], identifiers[i], 0, false)
		}(i)
	}
	wg.Wait()
	return results, errs
}

func TestCoalescingSingleUpstreamCall(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true, CacheTTL: time.Minute})

	req := testChatRequest("hello")
	key := env.facade.DeriveKey(req)

	const waiters = 5
	reqs := make([]types.Request, waiters)
	keys := make([]string, waiters)
	ids := make([]string, waiters)
	for i := range reqs {
		reqs[i] = req
		keys[i] = key
		ids[i] = "alice"
	}

	results, errs := enqueueAll(env, reqs, keys, ids)

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
	}

	assert.Equal(t, int64(1), env.mock.ChatCalls(), "equivalent requests must share one upstream call")

	// Every waiter receives the identical payload.
	for i := 1; i < waiters; i++ {
		assert.Same(t, results[0].Chat, results[i].Chat)
	}
	assert.Equal(t, 15, results[0].Tokens)
	assert.Greater(t, results[0].Cost, 0.0)
}

func TestDistinctRequestsGetDistinctCalls(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true, CacheTTL: time.Minute})

	reqA := testChatRequest("question a")
	reqB := testChatRequest("question b")

	_, errs := enqueueAll(env,
		[]types.Request{reqA, reqB},
		[]string{env.facade.DeriveKey(reqA), env.facade.DeriveKey(reqB)},
		[]string{"alice", "alice"})

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int64(2), env.mock.ChatCalls())
}

func TestDeduplicationDisabled(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: false})

	req := testChatRequest("hello")
	key := env.facade.DeriveKey(req)

	// Distinct keys keep the cache out of the picture so the call count
	// reflects grouping behavior alone.
	const n = 3
	reqs := make([]types.Request, n)
	keys := make([]string, n)
	ids := make([]string, n)
	for i := range reqs {
		reqs[i] = req
		keys[i] = key + string(rune('a'+i))
		ids[i] = "alice"
	}

	_, errs := enqueueAll(env, reqs, keys, ids)
	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(n), env.mock.ChatCalls(), "with deduplication off every request dispatches alone")
}

func TestMaxBatchSizeSpillsToNextTick(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 2, Deduplicate: true, CacheTTL: time.Minute})

	const n = 5
	reqs := make([]types.Request, n)
	keys := make([]string, n)
	ids := make([]string, n)
	for i := range reqs {
		reqs[i] = testChatRequest("question " + string(rune('a'+i)))
		keys[i] = env.facade.DeriveKey(reqs[i])
		ids[i] = "alice"
	}

	results, errs := enqueueAll(env, reqs, keys, ids)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
	}

	// All five distinct requests eventually dispatch across ticks.
	assert.Equal(t, int64(n), env.mock.ChatCalls())
}

func TestSpilledEquivalentRequestsHitCache(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 2, Deduplicate: true, CacheTTL: time.Minute})

	req := testChatRequest("hello")
	key := env.facade.DeriveKey(req)

	const n = 5
	reqs := make([]types.Request, n)
	keys := make([]string, n)
	ids := make([]string, n)
	for i := range reqs {
		reqs[i] = req
		keys[i] = key
		ids[i] = "alice"
	}

	results, errs := enqueueAll(env, reqs, keys, ids)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	// The first tick's group calls upstream and caches; spilled waves are
	// served from the cache.
	assert.Equal(t, int64(1), env.mock.ChatCalls())

	fromCache := 0
	for _, r := range results {
		if r.ServedFromCache {
			fromCache++
		}
	}
	assert.Equal(t, n-2, fromCache)
}

func TestPriorityOrdersDispatch(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 60 * time.Millisecond, MaxBatchSize: 1, Deduplicate: true})

	low := testChatRequest("low priority question")
	high := testChatRequest("high priority question")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		env.coord.Enqueue(context.Background(), low, env.facade.DeriveKey(low), "alice", 0, false)
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		defer wg.Done()
		env.coord.Enqueue(context.Background(), high, env.facade.DeriveKey(high), "alice", 10, false)
	}()
	wg.Wait()

	calls := env.mock.ChatRequests()
	require.Len(t, calls, 2)
	assert.Equal(t, "high priority question", calls[0].Messages[0].Content,
		"the higher-priority request must dispatch first despite arriving later")
}

func TestPartitionGuardsAgainstKeyCollisions(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: time.Hour, MaxBatchSize: 10, Deduplicate: true})

	// Same derived key, non-equivalent request shapes: a key collision
	// must not coalesce them into one group.
	a := &PendingRequest{ID: "a", Key: "collision", Request: testChatRequest("question a")}
	b := &PendingRequest{ID: "b", Key: "collision", Request: testChatRequest("question b")}
	c := &PendingRequest{ID: "c", Key: "collision", Request: testChatRequest("question a")}

	groups := env.coord.partition([]*PendingRequest{a, b, c})

	require.Len(t, groups, 2)
	assert.Len(t, groups[0].members, 2, "equivalent requests still coalesce")
	assert.Len(t, groups[1].members, 1)
	assert.Same(t, a, groups[0].members[0])
	assert.Same(t, c, groups[0].members[1])
	assert.Same(t, b, groups[1].members[0])
}

func TestGroupFailureRejectsAllMembers(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true})
	env.mock.Err = errors.New("upstream exploded")

	req := testChatRequest("doomed")
	key := env.facade.DeriveKey(req)

	const n = 3
	reqs := make([]types.Request, n)
	keys := make([]string, n)
	ids := make([]string, n)
	for i := range reqs {
		reqs[i] = req
		keys[i] = key
		ids[i] = "alice"
	}

	results, errs := enqueueAll(env, reqs, keys, ids)

	assert.Equal(t, int64(1), env.mock.ChatCalls())
	for i := 0; i < n; i++ {
		assert.Nil(t, results[i])
		require.Error(t, errs[i])
		assert.True(t, opterrors.IsUpstreamFailure(errs[i]))
	}

	// Failed groups never pollute the cache.
	_, ok := env.facade.Get(context.Background(), key)
	assert.False(t, ok)
}

func TestLimiterRecordsPerDistinctIdentifier(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true})

	req := testChatRequest("shared")
	key := env.facade.DeriveKey(req)

	_, errs := enqueueAll(env,
		[]types.Request{req, req, req},
		[]string{key, key, key},
		[]string{"alice", "alice", "bob"})
	for _, err := range errs {
		require.NoError(t, err)
	}

	// One usage entry per distinct identifier, not per waiter.
	assert.Equal(t, 1, 1000-env.limiter.Check("alice").Remaining)
	assert.Equal(t, 1, 1000-env.limiter.Check("bob").Remaining)
}

func TestEmbeddingRequestsFlowThrough(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true})

	req := types.NewEmbeddingRequest(&types.EmbeddingRequest{Input: "embed this text"})
	key := env.facade.DeriveKey(req)

	result, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, types.KindEmbedding, result.Kind)
	require.NotNil(t, result.Embedding)
	assert.NotEmpty(t, result.Embedding.Embedding)
	assert.Equal(t, int64(1), env.mock.EmbeddingCalls())
}

func TestEnqueueBypassCache(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true, CacheTTL: time.Minute})

	req := testChatRequest("refresh me")
	key := env.facade.DeriveKey(req)

	first, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, false)
	require.NoError(t, err)
	require.False(t, first.ServedFromCache)

	// The entry is cached now; a bypassing enqueue must still go upstream.
	fresh, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, true)
	require.NoError(t, err)
	assert.False(t, fresh.ServedFromCache)
	assert.Equal(t, int64(2), env.mock.ChatCalls())

	// The fresh result refreshed the cache for later callers.
	repeat, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, false)
	require.NoError(t, err)
	assert.True(t, repeat.ServedFromCache)
	assert.Equal(t, int64(2), env.mock.ChatCalls())
}

func TestStateTransitions(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true})

	assert.Equal(t, StateIdle, env.coord.State())

	req := testChatRequest("hello")
	done := make(chan struct{})
	go func() {
		env.coord.Enqueue(context.Background(), req, env.facade.DeriveKey(req), "alice", 0, false)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return env.coord.State() != StateIdle
	}, time.Second, time.Millisecond, "enqueue should arm the timer and leave idle")

	<-done
	require.Eventually(t, func() bool {
		return env.coord.State() == StateIdle && env.coord.PendingCount() == 0
	}, time.Second, time.Millisecond, "an empty queue should return to idle")
}

func TestCloseRejectsPending(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: time.Hour, MaxBatchSize: 10, Deduplicate: true})

	req := testChatRequest("never dispatched")
	key := env.facade.DeriveKey(req)

	errCh := make(chan error, 1)
	go func() {
		_, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, false)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return env.coord.PendingCount() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, env.coord.Close())

	err := <-errCh
	require.Error(t, err)
	assert.True(t, opterrors.IsShutdown(err))
	assert.Zero(t, env.mock.ChatCalls())

	t.Run("enqueue after close fails fast", func(t *testing.T) {
		_, err := env.coord.Enqueue(context.Background(), req, key, "alice", 0, false)
		assert.True(t, opterrors.IsShutdown(err))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, env.coord.Close())
	})
}

func TestCallDirect(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: time.Hour, MaxBatchSize: 10, Deduplicate: true, CacheTTL: time.Minute})

	req := testChatRequest("direct")
	key := env.facade.DeriveKey(req)

	result, err := env.coord.CallDirect(context.Background(), req, key, "alice")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(1), env.mock.ChatCalls())

	t.Run("result is cached", func(t *testing.T) {
		cached, ok := env.facade.Get(context.Background(), key)
		require.True(t, ok)
		assert.True(t, cached.ServedFromCache)
	})

	t.Run("limiter usage is recorded", func(t *testing.T) {
		assert.Equal(t, 1, 1000-env.limiter.Check("alice").Remaining)
	})
}

func TestCostTrackingDisabled(t *testing.T) {
	env := newTestEnv(t, Config{FlushInterval: 20 * time.Millisecond, MaxBatchSize: 10, Deduplicate: true, TrackCost: false})

	req := testChatRequest("free")
	result, err := env.coord.Enqueue(context.Background(), req, env.facade.DeriveKey(req), "alice", 0, false)
	require.NoError(t, err)

	assert.Zero(t, result.Cost)
	assert.Equal(t, 15, result.Tokens, "token accounting stays on with cost tracking off")
}
