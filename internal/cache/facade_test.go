package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// brokenStore fails every operation, simulating an unavailable backend.
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store unavailable")
}
func (brokenStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("store unavailable")
}
func (brokenStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return 0, errors.New("store unavailable")
}
func (brokenStore) Ping(ctx context.Context) error { return errors.New("store unavailable") }
func (brokenStore) Close() error                   { return nil }
func (brokenStore) Stats() Stats                   { return Stats{} }

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	t.Cleanup(func() { store.Close() })
	return NewFacade(store, DefaultFacadeConfig(), nil)
}

func chatResult() *types.Result {
	return &types.Result{
		Kind: types.KindChat,
		Chat: &types.ChatResponse{
			ID:      "chatcmpl-1",
			Model:   "gpt-4o",
			Choices: []types.Choice{{Message: types.ChatMessage{Role: "assistant", Content: "hi"}}},
		},
		Tokens: 15,
		Cost:   0.0003,
	}
}

func TestFacadeRoundTrip(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	t.Run("chat result", func(t *testing.T) {
		req := chatReq(nil)
		key := f.DeriveKey(req)

		_, ok := f.Get(ctx, key)
		require.False(t, ok, "fresh key should miss")

		f.Set(ctx, key, chatResult(), time.Minute)

		got, ok := f.Get(ctx, key)
		require.True(t, ok)
		assert.True(t, got.ServedFromCache)
		assert.Equal(t, types.KindChat, got.Kind)
		require.NotNil(t, got.Chat)
		assert.Equal(t, "chatcmpl-1", got.Chat.ID)
		assert.Equal(t, "hi", got.Chat.Choices[0].Message.Content)
		assert.Equal(t, 15, got.Tokens)
		assert.Equal(t, 0.0003, got.Cost)
	})

	t.Run("embedding result", func(t *testing.T) {
		req := types.NewEmbeddingRequest(&types.EmbeddingRequest{Input: "embed me"})
		key := f.DeriveKey(req)

		f.Set(ctx, key, &types.Result{
			Kind:      types.KindEmbedding,
			Embedding: &types.EmbeddingResponse{Model: "text-embedding-004", Embedding: []float64{0.5, -0.25}},
			Tokens:    2,
		}, time.Minute)

		got, ok := f.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, types.KindEmbedding, got.Kind)
		require.NotNil(t, got.Embedding)
		assert.Equal(t, []float64{0.5, -0.25}, got.Embedding.Embedding)
	})
}

func TestFacadeDisabled(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()
	f := NewFacade(store, FacadeConfig{Enabled: false}, nil)
	ctx := context.Background()

	key := f.DeriveKey(chatReq(nil))
	f.Set(ctx, key, chatResult(), time.Minute)

	_, ok := f.Get(ctx, key)
	assert.False(t, ok)
	assert.False(t, f.Enabled())
}

func TestFacadeFailOpen(t *testing.T) {
	f := NewFacade(brokenStore{}, DefaultFacadeConfig(), nil)
	ctx := context.Background()
	key := f.DeriveKey(chatReq(nil))

	t.Run("get error degrades to a miss", func(t *testing.T) {
		res, ok := f.Get(ctx, key)
		assert.False(t, ok)
		assert.Nil(t, res)
	})

	t.Run("set error is swallowed", func(t *testing.T) {
		assert.NotPanics(t, func() {
			f.Set(ctx, key, chatResult(), time.Minute)
		})
	})

	t.Run("invalidate error reports zero removals", func(t *testing.T) {
		assert.Equal(t, 0, f.Invalidate(ctx, ""))
	})
}

func TestFacadeCorruptEntry(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()
	f := NewFacade(store, DefaultFacadeConfig(), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "prismai:chat:corrupt", []byte("not json"), time.Minute))

	_, ok := f.Get(ctx, "prismai:chat:corrupt")
	assert.False(t, ok, "corrupt entry should read as a miss")
}

func TestFacadeInvalidate(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	chatKey := f.DeriveKey(chatReq(nil))
	embKey := f.DeriveKey(types.NewEmbeddingRequest(&types.EmbeddingRequest{Input: "x"}))
	f.Set(ctx, chatKey, chatResult(), time.Minute)
	f.Set(ctx, embKey, &types.Result{
		Kind:      types.KindEmbedding,
		Embedding: &types.EmbeddingResponse{},
	}, time.Minute)

	t.Run("pattern clears a single namespace", func(t *testing.T) {
		count := f.Invalidate(ctx, "prismai:chat:")
		assert.Equal(t, 1, count)

		_, ok := f.Get(ctx, chatKey)
		assert.False(t, ok)
		_, ok = f.Get(ctx, embKey)
		assert.True(t, ok)
	})

	t.Run("empty pattern clears the whole namespace", func(t *testing.T) {
		count := f.Invalidate(ctx, "")
		assert.Equal(t, 1, count)

		_, ok := f.Get(ctx, embKey)
		assert.False(t, ok)
	})
}

func TestFacadeNilStore(t *testing.T) {
	f := NewFacade(nil, FacadeConfig{Enabled: true}, nil)
	assert.False(t, f.Enabled(), "nil store disables the facade")
	assert.Equal(t, "prismai", f.KeyPrefix())
}
