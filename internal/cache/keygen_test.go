package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

func chatReq(mutate func(*types.ChatRequest)) types.Request {
	req := &types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{{Role: "user", Content: "hello"}},
	}
	if mutate != nil {
		mutate(req)
	}
	return types.NewChatRequest(req)
}

func TestDeriveDeterministic(t *testing.T) {
	d := NewKeyDeriver("prismai")

	k1 := d.Derive(chatReq(nil))
	k2 := d.Derive(chatReq(nil))
	assert.Equal(t, k1, k2)
}

func TestDeriveKeyStructure(t *testing.T) {
	d := NewKeyDeriver("prismai")

	t.Run("chat keys carry the chat namespace", func(t *testing.T) {
		key := d.Derive(chatReq(nil))
		assert.True(t, strings.HasPrefix(key, "prismai:chat:"))
	})

	t.Run("embedding keys carry the embedding namespace", func(t *testing.T) {
		key := d.Derive(types.NewEmbeddingRequest(&types.EmbeddingRequest{Input: "hello"}))
		assert.True(t, strings.HasPrefix(key, "prismai:embedding:"))
	})

	t.Run("empty prefix drops the leading segment", func(t *testing.T) {
		key := NewKeyDeriver("").Derive(chatReq(nil))
		assert.True(t, strings.HasPrefix(key, "chat:"))
	})
}

func TestDeriveNormalization(t *testing.T) {
	d := NewKeyDeriver("prismai")

	t.Run("omitted defaults match explicit defaults", func(t *testing.T) {
		temp := types.DefaultTemperature
		explicit := chatReq(func(r *types.ChatRequest) {
			r.Temperature = &temp
			r.MaxTokens = types.DefaultMaxTokens
		})
		assert.Equal(t, d.Derive(chatReq(nil)), d.Derive(explicit))
	})

	t.Run("user field does not affect the key", func(t *testing.T) {
		a := chatReq(func(r *types.ChatRequest) { r.User = "alice" })
		b := chatReq(func(r *types.ChatRequest) { r.User = "bob" })
		assert.Equal(t, d.Derive(a), d.Derive(b))
	})
}

func TestDeriveDistinguishesRequests(t *testing.T) {
	d := NewKeyDeriver("prismai")
	base := d.Derive(chatReq(nil))

	t.Run("different content", func(t *testing.T) {
		other := chatReq(func(r *types.ChatRequest) { r.Messages[0].Content = "goodbye" })
		assert.NotEqual(t, base, d.Derive(other))
	})

	t.Run("different model", func(t *testing.T) {
		other := chatReq(func(r *types.ChatRequest) { r.Model = "gpt-4o-mini" })
		assert.NotEqual(t, base, d.Derive(other))
	})

	t.Run("different temperature", func(t *testing.T) {
		temp := 0.1
		other := chatReq(func(r *types.ChatRequest) { r.Temperature = &temp })
		assert.NotEqual(t, base, d.Derive(other))
	})

	t.Run("temperatures differing past two decimals", func(t *testing.T) {
		low := 0.699
		high := 0.701
		a := chatReq(func(r *types.ChatRequest) { r.Temperature = &low })
		b := chatReq(func(r *types.ChatRequest) { r.Temperature = &high })
		assert.NotEqual(t, d.Derive(a), d.Derive(b),
			"temperature must match exactly, not after rounding")
	})

	t.Run("different role with same content", func(t *testing.T) {
		other := chatReq(func(r *types.ChatRequest) { r.Messages[0].Role = "system" })
		assert.NotEqual(t, base, d.Derive(other))
	})

	t.Run("chat never collides with embedding", func(t *testing.T) {
		emb := types.NewEmbeddingRequest(&types.EmbeddingRequest{Model: "gpt-4o", Input: "hello"})
		assert.NotEqual(t, base, d.Derive(emb))
	})
}
