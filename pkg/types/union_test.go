package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestUnion(t *testing.T) {
	chat := NewChatRequest(&ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}})
	emb := NewEmbeddingRequest(&EmbeddingRequest{Input: "hi"})

	t.Run("kind tags match constructors", func(t *testing.T) {
		assert.Equal(t, KindChat, chat.Kind)
		assert.Equal(t, KindEmbedding, emb.Kind)
	})

	t.Run("model reflects normalization", func(t *testing.T) {
		assert.Equal(t, DefaultModel, chat.Model())
		assert.Equal(t, DefaultEmbeddingModel, emb.Model())
	})

	t.Run("cross-kind requests are never equivalent", func(t *testing.T) {
		assert.False(t, chat.EquivalentTo(emb))
	})

	t.Run("unknown kind fails validation", func(t *testing.T) {
		assert.Error(t, Request{Kind: "bogus"}.Validate())
	})
}

func TestResultModel(t *testing.T) {
	chatRes := &Result{Kind: KindChat, Chat: &ChatResponse{Model: "gpt-4o"}}
	assert.Equal(t, "gpt-4o", chatRes.Model())

	embRes := &Result{Kind: KindEmbedding, Embedding: &EmbeddingResponse{Model: "text-embedding-004"}}
	assert.Equal(t, "text-embedding-004", embRes.Model())

	assert.Empty(t, (&Result{Kind: KindChat}).Model())
}
