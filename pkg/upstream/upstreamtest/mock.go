// Package upstreamtest provides a scripted InferenceClient for tests.
package upstreamtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// MockClient is an in-memory InferenceClient that records calls and
// returns canned responses. Safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// ChatFn overrides the default chat response when set.
	ChatFn func(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)

	// EmbeddingFn overrides the default embedding response when set.
	EmbeddingFn func(ctx context.Context, req *types.EmbeddingRequest) (*types.EmbeddingResponse, error)

	// Latency is injected before every call when non-zero.
	Latency time.Duration

	// Err is returned from every call when set.
	Err error

	chatCalls      atomic.Int64
	embeddingCalls atomic.Int64

	chatRequests      []*types.ChatRequest
	embeddingRequests []*types.EmbeddingRequest
}

// NewMockClient returns a mock that answers every request successfully.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CreateChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	m.chatCalls.Add(1)
	m.mu.Lock()
	m.chatRequests = append(m.chatRequests, req)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ChatFn != nil {
		return m.ChatFn(ctx, req)
	}

	return &types.ChatResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", m.chatCalls.Load()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: "mock response"},
			FinishReason: "stop",
		}},
		Usage: &types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *MockClient) CreateEmbedding(ctx context.Context, req *types.EmbeddingRequest) (*types.EmbeddingResponse, error) {
	m.embeddingCalls.Add(1)
	m.mu.Lock()
	m.embeddingRequests = append(m.embeddingRequests, req)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.EmbeddingFn != nil {
		return m.EmbeddingFn(ctx, req)
	}

	return &types.EmbeddingResponse{
		Object:            "embedding",
		Embedding:         []float64{0.1, 0.2, 0.3},
		Model:             req.Model,
		ApproximateTokens: len(req.Input) / 4,
	}, nil
}

// ChatCalls reports how many chat completions hit the mock.
func (m *MockClient) ChatCalls() int64 { return m.chatCalls.Load() }

// EmbeddingCalls reports how many embedding calls hit the mock.
func (m *MockClient) EmbeddingCalls() int64 { return m.embeddingCalls.Load() }

// ChatRequests returns a copy of the recorded chat requests in order.
func (m *MockClient) ChatRequests() []*types.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.ChatRequest, len(m.chatRequests))
	copy(out, m.chatRequests)
	return out
}

// EmbeddingRequests returns a copy of the recorded embedding requests.
func (m *MockClient) EmbeddingRequests() []*types.EmbeddingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.EmbeddingRequest, len(m.embeddingRequests))
	copy(out, m.embeddingRequests)
	return out
}
