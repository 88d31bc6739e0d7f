// Package upstream defines the public interface for the inference service
// the optimizer fronts. The optimizer never talks to a provider directly;
// it depends on this contract so any client (real SDK, proxy, test double)
// can be injected.
package upstream

import (
	"context"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// InferenceClient issues the actual network calls to the inference API.
//
// Implementations should return errors mapped to *errors.InferenceError
// where possible; the optimizer propagates failures verbatim to every
// waiter in the affected coalescing group and never retries internally.
type InferenceClient interface {
	// CreateChatCompletion performs a chat completion call.
	CreateChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error)

	// CreateEmbedding performs an embedding generation call.
	CreateEmbedding(ctx context.Context, req *types.EmbeddingRequest) (*types.EmbeddingResponse, error)
}
