// Package optimizer provides a request-optimization layer in front of a
// pay-per-call inference API. It minimizes redundant upstream calls
// through deterministic response caching and single-flight request
// coalescing, bounds cost with a per-model estimator, and protects the
// upstream service with a sliding-window rate limiter — while staying
// transparent to callers: the same Result shape is returned whether a
// call was served from cache, from a coalesced in-flight call, or from a
// fresh upstream round trip.
//
// Basic usage:
//
//	client, err := optimizer.New(
//	    optimizer.WithUpstream(myInferenceClient),
//	    optimizer.WithCacheTTL(30*time.Minute),
//	    optimizer.WithRateLimit(120),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.CreateChatCompletion(ctx, &optimizer.ChatRequest{
//	    Model:    "gemini-1.5-flash",
//	    Messages: []optimizer.ChatMessage{{Role: "user", Content: "Hello!"}},
//	}, nil)
package optimizer

import (
	"github.com/nabeelKh14/prismai-platform-sub008/internal/cache"
	"github.com/nabeelKh14/prismai-platform-sub008/internal/ratelimit"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/errors"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/upstream"
)

// Version is the current version of the optimizer.
const Version = "1.0.0"

// Re-export core request/response types for convenience.
type (
	// ChatRequest represents a chat completion request.
	ChatRequest = types.ChatRequest

	// ChatMessage represents a single message in the conversation.
	ChatMessage = types.ChatMessage

	// ChatResponse represents a chat completion response.
	ChatResponse = types.ChatResponse

	// EmbeddingRequest represents an embedding generation request.
	EmbeddingRequest = types.EmbeddingRequest

	// EmbeddingResponse represents an embedding generation response.
	EmbeddingResponse = types.EmbeddingResponse

	// Usage contains token usage statistics.
	Usage = types.Usage

	// Result is the value returned to every caller.
	Result = types.Result

	// RateLimitStatus reports the current window state for an identifier.
	RateLimitStatus = ratelimit.Status

	// InferenceClient is the upstream collaborator contract.
	InferenceClient = upstream.InferenceClient

	// Store is the pluggable cache backend contract.
	Store = cache.Store

	// Stats reports cache hit/miss counters.
	Stats = cache.Stats

	// InferenceError is the standardized error type.
	InferenceError = errors.InferenceError
)

// Error predicates re-exported for callers.
var (
	IsRateLimit       = errors.IsRateLimit
	IsUpstreamFailure = errors.IsUpstreamFailure
)
