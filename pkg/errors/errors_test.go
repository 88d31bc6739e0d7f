package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		err := NewRateLimitError("alice", 0)
		assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatusCode())
		assert.True(t, IsRateLimit(err))
		assert.True(t, err.Retryable)
		assert.Contains(t, err.Error(), "alice")
	})

	t.Run("upstream wraps raw error", func(t *testing.T) {
		err := NewUpstreamError("gpt-4o", stderrors.New("connection refused"))
		assert.Equal(t, http.StatusBadGateway, err.HTTPStatusCode())
		assert.True(t, IsUpstreamFailure(err))
		assert.Equal(t, "gpt-4o", err.Model)
	})

	t.Run("upstream passes through standardized errors", func(t *testing.T) {
		orig := NewRateLimitError("bob", 0)
		wrapped := NewUpstreamError("gpt-4o", orig)
		assert.Same(t, orig, wrapped)
	})

	t.Run("upstream unwraps through fmt.Errorf chains", func(t *testing.T) {
		orig := NewInvalidRequestError("m", "bad")
		wrapped := NewUpstreamError("m", fmt.Errorf("call failed: %w", orig))
		assert.Same(t, orig, wrapped)
	})

	t.Run("shutdown", func(t *testing.T) {
		err := NewShutdownError()
		assert.True(t, IsShutdown(err))
		assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatusCode())
	})

	t.Run("invalid request is not retryable", func(t *testing.T) {
		err := NewInvalidRequestError("gpt-4o", "messages cannot be empty")
		assert.False(t, err.Retryable)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatusCode())
	})

	t.Run("cache unavailable", func(t *testing.T) {
		assert.True(t, IsCacheUnavailable(NewCacheUnavailableError("redis down")))
	})
}

func TestPredicatesRejectOtherErrors(t *testing.T) {
	plain := stderrors.New("boom")
	assert.False(t, IsRateLimit(plain))
	assert.False(t, IsUpstreamFailure(plain))
	assert.False(t, IsShutdown(plain))
	assert.False(t, IsRateLimit(nil))
}

func TestHTTPStatusCodeDefault(t *testing.T) {
	err := &InferenceError{Message: "no code set"}
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatusCode())
}
