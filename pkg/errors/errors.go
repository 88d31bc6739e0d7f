// Package errors defines unified error types for optimizer operations.
// Upstream provider errors are expected to arrive already mapped to these
// standard types and are propagated verbatim to every waiter.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// InferenceError represents a standardized error from the optimization
// pipeline or the upstream inference service. It contains all information
// needed for error handling, logging, and client responses.
type InferenceError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Model      string `json:"model"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("[%s] %s (model=%s, code=%d)",
		e.Type, e.Message, e.Model, e.StatusCode)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *InferenceError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Common error types as constants for consistency.
const (
	TypeRateLimit        = "rate_limit_exceeded"
	TypeUpstreamFailure  = "upstream_failure"
	TypeCacheUnavailable = "cache_unavailable"
	TypeInvalidRequest   = "invalid_request_error"
	TypeShutdown         = "shutdown_error"
)

// NewRateLimitError creates a rate limit error (429). The caller must back
// off; the optimizer never retries these internally.
func NewRateLimitError(identifier string, remaining int) *InferenceError {
	return &InferenceError{
		StatusCode: http.StatusTooManyRequests,
		Message:    fmt.Sprintf("rate limit exceeded for %q (remaining=%d)", identifier, remaining),
		Type:       TypeRateLimit,
		Retryable:  true,
	}
}

// NewUpstreamError wraps a raw upstream failure. Errors that are already
// *InferenceError pass through unchanged.
func NewUpstreamError(model string, err error) *InferenceError {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie
	}
	return &InferenceError{
		StatusCode: http.StatusBadGateway,
		Message:    err.Error(),
		Type:       TypeUpstreamFailure,
		Model:      model,
		Retryable:  true,
	}
}

// NewCacheUnavailableError creates a cache unavailability error (503).
// It is logged internally and never surfaced to callers.
func NewCacheUnavailableError(message string) *InferenceError {
	return &InferenceError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    message,
		Type:       TypeCacheUnavailable,
		Retryable:  true,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(model, message string) *InferenceError {
	return &InferenceError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Model:      model,
		Retryable:  false,
	}
}

// NewShutdownError creates an error used to reject requests still pending
// when the coordinator closes.
func NewShutdownError() *InferenceError {
	return &InferenceError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    "optimizer is shutting down",
		Type:       TypeShutdown,
		Retryable:  true,
	}
}

// IsRateLimit reports whether err is a rate limit rejection.
func IsRateLimit(err error) bool {
	return isType(err, TypeRateLimit)
}

// IsUpstreamFailure reports whether err is a propagated upstream failure.
func IsUpstreamFailure(err error) bool {
	return isType(err, TypeUpstreamFailure)
}

// IsCacheUnavailable reports whether err is a cache availability error.
func IsCacheUnavailable(err error) bool {
	return isType(err, TypeCacheUnavailable)
}

// IsShutdown reports whether err was caused by the optimizer closing.
func IsShutdown(err error) bool {
	return isType(err, TypeShutdown)
}

func isType(err error, t string) bool {
	var ie *InferenceError
	return errors.As(err, &ie) && ie.Type == t
}
