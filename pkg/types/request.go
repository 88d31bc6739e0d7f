// Package types defines core data structures for optimized inference
// requests and responses. The request types are deliberately small: only
// the fields that participate in cache-key derivation and coalescing
// equivalence are modeled.
package types

import "fmt"

// Default values applied during normalization. Requests that omit these
// fields are treated as if they had set them explicitly, so omitted-vs-
// explicit-default requests derive the same cache key and coalesce.
const (
	DefaultModel       = "gemini-1.5-flash"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`
}

// Validate checks whether the request is well-formed.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for i, m := range r.Messages {
		if m.Role == "" {
			return fmt.Errorf("message %d: role cannot be empty", i)
		}
	}
	return nil
}

// Normalized returns a copy of the request with default model, temperature
// and max tokens filled in. The receiver is not mutated.
func (r *ChatRequest) Normalized() ChatRequest {
	out := *r
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.Temperature == nil {
		temp := DefaultTemperature
		out.Temperature = &temp
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = DefaultMaxTokens
	}
	return out
}

// EquivalentTo reports whether two chat requests are exact-match equivalent
// after normalization: same model, temperature, max tokens, and identical
// message sequences (role and content, in order and count).
func (r *ChatRequest) EquivalentTo(other *ChatRequest) bool {
	a, b := r.Normalized(), other.Normalized()
	if a.Model != b.Model || *a.Temperature != *b.Temperature || a.MaxTokens != b.MaxTokens {
		return false
	}
	if len(a.Messages) != len(b.Messages) {
		return false
	}
	for i := range a.Messages {
		if a.Messages[i].Role != b.Messages[i].Role || a.Messages[i].Content != b.Messages[i].Content {
			return false
		}
	}
	return true
}
