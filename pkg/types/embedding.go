package types

import "fmt"

// EmbeddingRequest represents an embedding generation request.
type EmbeddingRequest struct {
	// Model is the ID of the embedding model to use.
	Model string `json:"model"`

	// Input is the text to embed.
	Input string `json:"input"`

	// User is a unique identifier representing the end-user.
	User string `json:"user,omitempty"`
}

// Validate checks whether the embedding request is valid.
func (r *EmbeddingRequest) Validate() error {
	if r.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	return nil
}

// Normalized returns a copy of the request with the default model filled in.
func (r *EmbeddingRequest) Normalized() EmbeddingRequest {
	out := *r
	if out.Model == "" {
		out.Model = DefaultEmbeddingModel
	}
	return out
}

// EquivalentTo reports whether two embedding requests are exact-match
// equivalent after normalization: same model and identical input text.
func (r *EmbeddingRequest) EquivalentTo(other *EmbeddingRequest) bool {
	a, b := r.Normalized(), other.Normalized()
	return a.Model == b.Model && a.Input == b.Input
}

// DefaultEmbeddingModel is used when an embedding request omits the model.
const DefaultEmbeddingModel = "text-embedding-004"

// EmbeddingResponse represents an embedding generation response from the
// upstream inference service.
type EmbeddingResponse struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`

	// ApproximateTokens is the upstream's token count for the input. It may
	// be an estimate when the provider does not report exact usage.
	ApproximateTokens int `json:"approximate_tokens"`
}
