package types

import "time"

// Result is the value returned to every caller, whether it was served
// from cache, from a coalesced in-flight call, or from a fresh upstream
// call. Exactly one of Chat or Embedding is non-nil, matching Kind.
type Result struct {
	Kind      RequestKind        `json:"kind"`
	Chat      *ChatResponse      `json:"chat,omitempty"`
	Embedding *EmbeddingResponse `json:"embedding,omitempty"`

	// Tokens is the total token count reported (or estimated) upstream.
	Tokens int `json:"tokens"`

	// Cost is the estimated monetary cost of the call in USD.
	Cost float64 `json:"cost"`

	// ServedFromCache is true when the result came from the response cache.
	ServedFromCache bool `json:"served_from_cache"`

	// Elapsed is the wall time observed by this caller.
	Elapsed time.Duration `json:"elapsed"`
}

// Model returns the model that produced the result.
func (r *Result) Model() string {
	switch r.Kind {
	case KindChat:
		if r.Chat != nil {
			return r.Chat.Model
		}
	case KindEmbedding:
		if r.Embedding != nil {
			return r.Embedding.Model
		}
	}
	return ""
}
