package types

import "errors"

var errUnknownKind = errors.New("unknown request kind")

// RequestKind tags the variant held by a Request.
type RequestKind string

const (
	KindChat      RequestKind = "chat"
	KindEmbedding RequestKind = "embedding"
)

// Request is a tagged union over the two request shapes that share the
// batch coordinator. Exactly one of Chat or Embedding is non-nil,
// matching Kind.
type Request struct {
	Kind      RequestKind
	Chat      *ChatRequest
	Embedding *EmbeddingRequest
}

// NewChatRequest wraps a chat request in the union.
func NewChatRequest(req *ChatRequest) Request {
	return Request{Kind: KindChat, Chat: req}
}

// NewEmbeddingRequest wraps an embedding request in the union.
func NewEmbeddingRequest(req *EmbeddingRequest) Request {
	return Request{Kind: KindEmbedding, Embedding: req}
}

// Model returns the normalized model of the underlying request.
func (r Request) Model() string {
	switch r.Kind {
	case KindChat:
		return r.Chat.Normalized().Model
	case KindEmbedding:
		return r.Embedding.Normalized().Model
	}
	return ""
}

// Validate dispatches to the underlying request's validation.
func (r Request) Validate() error {
	switch r.Kind {
	case KindChat:
		return r.Chat.Validate()
	case KindEmbedding:
		return r.Embedding.Validate()
	}
	return errUnknownKind
}

// EquivalentTo reports whether two requests belong to the same coalescing
// group. Requests of different kinds are never equivalent.
func (r Request) EquivalentTo(other Request) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case KindChat:
		return r.Chat.EquivalentTo(other.Chat)
	case KindEmbedding:
		return r.Embedding.EquivalentTo(other.Embedding)
	}
	return false
}
