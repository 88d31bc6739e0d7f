package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// Namespaces keep chat and embedding key spaces disjoint so requests of
// different shapes can never collide.
const (
	NamespaceChat      = "chat"
	NamespaceEmbedding = "embedding"
)

// KeyDeriver produces deterministic cache keys from normalized requests.
// Two requests with byte-identical normalized fields always derive the
// same key; the hash is collision-tolerant, not cryptographically strong.
type KeyDeriver struct {
	// Prefix is prepended to all generated keys.
	Prefix string
}

// NewKeyDeriver creates a new KeyDeriver with an optional prefix.
func NewKeyDeriver(prefix string) *KeyDeriver {
	return &KeyDeriver{Prefix: prefix}
}

// Derive creates a cache key for the request. Normalization fills in
// default model, temperature and max tokens before hashing so that
// omitted-vs-explicit-default requests still coalesce.
func (d *KeyDeriver) Derive(req types.Request) string {
	var sb strings.Builder
	var namespace string

	switch req.Kind {
	case types.KindChat:
		namespace = NamespaceChat
		r := req.Chat.Normalized()
		sb.WriteString(fmt.Sprintf("model:%s", r.Model))
		// Full precision: equivalence requires temperatures to match
		// exactly, so the canonical form must not quantize them.
		sb.WriteString("|temp:" + strconv.FormatFloat(*r.Temperature, 'g', -1, 64))
		sb.WriteString(fmt.Sprintf("|max_tokens:%d", r.MaxTokens))
		for _, m := range r.Messages {
			sb.WriteString(fmt.Sprintf("|msg:%s:%s", m.Role, m.Content))
		}
	case types.KindEmbedding:
		namespace = NamespaceEmbedding
		r := req.Embedding.Normalized()
		sb.WriteString(fmt.Sprintf("model:%s", r.Model))
		sb.WriteString(fmt.Sprintf("|input:%s", r.Input))
	}

	hash := sha256.Sum256([]byte(sb.String()))
	hashHex := hex.EncodeToString(hash[:])

	var key strings.Builder
	if d.Prefix != "" {
		key.WriteString(d.Prefix)
		key.WriteString(":")
	}
	key.WriteString(namespace)
	key.WriteString(":")
	key.WriteString(hashHex)

	return key.String()
}
