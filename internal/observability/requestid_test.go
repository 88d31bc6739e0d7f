package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDPropagation(t *testing.T) {
	t.Run("round trip through context", func(t *testing.T) {
		ctx := ContextWithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	})

	t.Run("empty context yields no id", func(t *testing.T) {
		assert.Empty(t, RequestIDFromContext(context.Background()))
	})

	t.Run("get or create reuses existing ids", func(t *testing.T) {
		ctx := ContextWithRequestID(context.Background(), "req-123")
		_, id := GetOrCreateRequestID(ctx)
		assert.Equal(t, "req-123", id)
	})

	t.Run("get or create mints fresh ids", func(t *testing.T) {
		ctx, id := GetOrCreateRequestID(context.Background())
		assert.NotEmpty(t, id)
		assert.Equal(t, id, RequestIDFromContext(ctx))
	})

	t.Run("generated ids are unique", func(t *testing.T) {
		assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
	})
}

func TestLoggerWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Output: &buf, JSONFormat: true})

	ctx := ContextWithRequestID(context.Background(), "req-456")
	logger.WithRequestID(ctx).Info("hello")

	assert.True(t, strings.Contains(buf.String(), "req-456"))
}

func TestNewFromSlogNilDefaults(t *testing.T) {
	logger := NewFromSlog(nil)
	assert.NotNil(t, logger.Slog())
	assert.Same(t, slog.Default(), logger.Slog())
}
