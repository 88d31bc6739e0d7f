// Package openailike implements upstream.InferenceClient against any
// OpenAI-compatible HTTP API. Most hosted inference providers follow
// OpenAI's wire format with minor variations, so a single configurable
// client covers the common case.
package openailike

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nabeelKh14/prismai-platform-sub008/pkg/errors"
	"github.com/nabeelKh14/prismai-platform-sub008/pkg/types"
)

// Info contains provider-specific configuration.
type Info struct {
	// Name is the provider identifier (e.g., "gemini", "groq").
	Name string

	// DefaultBaseURL is the default API endpoint.
	DefaultBaseURL string

	// APIKeyHeader is the header name for API key authentication.
	// Default: "Authorization" with "Bearer " prefix.
	APIKeyHeader string

	// APIKeyPrefix is the prefix for the API key value.
	APIKeyPrefix string

	// ChatEndpoint is the path for chat completions.
	// Default: "/chat/completions".
	ChatEndpoint string

	// EmbeddingEndpoint is the path for embeddings.
	// Default: "/embeddings".
	EmbeddingEndpoint string

	// ExtraHeaders are additional headers to include in requests.
	ExtraHeaders map[string]string
}

// Client is a generic OpenAI-compatible inference client.
type Client struct {
	info    Info
	apiKey  string
	baseURL string
	headers map[string]string
	httpc   *http.Client
}

// New creates a new OpenAI-like client.
func New(info Info, opts ...Option) *Client {
	c := &Client{
		info:    info,
		baseURL: info.DefaultBaseURL,
		headers: make(map[string]string),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return c.info.Name
}

// CreateChatCompletion sends a chat completion request upstream.
func (c *Client) CreateChatCompletion(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	endpoint := c.info.ChatEndpoint
	if endpoint == "" {
		endpoint = "/chat/completions"
	}

	body, err := c.roundTrip(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	var resp types.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}
	return &resp, nil
}

// embeddingWire is the OpenAI-compatible embeddings response shape.
type embeddingWire struct {
	Object string `json:"object"`
	Data   []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// CreateEmbedding sends an embedding request upstream.
func (c *Client) CreateEmbedding(ctx context.Context, req *types.EmbeddingRequest) (*types.EmbeddingResponse, error) {
	endpoint := c.info.EmbeddingEndpoint
	if endpoint == "" {
		endpoint = "/embeddings"
	}

	body, err := c.roundTrip(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}

	var wire embeddingWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal embedding response: %w", err)
	}

	resp := &types.EmbeddingResponse{
		Object:            wire.Object,
		Model:             wire.Model,
		ApproximateTokens: wire.Usage.TotalTokens,
	}
	if len(wire.Data) > 0 {
		resp.Embedding = wire.Data[0].Embedding
	}
	return resp, nil
}

// roundTrip marshals payload, posts it to endpoint and returns the raw
// response body, mapping non-2xx statuses to standardized errors.
func (c *Client) roundTrip(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	apiKeyHeader := c.info.APIKeyHeader
	if apiKeyHeader == "" {
		apiKeyHeader = "Authorization"
	}
	apiKeyPrefix := c.info.APIKeyPrefix
	if apiKeyPrefix == "" && apiKeyHeader == "Authorization" {
		apiKeyPrefix = "Bearer "
	}
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, apiKeyPrefix+c.apiKey)
	}

	for k, v := range c.info.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, c.mapError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// mapError converts a provider error response to a standardized error.
func (c *Client) mapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &errors.InferenceError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s: %s", c.info.Name, message),
		Type:       errors.TypeUpstreamFailure,
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
	}
}
