package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPAdapterConfig configures an HTTP-backed adapter.
type HTTPAdapterConfig struct {
	// Endpoint receives tool requests as JSON POST bodies.
	Endpoint string

	// Timeout bounds one round trip (default 30s).
	Timeout time.Duration

	// Headers are attached to every request (auth tokens etc.).
	Headers map[string]string
}

// HTTPAdapter bridges a capability to a remote JSON endpoint. The endpoint
// receives {"capability", "query", "context"} and answers with
// {"content", "confidence", "metadata"}.
type HTTPAdapter struct {
	config     HTTPAdapterConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type httpToolResponse struct {
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewHTTPAdapter creates an adapter backed by a remote tool endpoint.
func NewHTTPAdapter(config HTTPAdapterConfig, logger *zap.Logger) *HTTPAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "http_adapter")),
	}
}

// Query posts the request to the endpoint and decodes the tool response.
// Transport and protocol failures come back as TOOL_ERROR.
func (a *HTTPAdapter) Query(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, NewToolError("encode tool request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, NewToolError("build tool request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, NewToolError("tool endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, NewToolError(fmt.Sprintf("tool endpoint returned HTTP %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, NewToolError("read tool response", err)
	}

	var out httpToolResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, NewToolError("parse tool response", err)
	}

	a.logger.Debug("tool endpoint answered",
		zap.String("capability", string(req.Capability)),
		zap.Float64("confidence", out.Confidence))

	return Result{
		Content:    out.Content,
		Confidence: out.Confidence,
		Metadata:   out.Metadata,
	}, nil
}
