package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/synthmind/types"
)

func TestHTTPAdapter_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "token-123", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, CapabilitySearch, req.Capability)

		json.NewEncoder(w).Encode(httpToolResponse{
			Content:    "three recent findings",
			Confidence: 0.9,
			Metadata:   map[string]any{"hits": float64(3)},
		})
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(HTTPAdapterConfig{
		Endpoint: server.URL,
		Headers:  map[string]string{"Authorization": "token-123"},
	}, zaptest.NewLogger(t))

	res, err := adapter.Query(context.Background(), Request{
		Capability: CapabilitySearch,
		Query:      "solar capacity 2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "three recent findings", res.Content)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, float64(3), res.Metadata["hits"])
}

func TestHTTPAdapter_QueryErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		adapter := NewHTTPAdapter(HTTPAdapterConfig{Endpoint: server.URL}, zaptest.NewLogger(t))
		_, err := adapter.Query(context.Background(), Request{Capability: CapabilityCompute, Query: "2+2"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrTool))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		adapter := NewHTTPAdapter(HTTPAdapterConfig{Endpoint: "http://127.0.0.1:1"}, zaptest.NewLogger(t))
		_, err := adapter.Query(context.Background(), Request{Capability: CapabilityCompute, Query: "2+2"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrTool))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		adapter := NewHTTPAdapter(HTTPAdapterConfig{Endpoint: server.URL}, zaptest.NewLogger(t))
		_, err := adapter.Query(context.Background(), Request{Capability: CapabilitySearch, Query: "q"})
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrTool))
	})
}

func TestHTTPAdapter_RegisteredThroughRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(httpToolResponse{Content: "42", Confidence: 1})
	}))
	defer server.Close()

	registry := NewRegistry(RegistryConfig{}, nil, zaptest.NewLogger(t))
	adapter := NewHTTPAdapter(HTTPAdapterConfig{Endpoint: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, registry.Register(CapabilityCompute, adapter))

	res, err := registry.Query(context.Background(), Request{Capability: CapabilityCompute, Query: "6*7"})
	require.NoError(t, err)
	assert.Equal(t, "42", res.Content)
}
