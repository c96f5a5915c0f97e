package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ragscore/internal/llm/errors"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

func roundTrip(t *testing.T, adapter transport.ProviderAdapter, srv *httptest.Server, req *transport.Request) (*transport.Response, error) {
	t.Helper()
	httpReq, err := adapter.Build(context.Background(), req)
	require.NoError(t, err)
	httpResp, err := srv.Client().Do(httpReq)
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()
	return adapter.Parse(httpResp)
}

func TestOpenAIAdapter(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("x-request-id", "req-1")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"4"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":1,"total_tokens":11}}`))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(configuration.ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	seed := 7
	resp, err := roundTrip(t, adapter, srv, &transport.Request{
		Model: "gpt-4o", SystemPrompt: "judge", Prompt: "rate", MaxTokens: 5, Seed: &seed,
	})
	require.NoError(t, err)

	assert.Equal(t, "4", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(11), resp.Usage.TotalTokens)
	assert.Equal(t, []string{"req-1"}, resp.ProviderRequestIDs)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.InDelta(t, 7.0, gotBody["seed"], 0)
	assert.Len(t, gotBody["messages"], 2)
}

func TestOpenAIAdapter_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(configuration.ProviderConfig{Endpoint: srv.URL})
	_, err := roundTrip(t, adapter, srv, &transport.Request{Model: "m", Prompt: "p"})

	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderOpenAI, pe.Provider)
	assert.Equal(t, "slow down", pe.Message)
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, pe.Type)
}

func TestAnthropicAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var body map[string]any
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		assert.Equal(t, "sys", body["system"])
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"SCORE\":"},{"type":"text","text":"\"PASS\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter(configuration.ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	resp, err := roundTrip(t, adapter, srv, &transport.Request{Model: "claude", SystemPrompt: "sys", Prompt: "p", MaxTokens: 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"SCORE":"PASS"}`, resp.Content)
	assert.Equal(t, int64(5), resp.Usage.TotalTokens)
}

func TestGoogleAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"5"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":1,"totalTokenCount":10}}`))
	}))
	defer srv.Close()

	adapter := NewGoogleAdapter(configuration.ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	resp, err := roundTrip(t, adapter, srv, &transport.Request{Model: "gemini-1.5-pro", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "5", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestGoogleAdapter_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	adapter := NewGoogleAdapter(configuration.ProviderConfig{Endpoint: srv.URL})
	_, err := roundTrip(t, adapter, srv, &transport.Request{Model: "m", Prompt: "p"})

	var pe *llmerrors.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "not json", pe.Message)
	assert.Equal(t, llmerrors.ErrorTypeProvider, pe.Type)
}

func TestNewRouter(t *testing.T) {
	r, err := NewRouter(map[string]configuration.ProviderConfig{
		ProviderOpenAI: {}, ProviderGoogle: {},
	})
	require.NoError(t, err)

	a, err := r.Pick(ProviderGoogle, "any")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, a.Name())

	_, err = r.Pick(ProviderAnthropic, "any")
	require.ErrorIs(t, err, llmerrors.ErrUnknownProvider)

	_, err = NewRouter(map[string]configuration.ProviderConfig{"cohere": {}})
	require.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}
