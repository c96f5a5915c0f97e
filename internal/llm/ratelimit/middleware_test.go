package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

func okHandler() transport.Handler {
	return transport.HandlerFunc(func(_ context.Context, _ *transport.Request) (*transport.Response, error) {
		return &transport.Response{Content: "ok"}, nil
	})
}

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := New(configuration.RateLimitConfig{Enabled: true, TokensPerSecond: 0.001, BurstSize: 2})
	h := transport.Chain(okHandler(), l.Wrap)
	req := &transport.Request{Provider: "google", Model: "gemini"}

	for range 2 {
		_, err := h.Handle(context.Background(), req)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Handle(ctx, req)
	require.Error(t, err, "third request must wait past the deadline")

	_, err = h.Handle(context.Background(), &transport.Request{Provider: "google", Model: "other"})
	require.NoError(t, err, "buckets are per provider/model")
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(configuration.RateLimitConfig{Enabled: false, TokensPerSecond: 0.001, BurstSize: 1})
	for range 5 {
		require.NoError(t, l.Wait(context.Background(), "p", "m"))
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(configuration.RateLimitConfig{Enabled: true})
	assert.InDelta(t, float64(configuration.DefaultTokensPerSecond), float64(l.limit), 0)
	assert.Equal(t, configuration.DefaultBurstSize, l.burst)
}
