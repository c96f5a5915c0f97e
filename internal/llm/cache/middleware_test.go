package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

func countingHandler(calls *int) transport.Handler {
	return transport.HandlerFunc(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		*calls++
		return &transport.Response{Content: "echo:" + req.Prompt}, nil
	})
}

func TestMiddleware_HitAndMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mw := New(context.Background(), configuration.CacheConfig{Enabled: true, TTL: time.Hour}, client)
	require.True(t, mw.Enabled())

	calls := 0
	h := transport.Chain(countingHandler(&calls), mw.Wrap)
	req := &transport.Request{Provider: "google", Model: "gemini", Prompt: "rate this"}

	first, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, calls)

	other := *req
	other.Prompt = "something else"
	_, err = h.Handle(context.Background(), &other)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	stats := mw.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)

	ttl := mr.TTL(Key(req))
	assert.Equal(t, time.Hour, ttl)
}

func TestMiddleware_DisabledWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	mw := New(context.Background(), configuration.CacheConfig{Enabled: true, RedisAddr: addr}, nil)
	assert.False(t, mw.Enabled())

	calls := 0
	h := transport.Chain(countingHandler(&calls), mw.Wrap)
	for range 2 {
		_, err := h.Handle(context.Background(), &transport.Request{Prompt: "p"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestKey(t *testing.T) {
	a := &transport.Request{Provider: "openai", Model: "m", Prompt: "p", Temperature: 0}
	b := *a
	b.Temperature = 0.7
	assert.NotEqual(t, Key(a), Key(&b))

	seed := 1
	c := *a
	c.Seed = &seed
	assert.NotEqual(t, Key(a), Key(&c))
	assert.Equal(t, Key(a), Key(&transport.Request{Provider: "openai", Model: "m", Prompt: "p"}))
}
