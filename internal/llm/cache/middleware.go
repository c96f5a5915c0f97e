// Package cache provides Redis-based caching middleware for judge completions.
// Identical requests (same provider, model, prompts and sampling settings)
// are served from Redis so re-scoring a dataset does not pay for the same
// judgement twice. Redis failures degrade to a cache bypass.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

const (
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
	keyPrefix         = "ragscore:llm:"
)

// Stats reports cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// Middleware caches successful completions in Redis.
type Middleware struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New creates the caching middleware. If client is nil and caching is enabled,
// a client is created from cfg. A failed connection check disables caching.
func New(ctx context.Context, cfg configuration.CacheConfig, client *redis.Client) *Middleware {
	logger := slog.Default().With("component", "llm_cache")

	if client == nil && cfg.Enabled {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: defaultPoolSize,
		})
	}
	if client != nil && cfg.Enabled {
		timeoutCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if err := client.Ping(timeoutCtx).Err(); err != nil {
			logger.Warn("Redis connection failed, cache disabled", "error", err)
			cfg.Enabled = false
		}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = configuration.DefaultCacheTTL
	}

	return &Middleware{
		client:  client,
		ttl:     ttl,
		enabled: cfg.Enabled && client != nil,
		logger:  logger,
	}
}

// Enabled reports whether requests are served from Redis.
func (c *Middleware) Enabled() bool { return c.enabled }

// Stats returns a snapshot of the cache counters.
func (c *Middleware) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errors.Load()}
}

// Wrap implements transport.Middleware.
func (c *Middleware) Wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if !c.enabled {
			return next.Handle(ctx, req)
		}

		key := Key(req)
		cached, err := c.get(ctx, key)
		switch {
		case err == nil:
			c.hits.Add(1)
			c.logger.Debug("cache hit", "key", key, "provider", req.Provider, "model", req.Model)
			return cached, nil
		case errors.Is(err, redis.Nil):
			c.misses.Add(1)
		default:
			c.errors.Add(1)
			c.logger.Warn("cache get error", "error", err, "key", key)
		}

		resp, err := next.Handle(ctx, req)
		if err != nil {
			return nil, err
		}

		if setErr := c.set(ctx, key, resp); setErr != nil {
			c.errors.Add(1)
			c.logger.Warn("cache set error", "error", setErr, "key", key)
		}
		return resp, nil
	})
}

// Key derives the cache key for a request from every field that affects the completion.
func Key(req *transport.Request) string {
	seed := "none"
	if req.Seed != nil {
		seed = fmt.Sprint(*req.Seed)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%d\x00%g\x00%s",
		req.Provider, req.Model, req.SystemPrompt, req.Prompt, req.MaxTokens, req.Temperature, seed)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Middleware) get(ctx context.Context, key string) (*transport.Response, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var resp transport.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode cached response: %w", err)
	}
	resp.Cached = true
	return &resp, nil
}

func (c *Middleware) set(ctx context.Context, key string, resp *transport.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
