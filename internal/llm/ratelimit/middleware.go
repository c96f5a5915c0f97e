// Package ratelimit throttles judge requests with per provider/model token
// buckets. Requests block until a token is available or their context ends;
// a rate limit never turns into a failed evaluation on its own.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
)

// slowWaitThreshold is the wait after which a throttled request is logged.
const slowWaitThreshold = time.Second

// Limiter holds one token bucket per provider/model pair.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	enabled  bool
	logger   *slog.Logger
}

// New creates a limiter from cfg. Non-positive rates fall back to defaults.
func New(cfg configuration.RateLimitConfig) *Limiter {
	tps := cfg.TokensPerSecond
	if tps <= 0 {
		tps = configuration.DefaultTokensPerSecond
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = configuration.DefaultBurstSize
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(tps),
		burst:    burst,
		enabled:  cfg.Enabled,
		logger:   slog.Default().With("component", "llm_ratelimit"),
	}
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Wait blocks until the bucket for provider/model grants a token.
func (l *Limiter) Wait(ctx context.Context, provider, model string) error {
	if !l.enabled {
		return nil
	}
	key := provider + ":" + model
	start := time.Now()
	if err := l.limiterFor(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", key, err)
	}
	if waited := time.Since(start); waited > slowWaitThreshold {
		l.logger.Info("request throttled", "key", key, "waited", waited)
	}
	return nil
}

// Wrap implements transport.Middleware.
func (l *Limiter) Wrap(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if err := l.Wait(ctx, req.Provider, req.Model); err != nil {
			return nil, err
		}
		return next.Handle(ctx, req)
	})
}
