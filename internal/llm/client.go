// Package llm provides the judge model client used by G-Eval and Lynx
// evaluators. A single call sends one prompt and returns the completion text;
// the client never retries, so a failed call surfaces to the evaluator.
//
// Pipeline (outermost first): logging -> cache -> rate limit -> HTTP.
// Cache hits skip the rate limiter.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-ragscore/internal/llm/cache"
	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/llm/providers"
	"github.com/ahrav/go-ragscore/internal/llm/ratelimit"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
	"github.com/ahrav/go-ragscore/internal/observability"
)

// Completer turns a prompt into judge output text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	handler transport.Handler
}

// WithLogger sets the logger used by the logging middleware.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics records request metrics into m.
func WithMetrics(m *observability.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithHandler replaces the core HTTP handler. Middleware is still applied.
func WithHandler(h transport.Handler) Option { return func(o *options) { o.handler = h } }

// Client is the Completer backed by the configured provider.
type Client struct {
	cfg     *configuration.Config
	handler transport.Handler
	cache   *cache.Middleware
}

// NewClient builds the middleware pipeline from cfg.
func NewClient(ctx context.Context, cfg *configuration.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	core := o.handler
	if core == nil {
		router, err := providers.NewRouter(cfg.Providers)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize router: %w", err)
		}
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
		}
		core = transport.NewHTTPHandler(httpClient, router)
	}

	cacheMW := cache.New(ctx, cfg.Cache, nil)
	handler := transport.Chain(core,
		NewLoggingMiddleware(cfg.Observability, o.logger, o.metrics),
		cacheMW.Wrap,
		ratelimit.New(cfg.RateLimit).Wrap,
	)

	return &Client{cfg: cfg, handler: handler, cache: cacheMW}, nil
}

// Complete sends prompt to the default provider/model.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := &transport.Request{
		Provider:    c.cfg.Provider,
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	if p, ok := c.cfg.Providers[c.cfg.Provider]; ok && p.Timeout > 0 {
		req.Timeout = p.Timeout
	}
	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return "", fmt.Errorf("judge completion (%s/%s): %w", req.Provider, req.Model, err)
	}
	return resp.Content, nil
}

// CacheStats reports response cache counters.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }
