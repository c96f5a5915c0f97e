package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-ragscore/internal/llm/errors"
	"github.com/ahrav/go-ragscore/internal/llm/transport"
	"github.com/ahrav/go-ragscore/internal/observability"
)

// Request status labels recorded in metrics.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusCached  = "cached"
)

// LoggingMiddleware logs every judge request and records its latency and
// token usage. Prompts are replaced by their length when redaction is on.
type LoggingMiddleware struct {
	logger        *slog.Logger
	metrics       *observability.Metrics
	redactPrompts bool
}

// NewLoggingMiddleware creates the observability middleware. A nil logger
// falls back to slog.Default; nil metrics disables recording.
func NewLoggingMiddleware(cfg configuration.ObservabilityConfig, logger *slog.Logger, metrics *observability.Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	lm := &LoggingMiddleware{
		logger:        logger.With("component", "llm"),
		metrics:       metrics,
		redactPrompts: cfg.RedactPrompts,
	}
	return lm.Middleware
}

// Middleware implements transport.Middleware.
func (m *LoggingMiddleware) Middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		requestID := uuid.New().String()
		m.logRequest(ctx, req, requestID)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		if err != nil {
			m.handleError(ctx, req, err, requestID, duration)
			return nil, err
		}
		m.handleSuccess(ctx, req, resp, requestID, duration)
		return resp, nil
	})
}

func (m *LoggingMiddleware) logRequest(ctx context.Context, req *transport.Request, requestID string) {
	fields := []any{
		"request_id", requestID,
		"provider", req.Provider,
		"model", req.Model,
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
	}
	if m.redactPrompts {
		fields = append(fields, "prompt_length", len(req.Prompt))
	} else {
		fields = append(fields, "prompt", req.Prompt)
	}
	m.logger.DebugContext(ctx, "LLM request started", fields...)
}

func (m *LoggingMiddleware) handleError(
	ctx context.Context,
	req *transport.Request,
	err error,
	requestID string,
	duration time.Duration,
) {
	errorType := llmerrors.ErrorTypeUnknown
	var provErr *llmerrors.ProviderError
	switch {
	case errors.As(err, &provErr):
		errorType = provErr.Type
	case errors.Is(err, context.DeadlineExceeded):
		errorType = llmerrors.ErrorTypeTimeout
	}

	m.metrics.RecordLLMRequest(req.Provider, req.Model, statusError, duration.Seconds(), 0, 0)
	m.logger.ErrorContext(ctx, "LLM request failed",
		"request_id", requestID,
		"provider", req.Provider,
		"model", req.Model,
		"duration_ms", duration.Milliseconds(),
		"error_type", string(errorType),
		"error", err.Error(),
	)
}

func (m *LoggingMiddleware) handleSuccess(
	ctx context.Context,
	req *transport.Request,
	resp *transport.Response,
	requestID string,
	duration time.Duration,
) {
	status := statusSuccess
	if resp.Cached {
		status = statusCached
	}
	m.metrics.RecordLLMRequest(req.Provider, req.Model, status, duration.Seconds(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	fields := []any{
		"request_id", requestID,
		"provider", req.Provider,
		"model", req.Model,
		"duration_ms", duration.Milliseconds(),
		"cached", resp.Cached,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	}
	if m.redactPrompts {
		fields = append(fields, "content_length", len(resp.Content))
	} else {
		fields = append(fields, "content", resp.Content)
	}
	m.logger.DebugContext(ctx, "LLM request completed", fields...)
}
