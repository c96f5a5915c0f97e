package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-ragscore/internal/config"
	"github.com/ahrav/go-ragscore/internal/evaluator"
	"github.com/ahrav/go-ragscore/internal/llm"
	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/observability"
	"github.com/ahrav/go-ragscore/internal/scoring"
	"github.com/ahrav/go-ragscore/pkg/activity"
	"github.com/ahrav/go-ragscore/pkg/events"
)

// InitializeLLMClient creates the judge model client. Returns the client for
// dependency injection rather than setting global state.
func InitializeLLMClient(
	ctx context.Context,
	cfg *configuration.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*llm.Client, error) {
	client, err := llm.NewClient(ctx, cfg, llm.WithLogger(logger), llm.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return client, nil
}

// InitializeRegistry builds the evaluator registry from configuration.
//
// The judge model configuration is validated here. When it is unusable, for
// example because the provider API key is not set, no client is built and the
// validation error is carried in the registry dependencies: model-backed
// evaluators then fail at lookup while rule-based evaluators keep working.
// Other missing dependencies likewise fail when requested, not here.
func InitializeRegistry(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*evaluator.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := cfg.PolicyText()
	if err != nil {
		return nil, err
	}
	deps := evaluator.Dependencies{
		ExternalURL: cfg.Evaluators.ExternalURL,
		PolicyText:  policy,
		Logger:      logger,
	}

	if err := cfg.LLM.Validate(); err != nil {
		logger.Warn("judge model unavailable, model-backed evaluators disabled", "error", err)
		deps.ModelErr = err
	} else {
		model, err := InitializeLLMClient(ctx, cfg.LLM, logger, metrics)
		if err != nil {
			return nil, err
		}
		deps.Model = model
	}
	return evaluator.NewRegistry(deps), nil
}

// NewTemporalClient dials the configured Temporal frontend.
func NewTemporalClient(cfg config.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// Run starts a worker on taskQueue and blocks until ctx is cancelled.
// Events are discarded until a durable sink is configured.
func Run(
	ctx context.Context,
	c client.Client,
	taskQueue string,
	registry *evaluator.Registry,
	metrics *observability.Metrics,
) error {
	base := activity.NewBaseActivities(events.NewNoOpEventSink())
	acts := scoring.NewActivities(base, registry, metrics)

	w := sdkworker.New(c, taskQueue, sdkworker.Options{})
	RegisterAll(w, acts)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	<-ctx.Done()
	w.Stop()
	return nil
}
