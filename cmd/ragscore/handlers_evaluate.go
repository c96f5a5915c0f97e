package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ragscore/internal/analysis"
	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/observability"
	"github.com/ahrav/go-ragscore/internal/scoring"
	"github.com/ahrav/go-ragscore/internal/worker"
)

type evaluateOptions struct {
	input   string
	axes    []string
	output  string
	mode    string
	workers int
	start   int
	limit   int
}

func runEvaluate(cmd *cobra.Command, opts evaluateOptions) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	mode := e.cfg.Orchestrator.Mode
	if opts.mode != "" {
		mode = opts.mode
	}
	parsed, err := scoring.ParseMode(mode)
	if err != nil {
		return err
	}
	workers := e.cfg.Orchestrator.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry, err := worker.InitializeRegistry(ctx, e.cfg, e.logger, metrics)
	if err != nil {
		return err
	}
	evaluators, err := registry.Resolve(opts.axes)
	if err != nil {
		return err
	}
	orch, err := scoring.NewOrchestrator(evaluators,
		scoring.WithMode(parsed),
		scoring.WithWorkers(workers),
		scoring.WithLogger(e.logger),
		scoring.WithMetrics(metrics))
	if err != nil {
		return err
	}

	gens, err := readGenerations(ctx, e.store, opts.input, opts.start, opts.limit)
	if err != nil {
		return err
	}
	e.logger.Info("scoring generations",
		"generations", len(gens),
		"evaluators", len(evaluators),
		"mode", parsed,
		"workers", workers)

	var (
		records []domain.ScoreRecord
		failed  int
	)
	err = orch.EvaluateBatch(ctx, gens, func(out scoring.Outcome) error {
		records = append(records, out.Records...)
		failed += len(out.Failures)
		return nil
	})
	if err != nil {
		return err
	}

	if err := writeRecords(ctx, e.store, opts.output, records); err != nil {
		return err
	}
	for _, s := range analysis.Summarize(records) {
		e.logger.Info("evaluator summary",
			"axis", s.Axis,
			"evaluator", s.Evaluator,
			"count", s.Count,
			"mean", s.Mean,
			"pass_rate", s.PassRate)
	}
	e.logger.Info("evaluation complete",
		"records", len(records),
		"failures", failed,
		"output", opts.output)
	return nil
}
