package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ragscore/internal/analysis"
	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/ensemble"
)

type ensembleOptions struct {
	input    string
	axis     string
	names    []string
	strategy string
	weights  map[string]string
	output   string
}

func runCorrelate(cmd *cobra.Command, input, output string) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	records, err := readScores(ctx, e.store, input)
	if err != nil {
		return err
	}

	corr := analysis.Correlate(records)
	if err := writeJSON(ctx, e.store, output, corr); err != nil {
		return err
	}
	e.logger.Info("correlations written", "evaluators", len(corr), "output", output)
	return nil
}

func runEnsemble(cmd *cobra.Command, opts ensembleOptions) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	strategy, err := ensemble.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}
	weights, err := parseWeights(opts.weights)
	if err != nil {
		return err
	}

	records, err := readScores(ctx, e.store, opts.input)
	if err != nil {
		return err
	}
	derived, err := ensemble.Ensemble(domain.FilterByAxis(records, opts.axis), opts.names, strategy, weights)
	if err != nil {
		return err
	}
	if err := writeRecords(ctx, e.store, opts.output, derived); err != nil {
		return err
	}
	e.logger.Info("ensemble written",
		"name", ensemble.Name(strategy, opts.names),
		"records", len(derived),
		"output", opts.output)
	return nil
}

// parseWeights converts name=weight flag values. A nil result means no
// weights were given.
func parseWeights(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(raw))
	for name, s := range raw {
		w, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", name, err)
		}
		weights[name] = w
	}
	return weights, nil
}
