package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ragscore/internal/agreement"
	"github.com/ahrav/go-ragscore/internal/human"
	"github.com/ahrav/go-ragscore/internal/observability"
)

type humanOptions struct {
	input         string
	questions     []string
	strategy      string
	excludeRaters []string
	output        string
}

type agreementOptions struct {
	input           string
	questions       []string
	ordinal         []string
	excludeRaters   []string
	includeDontKnow bool
	pairs           bool
	output          string
}

// agreementOutput is the JSON document written by the agreement command.
type agreementOutput struct {
	Reports []agreement.Report               `json:"reports"`
	Pairs   map[string][]agreement.PairCount `json:"pairs,omitempty"`
}

func runHumanScores(cmd *cobra.Command, opts humanOptions) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	strategy, err := human.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}
	rows, err := readAnnotations(ctx, e.store, opts.input)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	agg := human.NewAggregator(e.logger, metrics)
	records, stats, err := agg.Scores(human.FilterRaters(rows, opts.excludeRaters), opts.questions, strategy)
	if err != nil {
		return err
	}
	if err := writeRecords(ctx, e.store, opts.output, records); err != nil {
		return err
	}
	for _, st := range stats {
		e.logger.Info("question aggregated",
			"question", st.Question,
			"kept", st.Kept,
			"dropped", st.Dropped())
	}
	e.logger.Info("human scores written", "records", len(records), "output", opts.output)
	return nil
}

func runAgreement(cmd *cobra.Command, opts agreementOptions) error {
	ctx := cmd.Context()
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	rows, err := readAnnotations(ctx, e.store, opts.input)
	if err != nil {
		return err
	}

	tableOpts := agreement.TableOptions{
		ExcludeRaters:   opts.excludeRaters,
		IncludeDontKnow: opts.includeDontKnow,
		Ordinal:         opts.ordinal,
	}
	// Mapped label values span [0, 1].
	engine := agreement.NewEngine(agreement.WithScale(1), agreement.WithLogger(e.logger))
	reports, err := engine.Table(rows, opts.questions, tableOpts)
	if err != nil {
		return err
	}

	out := agreementOutput{Reports: reports}
	if opts.pairs {
		filtered := tableOpts.Filter(rows)
		out.Pairs = make(map[string][]agreement.PairCount, len(opts.questions))
		for _, q := range opts.questions {
			out.Pairs[q] = agreement.RaterPairs(tableOpts.Triples(filtered, q))
		}
	}

	if err := writeJSON(ctx, e.store, opts.output, out); err != nil {
		return err
	}
	e.logger.Info("agreement written", "questions", len(reports), "output", opts.output)
	return nil
}
