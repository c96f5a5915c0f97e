package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ragscore",
		Short:        "Score RAG generations and measure human agreement",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file")

	rootCmd.AddCommand(
		buildEvaluateCmd(),
		buildCorrelateCmd(),
		buildEnsembleCmd(),
		buildHumanScoresCmd(),
		buildAgreementCmd(),
		buildWorkerCmd(),
	)
	return rootCmd
}

func buildEvaluateCmd() *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score generations along the given axes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Generations file, one {\"generation\": ...} per line")
	cmd.Flags().StringSliceVarP(&opts.axes, "axis", "a", nil, "Axis or evaluator name to score (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "results.jsonl", "Output file for score records")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Orchestration mode: sequential or fanout (defaults to config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Fan-out concurrency (defaults to config)")
	cmd.Flags().IntVarP(&opts.start, "start", "s", 0, "Index of the first generation to score")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", -1, "Maximum number of generations to score (-1 for all)")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	cobra.CheckErr(cmd.MarkFlagRequired("axis"))
	return cmd
}

func buildCorrelateCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate evaluators that score the same axis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrelate(cmd, input, output)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Score records file")
	cmd.Flags().StringVarP(&output, "output", "o", "correlations.json", "Output JSON file")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	return cmd
}

func buildEnsembleCmd() *cobra.Command {
	var opts ensembleOptions
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "Combine several evaluators on one axis into a derived score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsemble(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Score records file")
	cmd.Flags().StringVarP(&opts.axis, "axis", "a", "", "Axis whose records are combined")
	cmd.Flags().StringSliceVarP(&opts.names, "evaluator", "e", nil, "Record name to include (repeat, at least two)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "average", "all, any, average or weighted_average")
	cmd.Flags().StringToStringVarP(&opts.weights, "weight", "w", nil, "Weight per record name, name=weight")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "ensemble.jsonl", "Output file for derived records")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	cobra.CheckErr(cmd.MarkFlagRequired("axis"))
	return cmd
}

func buildHumanScoresCmd() *cobra.Command {
	var opts humanOptions
	cmd := &cobra.Command{
		Use:   "human-scores",
		Short: "Aggregate rater annotations into score records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHumanScores(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Annotations file, one {user, q_id, question, value} per line")
	cmd.Flags().StringSliceVarP(&opts.questions, "question", "q", nil, "Question to aggregate (repeatable)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "g", "majority", "majority, complete or average")
	cmd.Flags().StringSliceVar(&opts.excludeRaters, "exclude-rater", nil, "Rater id to ignore (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "human_scores.jsonl", "Output file for score records")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	cobra.CheckErr(cmd.MarkFlagRequired("question"))
	return cmd
}

func buildAgreementCmd() *cobra.Command {
	var opts agreementOptions
	cmd := &cobra.Command{
		Use:   "agreement",
		Short: "Report inter-annotator agreement per question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgreement(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Annotations file, one {user, q_id, question, value} per line")
	cmd.Flags().StringSliceVarP(&opts.questions, "question", "q", nil, "Question to analyse (repeatable)")
	cmd.Flags().StringSliceVar(&opts.ordinal, "ordinal", nil, "Treat this question as ordinal (repeatable)")
	cmd.Flags().StringSliceVar(&opts.excludeRaters, "exclude-rater", nil, "Rater id to ignore (repeatable)")
	cmd.Flags().BoolVar(&opts.includeDontKnow, "include-dont-know", false, "Count DONT_KNOW and NOT_APPLICABLE as a category")
	cmd.Flags().BoolVar(&opts.pairs, "pairs", false, "Include per rater pair agreement counts")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "agreement.json", "Output JSON file")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	cobra.CheckErr(cmd.MarkFlagRequired("question"))
	return cmd
}

func buildWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker serving the evaluation workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd)
		},
	}
	return cmd
}
