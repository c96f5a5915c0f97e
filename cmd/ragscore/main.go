// Package main provides the ragscore CLI.
//
// # Basic Usage
//
// Score generations along one or more axes:
//
//	ragscore evaluate -i generations.jsonl -a faithfulness -a formatting -o scores.jsonl
//
// Correlate evaluators sharing an axis:
//
//	ragscore correlate -i scores.jsonl -o correlations.json
//
// Run a Temporal worker serving the evaluation workflow:
//
//	ragscore worker --config ragscore.yaml
//
// Paths may be local files or s3://bucket/key references.
//
// # Environment Variables
//
//   - OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY: judge model credentials
//   - AWS_*: standard AWS SDK credentials for s3:// paths
package main

import (
	"log/slog"
	"os"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
