package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ragscore/internal/config"
	"github.com/ahrav/go-ragscore/internal/domain"
	"github.com/ahrav/go-ragscore/internal/storage"
)

// env bundles what every subcommand needs after flag parsing.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Store
}

// setup loads the configuration named by --config and installs a logger at
// the configured level.
func setup(cmd *cobra.Command) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return &env{cfg: cfg, logger: logger, store: storage.New(cfg.Storage)}, nil
}

func readGenerations(ctx context.Context, store *storage.Store, ref string, start, limit int) ([]domain.Generation, error) {
	r, err := store.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		gens  []domain.Generation
		index int
	)
	err = storage.ReadJSONL(r, func(line domain.GenerationLine) error {
		defer func() { index++ }()
		if index < start || (limit >= 0 && len(gens) >= limit) {
			return nil
		}
		if err := line.Generation.Validate(); err != nil {
			return err
		}
		gens = append(gens, line.Generation)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read generations from %s: %w", ref, err)
	}
	return gens, nil
}

func readScores(ctx context.Context, store *storage.Store, ref string) ([]domain.ScoreRecord, error) {
	r, err := store.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var records []domain.ScoreRecord
	err = storage.ReadJSONL(r, func(rec domain.ScoreRecord) error {
		if err := rec.Validate(); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read scores from %s: %w", ref, err)
	}
	return records, nil
}

func readAnnotations(ctx context.Context, store *storage.Store, ref string) ([]domain.RawAnnotation, error) {
	r, err := store.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rows []domain.RawAnnotation
	err = storage.ReadJSONL(r, func(row domain.RawAnnotation) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read annotations from %s: %w", ref, err)
	}
	return rows, nil
}

func writeRecords(ctx context.Context, store *storage.Store, ref string, records []domain.ScoreRecord) error {
	w, err := store.Create(ctx, ref)
	if err != nil {
		return err
	}
	if err := storage.WriteJSONL(w, records); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return w.Close()
}

func writeJSON(ctx context.Context, store *storage.Store, ref string, v any) error {
	w, err := store.Create(ctx, ref)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return w.Close()
}
