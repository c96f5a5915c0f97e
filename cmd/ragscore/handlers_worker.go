package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ragscore/internal/observability"
	"github.com/ahrav/go-ragscore/internal/worker"
)

func runWorker(cmd *cobra.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	if addr := e.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			e.logger.Info("metrics server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	registry, err := worker.InitializeRegistry(ctx, e.cfg, e.logger, metrics)
	if err != nil {
		return err
	}
	c, err := worker.NewTemporalClient(e.cfg.Temporal, e.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	e.logger.Info("worker starting",
		"host_port", e.cfg.Temporal.HostPort,
		"namespace", e.cfg.Temporal.Namespace,
		"task_queue", e.cfg.Temporal.TaskQueue)
	if err := worker.Run(ctx, c, e.cfg.Temporal.TaskQueue, registry, metrics); err != nil {
		return err
	}
	e.logger.Info("worker stopped")
	return nil
}
