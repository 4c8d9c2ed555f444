package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"electionledger/contexts/governance/election-registry/application/workers"
	"electionledger/internal/platform/config"
	"electionledger/internal/platform/httpserver"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	runtime *Runtime
	// embedded runs the workers inside the API process. Memory-backed state
	// is invisible to a separate worker process.
	embedded *WorkerApp
	logger   *slog.Logger
}

type WorkerApp struct {
	runtime      *Runtime
	outboxRelay  workers.OutboxRelay
	settler      workers.RewardSettler
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	runtime, err := BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(runtime.Module, logger, normalizeAddr(cfg.HTTPPort), httpserver.Options{
		VoteRatePerSecond: cfg.VoteRatePerSecond,
		VoteRateBurst:     cfg.VoteRateBurst,
	})
	app := &APIApp{
		server:  server,
		runtime: runtime,
		logger:  logger,
	}
	if cfg.StoreBackend == config.StoreMemory {
		app.embedded = newWorkerApp(runtime, cfg, logger)
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	runtime, err := BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return newWorkerApp(runtime, cfg, logger), nil
}

func newWorkerApp(runtime *Runtime, cfg config.Config, logger *slog.Logger) *WorkerApp {
	pollInterval := cfg.WorkerPollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &WorkerApp{
		runtime:      runtime,
		outboxRelay:  runtime.Module.OutboxRelay,
		settler:      runtime.Module.RewardSettler,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store_backend", a.runtime.Backend,
		"embedded_workers", a.embedded != nil,
	)

	if a.embedded != nil {
		go func() {
			if err := a.embedded.Run(ctx); err != nil {
				a.logger.Error("embedded worker stopped",
					"event", "bootstrap_embedded_worker_failed",
					"module", "internal/app/bootstrap",
					"layer", "platform",
					"error", err.Error(),
				)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *APIApp) Close() error {
	return a.runtime.Close()
}

// Run polls the outbox relay and the reward settler until ctx ends. A failed
// cycle is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		w.runCycle(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) runCycle(ctx context.Context) {
	if _, err := w.outboxRelay.RunOnce(ctx); err != nil {
		w.logger.Warn("outbox relay cycle failed",
			"event", "bootstrap_outbox_cycle_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
	}
	if _, err := w.settler.RunOnce(ctx); err != nil {
		w.logger.Warn("reward settlement cycle failed",
			"event", "bootstrap_settlement_cycle_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) Close() error {
	return w.runtime.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
