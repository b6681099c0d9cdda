// Package app builds the shared application state used by both the REPL and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"RoutineBuilder/internal/advisor"
	"RoutineBuilder/internal/cache"
	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/config"
	"RoutineBuilder/internal/selection"
	"RoutineBuilder/internal/storage"
	"RoutineBuilder/internal/telemetry"
	"RoutineBuilder/internal/worker"
)

// App holds the wired components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *storage.Store
	Catalog   *catalog.Catalog
	Selection *selection.Selection
	Worker    *worker.Client
	Advisor   *advisor.Advisor

	closers []func()
}

// New initializes logging, telemetry, storage, the catalog and the advisor.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &App{Config: cfg, Logger: logger}
	a.closers = append(a.closers, func() { _ = closeLog() })

	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	providers, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	})

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})

	a.Catalog = catalog.New(cfg.ProductsPath, logger)
	if err := a.Catalog.Reload(); err != nil {
		// the REPL and the API still work with an empty catalog; /reload retries
		logger.Warn("starting with an empty catalog", "error", err)
	}

	a.Selection = selection.New(store, logger)
	if err := a.Selection.Load(ctx); err != nil {
		logger.Warn("failed to restore selection", "error", err)
	}

	opts := []worker.Option{
		worker.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		worker.WithLogger(logger),
		worker.WithTracer(providers.Tracer),
		worker.WithMeter(providers.Meter),
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, worker.WithCache(cache.New(cfg.CacheTTL)))
	}
	a.Worker = worker.New(cfg.WorkerURL, opts...)

	a.Advisor = advisor.New(advisor.Config{MaxTokens: cfg.MaxTokens, WorkerURL: cfg.WorkerURL},
		a.Catalog, a.Selection, a.Worker, store, logger)

	if cfg.SessionID != "" {
		if err := a.Advisor.Resume(ctx, cfg.SessionID); err != nil {
			logger.Warn("failed to load session, creating new one", "error", err)
		}
	}

	return a, nil
}

// Close saves the conversation and releases resources in reverse order.
func (a *App) Close() {
	if a.Advisor != nil {
		a.Advisor.Wait()
		if err := a.Advisor.Save(context.Background()); err != nil {
			a.Logger.Error("failed to save session on exit", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
