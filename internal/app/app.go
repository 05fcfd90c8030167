package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gradplan/internal/catalog"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/metrics"
	"github.com/vk/gradplan/internal/store"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	store      store.Store
	closeStore func() error
	source     catalog.Source
	metrics    *metrics.Collector
	engine     *engine.Engine
}

// NewApp builds an App from a validated config. Results are written to
// outW and logs to logW. The caller must Close the App.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:       outW,
		logger:     logger,
		config:     cfg,
		closeStore: func() error { return nil },
	}
	if cfg.RemoteURL != "" {
		logger.Debug("Remote mode, no local catalog is loaded.", "remote_url", cfg.RemoteURL)
		return a, nil
	}

	st, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = st
	a.closeStore = closeStore

	if cfg.CatalogPath != "" {
		src, err := engine.ResolveSource(ctx, cfg.CatalogPath)
		if err != nil {
			closeStore()
			return nil, fmt.Errorf("failed to resolve catalog: %w", err)
		}
		a.source = src
	}

	a.metrics = metrics.NewCollector()
	a.engine = engine.New(a.metrics)
	logger.Debug("Application assembled.", "catalog", cfg.CatalogPath, "database", cfg.DatabaseURL != "")
	return a, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close releases the store.
func (a *App) Close() error {
	return a.closeStore()
}

// load publishes the startup graph. A store that already holds courses
// wins over the catalog file, which is only imported into an empty store.
func (a *App) load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	existing, err := a.store.Records(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored catalog: %w", err)
	}
	if len(existing) > 0 {
		n, err := a.engine.Reload(ctx, catalog.Static(existing))
		if err != nil {
			return err
		}
		logger.Info("Catalog loaded from store.", "courses", n)
		return nil
	}

	if a.source == nil {
		logger.Warn("No catalog available, the curriculum graph is empty.")
		return nil
	}
	n, err := a.engine.Import(ctx, a.source, a.store, false)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	logger.Info("Catalog imported.", "path", a.config.CatalogPath, "courses", n)
	return nil
}
