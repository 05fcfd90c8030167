package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/gradplan/internal/api"
	"github.com/vk/gradplan/internal/ctxlog"
	"github.com/vk/gradplan/internal/engine"
	"github.com/vk/gradplan/internal/realtime"
	"github.com/vk/gradplan/internal/snapshot"
)

// Run executes the configured modes in order: export, one-shot plan and
// serve. Remote mode runs alone. Serving blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.RemoteURL != "" {
		return a.runRemote(ctx)
	}

	if err := a.load(ctx); err != nil {
		return err
	}

	if a.config.ExportSnapshot != "" {
		records, err := a.store.Records(ctx)
		if err != nil {
			return fmt.Errorf("failed to read catalog for export: %w", err)
		}
		if err := snapshot.WriteFile(ctx, a.config.ExportSnapshot, records); err != nil {
			return err
		}
	}

	if a.config.Program != "" {
		resp, err := a.engine.Plan(ctx, a.planRequest())
		if err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}
		if err := a.writeResult(resp); err != nil {
			return err
		}
	}

	if a.config.Addr != "" {
		return a.serve(ctx)
	}
	return nil
}

func (a *App) planRequest() engine.PlanRequest {
	return engine.PlanRequest{
		History:    a.config.Completed,
		MaxCredits: a.config.MaxCredits,
		Program:    a.config.Program,
	}
}

func (a *App) runRemote(ctx context.Context) error {
	a.logger.Info("Requesting plan from remote server.", "url", a.config.RemoteURL, "program", a.config.Program)
	resp, err := realtime.RequestPlan(ctx, a.config.RemoteURL, a.planRequest(), a.config.RemoteTimeout)
	if err != nil {
		return fmt.Errorf("remote planning failed: %w", err)
	}
	return a.writeResult(resp)
}

func (a *App) writeResult(resp engine.PlanResponse) error {
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// serve runs the HTTP API with the realtime endpoint mounted next to it.
func (a *App) serve(ctx context.Context) error {
	rt := realtime.NewServer(ctx, a.engine)
	defer rt.Close()

	srv := api.New(api.Options{
		Engine:  a.engine,
		Store:   a.store,
		Source:  a.source,
		Metrics: a.metrics,
		Logger:  a.logger,
	})
	srv.Mount(realtime.DefaultPath, rt.Handler())

	return api.Serve(ctx, a.config.Addr, srv.Handler())
}
