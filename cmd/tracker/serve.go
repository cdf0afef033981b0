package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tracker/internal/api"
	"github.com/mtlprog/tracker/internal/config"
	"github.com/mtlprog/tracker/internal/goals"
	"github.com/mtlprog/tracker/internal/worker"
)

func serveCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the dashboard API, static files and metrics",
		Action: func(c *cli.Context) error {
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	d, err := newDashboard(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	go func() {
		if s, _ := d.controller.Bootstrap(ctx); s.Error != "" {
			slog.Error("initial load failed", "error", s.Error)
		}
	}()

	if cfg.GoalsWorkerInterval > 0 {
		if creds, err := goals.CredentialsFromEnv(); err != nil {
			slog.Warn("goals worker disabled", "error", err)
		} else {
			job := goals.NewJob(goals.NewClient(cfg.GoalsAPIURL), creds, cfg.GoalsOutput)
			go worker.NewGoalsWorker(job, cfg.GoalsWorkerInterval).Run(ctx)
		}
	}

	exporter := newExporter(ctx, cfg, cfg.ExportXLSXPath)
	if cfg.ExportWorkerInterval > 0 {
		if exporter == nil {
			slog.Warn("export worker disabled, no destination configured")
		} else {
			go worker.NewExportWorker(d.controller, cfg.ExportWorkerInterval, exporter).Run(ctx)
		}
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, fetch-data and export endpoints are unprotected")
	}

	deps := api.Deps{
		Dashboard:   d.controller,
		Banner:      goals.NewBannerLoader(cfg.GoalsBannerSources, cfg.Location()),
		Location:    cfg.Location(),
		StaticDir:   cfg.StaticDir,
		AdminAPIKey: cfg.AdminAPIKey,
	}
	if exporter != nil {
		deps.Exporter = exporter
	}
	srv := api.NewServer(cfg.HTTPPort, deps)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
