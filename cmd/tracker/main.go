package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tracker/internal/config"
	"github.com/mtlprog/tracker/internal/endpoint"
	"github.com/mtlprog/tracker/internal/fetchjob"
	"github.com/mtlprog/tracker/internal/github"
	"github.com/mtlprog/tracker/internal/loader"
	"github.com/mtlprog/tracker/internal/prefs"
	"github.com/mtlprog/tracker/internal/state"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	setupLogging(cfg)

	app := &cli.App{
		Name:  "tracker",
		Usage: "portfolio dashboard backend and tooling",
		Commands: []*cli.Command{
			serveCommand(cfg),
			showCommand(cfg),
			validateCommand(),
			goalsCommand(cfg),
			bannerCommand(cfg),
			chartCommand(cfg),
			exportCommand(cfg),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// dashboard is the wired state machine plus what its owner must release.
type dashboard struct {
	controller *state.Controller
	close      func()
}

func newDashboard(ctx context.Context, cfg config.Config) (*dashboard, error) {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	store, closeStore := prefs.Open(ctx, prefs.Options{
		Backend:       prefs.Backend(cfg.PrefsBackend),
		File:          cfg.PrefsFile,
		DatabaseURL:   cfg.DatabaseURL,
		Migrations:    migrations,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	p := prefs.New(store)

	gh := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubRetryMax, cfg.GitHubRetryBaseDelay)
	resolver := endpoint.NewResolver(endpoint.Config{
		Repository: cfg.SourceRepository,
		Branch:     cfg.SourceBranch,
		RawURL:     cfg.GitHubRawURL,
		BaseURL:    cfg.DataBaseURL,
		DataPath:   cfg.DataPath,
	}, gh, p)

	triggerBases := lo.Ternary(len(cfg.FetchTriggerURLs) > 0, cfg.FetchTriggerURLs, []string{cfg.DataBaseURL})
	controller := state.NewController(
		state.NewStore(state.Initial()),
		resolver,
		loader.New(nil, p, resolver),
		p,
		fetchjob.NewClient(nil, triggerBases),
	)
	return &dashboard{controller: controller, close: closeStore}, nil
}
