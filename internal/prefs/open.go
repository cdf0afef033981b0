package prefs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/mtlprog/tracker/internal/database"
)

// Backend names a Store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// Options selects and configures the preference backend.
type Options struct {
	Backend       Backend
	File          string
	DatabaseURL   string
	Migrations    fs.FS
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const redisKeyPrefix = "tracker:"

// Open creates the configured backend. When it cannot be reached the dashboard
// still works, so Open logs a warning and returns a MemoryStore instead of
// failing. The returned close function is never nil.
func Open(ctx context.Context, opts Options) (Store, func()) {
	store, closeFn, err := open(ctx, opts)
	if err != nil {
		slog.Warn("preference store unavailable, using in-memory fallback", "backend", opts.Backend, "error", err)
		return NewMemoryStore(), func() {}
	}
	slog.Info("preference store ready", "backend", opts.Backend)
	return store, closeFn
}

func open(ctx context.Context, opts Options) (Store, func(), error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), func() {}, nil

	case BackendFile, "":
		if opts.File == "" {
			return nil, nil, fmt.Errorf("%w: no preferences file configured", ErrUnavailable)
		}
		return NewFileStore(opts.File), func() {}, nil

	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrUnavailable)
		}
		pool, err := database.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if opts.Migrations != nil {
			if err := database.RunMigrations(ctx, pool, opts.Migrations); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("running migrations: %w", err)
			}
		}
		return NewPgStore(pool), pool.Close, nil

	case BackendRedis:
		client, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, redisKeyPrefix), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, opts.Backend)
	}
}
