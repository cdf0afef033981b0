package worker

import (
	"context"
	"log/slog"
	"time"
)

// GoalsPublisher fetches the account goals and publishes them.
type GoalsPublisher interface {
	Run(ctx context.Context) error
}

// GoalsWorker periodically republishes the goals file.
type GoalsWorker struct {
	publisher GoalsPublisher
	interval  time.Duration
}

// NewGoalsWorker creates a new GoalsWorker.
func NewGoalsWorker(publisher GoalsPublisher, interval time.Duration) *GoalsWorker {
	return &GoalsWorker{
		publisher: publisher,
		interval:  interval,
	}
}

// Run starts the goals worker loop. It blocks until the context is cancelled.
func (w *GoalsWorker) Run(ctx context.Context) {
	slog.Info("GoalsWorker: starting", "interval", w.interval)

	if err := w.publisher.Run(ctx); err != nil {
		slog.Error("GoalsWorker: initial publication failed", "error", err)
	} else {
		slog.Info("GoalsWorker: initial publication completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("GoalsWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.publisher.Run(ctx); err != nil {
				slog.Error("GoalsWorker: publication failed", "error", err)
			} else {
				slog.Info("GoalsWorker: publication completed")
			}
		}
	}
}
