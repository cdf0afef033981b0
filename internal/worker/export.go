package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/tracker/internal/state"
)

// Reloader loads fresh portfolio data into the dashboard state.
type Reloader interface {
	State() state.State
	Bootstrap(ctx context.Context) (state.State, bool)
	Refresh(ctx context.Context) (state.State, bool)
}

// AfterReloadHook is called with the state of each successful reload.
type AfterReloadHook interface {
	Export(ctx context.Context, s state.State) error
}

// ExportWorker periodically reloads the portfolio data and exports it.
type ExportWorker struct {
	reloader Reloader
	interval time.Duration
	hook     AfterReloadHook
}

// NewExportWorker creates a new ExportWorker.
func NewExportWorker(reloader Reloader, interval time.Duration, hook AfterReloadHook) *ExportWorker {
	return &ExportWorker{
		reloader: reloader,
		interval: interval,
		hook:     hook,
	}
}

// reload refreshes a loaded state or bootstraps one that has no data yet.
func (w *ExportWorker) reload(ctx context.Context) (state.State, bool) {
	switch w.reloader.State().Status {
	case state.StatusLoading, state.StatusError:
		return w.reloader.Bootstrap(ctx)
	default:
		return w.reloader.Refresh(ctx)
	}
}

func (w *ExportWorker) runOnce(ctx context.Context) {
	s, ok := w.reload(ctx)
	if !ok {
		slog.Info("ExportWorker: reload skipped, another load is in flight")
		return
	}
	if s.Status != state.StatusReady {
		slog.Error("ExportWorker: reload failed", "error", s.Error)
		return
	}
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, s); err != nil {
		slog.Error("ExportWorker: export failed", "error", err)
	} else {
		slog.Info("ExportWorker: export completed", "generated_at", s.GeneratedAt)
	}
}

// Run starts the export worker loop. It blocks until the context is cancelled.
func (w *ExportWorker) Run(ctx context.Context) {
	slog.Info("ExportWorker: starting", "interval", w.interval)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ExportWorker: shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}
