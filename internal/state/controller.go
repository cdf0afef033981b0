package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mtlprog/tracker/internal/fetchjob"
	"github.com/mtlprog/tracker/internal/loader"
	"github.com/mtlprog/tracker/internal/prefs"
)

// Resolver produces candidate snapshot URLs.
type Resolver interface {
	Resolve(ctx context.Context) []string
}

// Loader fetches a snapshot from the first working endpoint.
type Loader interface {
	Load(ctx context.Context, endpoints []string) (loader.Result, error)
}

// Trigger asks the data server to regenerate the snapshot.
type Trigger interface {
	Run(ctx context.Context) (fetchjob.Result, error)
}

// Controller applies user actions to the Store.
type Controller struct {
	store    *Store
	resolver Resolver
	loader   Loader
	prefs    *prefs.Preferences
	trigger  Trigger
}

// NewController creates a Controller. trigger may be nil, which disables FetchData.
func NewController(store *Store, resolver Resolver, l Loader, p *prefs.Preferences, trigger Trigger) *Controller {
	if p == nil {
		p = prefs.New(nil)
	}
	return &Controller{
		store:    store,
		resolver: resolver,
		loader:   l,
		prefs:    p,
		trigger:  trigger,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.store.Current()
}

// Bootstrap performs the initial load. It may also be used to retry after an
// error. It is ignored while another load is in flight or when data is
// already loaded; the bool reports whether it ran.
func (c *Controller) Bootstrap(ctx context.Context) (State, bool) {
	_, ok := c.store.Begin(func(s State) (State, bool) {
		if s.Status != StatusLoading && s.Status != StatusError {
			return s, false
		}
		return State{
			Status:    StatusLoading,
			ChartMode: s.ChartMode,
			FetchJob:  s.FetchJob,
		}, true
	})
	if !ok {
		return c.store.Current(), false
	}

	result, err := c.load(ctx)
	var next State
	if err == nil {
		next = Build(ctx, result.Snapshot, "", c.prefs)
	}
	return c.store.Finish(func(s State) State {
		if err != nil {
			slog.Error("failed to initialize dashboard", "error", err)
			return Failed(s, err)
		}
		next.ChartMode = s.ChartMode
		next.FetchJob = s.FetchJob
		next.Endpoint = result.Endpoint
		return next
	}), true
}

// Refresh reloads the snapshot. It only runs from the ready status; the
// active platform is kept when the new data still has it and a successful
// fetch job is reset to idle.
func (c *Controller) Refresh(ctx context.Context) (State, bool) {
	started, ok := c.store.Begin(func(s State) (State, bool) {
		if s.Status != StatusReady {
			return s, false
		}
		s.Status = StatusRefreshing
		return s, true
	})
	if !ok {
		return c.store.Current(), false
	}
	preferredID := started.ActivePlatformID

	result, err := c.load(ctx)
	var next State
	if err == nil {
		next = Build(ctx, result.Snapshot, preferredID, c.prefs)
	}
	return c.store.Finish(func(s State) State {
		if interrupted(err) {
			slog.Warn("dashboard refresh interrupted, keeping loaded data", "error", err)
			s.Status = StatusReady
			return s
		}
		if err != nil {
			slog.Error("failed to refresh dashboard", "error", err)
			return Failed(s, err)
		}
		next.ChartMode = s.ChartMode
		next.FetchJob = s.FetchJob
		if s.FetchJob.Status == FetchSuccess {
			next.FetchJob = FetchJob{Status: FetchIdle}
		}
		next.Endpoint = result.Endpoint
		return next
	}), true
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Controller) load(ctx context.Context) (loader.Result, error) {
	endpoints := c.resolver.Resolve(ctx)
	return c.loader.Load(ctx, endpoints)
}

// SelectPlatform makes id the active platform when the state allows it.
func (c *Controller) SelectPlatform(id string) State {
	return c.store.Update(func(s State) State {
		return SelectPlatform(s, id)
	})
}

// SetChartMode switches the displayed chart.
func (c *Controller) SetChartMode(mode ChartMode) State {
	return c.store.Update(func(s State) State {
		return WithChartMode(s, mode)
	})
}

// FetchData asks the data server to regenerate the snapshot. It is ignored
// while a previous request is running; the bool reports whether it ran.
// The outcome is recorded in the state's fetch job, never in its status.
func (c *Controller) FetchData(ctx context.Context) (State, bool) {
	started := false
	c.store.Update(func(s State) State {
		if s.FetchJob.Status == FetchRunning {
			return s
		}
		started = true
		s.FetchJob = FetchJob{Status: FetchRunning, Message: "Running data generation..."}
		return s
	})
	if !started {
		return c.store.Current(), false
	}

	var job FetchJob
	if c.trigger == nil {
		job = FetchJob{Status: FetchError, Message: "data generation is not configured"}
	} else if result, err := c.trigger.Run(ctx); err != nil {
		slog.Warn("data generation failed", "error", err)
		job = FetchJob{Status: FetchError, Message: err.Error()}
	} else {
		job = FetchJob{Status: FetchSuccess, Message: result.Message, GeneratedAt: result.GeneratedAt}
	}

	return c.store.Update(func(s State) State {
		s.FetchJob = job
		return s
	}), true
}
