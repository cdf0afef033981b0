package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/tracker/internal/state"
)

type mockPublisher struct {
	callCount atomic.Int32
	err       error
}

func (m *mockPublisher) Run(_ context.Context) error {
	m.callCount.Add(1)
	return m.err
}

func TestGoalsWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockPublisher{}
	w := NewGoalsWorker(mock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// initial run plus at least one tick
	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}

func TestGoalsWorkerKeepsRunningAfterFailure(t *testing.T) {
	mock := &mockPublisher{err: errors.New("goals API responded HTTP 500")}
	w := NewGoalsWorker(mock, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}

type mockReloader struct {
	mu         sync.Mutex
	s          state.State
	next       state.State
	busy       bool
	bootstraps int
	refreshes  int
}

func (m *mockReloader) State() state.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func (m *mockReloader) Bootstrap(context.Context) (state.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstraps++
	if m.busy {
		return m.s, false
	}
	m.s = m.next
	return m.s, true
}

func (m *mockReloader) Refresh(context.Context) (state.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	if m.busy {
		return m.s, false
	}
	m.s = m.next
	return m.s, true
}

type mockHook struct {
	calls atomic.Int32
}

func (m *mockHook) Export(context.Context, state.State) error {
	m.calls.Add(1)
	return nil
}

func ready() state.State {
	s := state.Initial()
	s.Status = state.StatusReady
	return s
}

func TestExportWorkerRunOnce(t *testing.T) {
	failed := state.Failed(state.Initial(), errors.New("all endpoints failed"))

	tests := []struct {
		name           string
		current        state.State
		next           state.State
		busy           bool
		wantBootstraps int
		wantRefreshes  int
		wantExports    int32
	}{
		{"bootstraps without data", state.Initial(), ready(), false, 1, 0, 1},
		{"refreshes loaded data", ready(), ready(), false, 0, 1, 1},
		{"retries after an error", failed, ready(), false, 1, 0, 1},
		{"failed reload is not exported", ready(), failed, false, 0, 1, 0},
		{"busy", ready(), ready(), true, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockReloader{s: tt.current, next: tt.next, busy: tt.busy}
			hook := &mockHook{}
			NewExportWorker(r, time.Minute, hook).runOnce(context.Background())

			if r.bootstraps != tt.wantBootstraps || r.refreshes != tt.wantRefreshes {
				t.Errorf("bootstraps = %d, refreshes = %d", r.bootstraps, r.refreshes)
			}
			if got := hook.calls.Load(); got != tt.wantExports {
				t.Errorf("exports = %d, want %d", got, tt.wantExports)
			}
		})
	}
}

func TestExportWorkerWithoutHook(t *testing.T) {
	r := &mockReloader{s: state.Initial(), next: ready()}
	NewExportWorker(r, time.Minute, nil).runOnce(context.Background())
	if r.State().Status != state.StatusReady {
		t.Error("reload did not run")
	}
}

func TestExportWorkerRunsAndShutdown(t *testing.T) {
	r := &mockReloader{s: ready(), next: ready()}
	hook := &mockHook{}
	w := NewExportWorker(r, 50*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := hook.calls.Load(); got < 2 {
		t.Errorf("exports = %d, want >= 2", got)
	}
}
