package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/fetchjob"
	"github.com/mtlprog/tracker/internal/loader"
	"github.com/mtlprog/tracker/internal/prefs"
)

type staticResolver []string

func (r staticResolver) Resolve(context.Context) []string { return r }

type stubLoader struct {
	mu      sync.Mutex
	results []loader.Result
	errs    []error
	calls   atomic.Int32
	block   chan struct{}
}

func (l *stubLoader) Load(ctx context.Context, endpoints []string) (loader.Result, error) {
	n := int(l.calls.Add(1)) - 1
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if n < len(l.errs) {
		err = l.errs[n]
	}
	if err != nil {
		return loader.Result{}, err
	}
	return l.results[min(n, len(l.results)-1)], nil
}

type stubTrigger struct {
	result fetchjob.Result
	err    error
}

func (t stubTrigger) Run(context.Context) (fetchjob.Result, error) { return t.result, t.err }

func snapshotWith(ids ...string) domain.Snapshot {
	snap := domain.Snapshot{GeneratedAt: "2024-01-01T00:00:00Z"}
	for _, id := range ids {
		snap.Platforms = append(snap.Platforms, domain.Platform{ID: id})
	}
	return snap
}

func newController(l Loader, trigger Trigger) *Controller {
	return NewController(NewStore(Initial()), staticResolver{"http://a/data.json"}, l, prefs.New(nil), trigger)
}

func TestBootstrapReady(t *testing.T) {
	l := &stubLoader{results: []loader.Result{{Snapshot: scenarioSnapshot(), Endpoint: "http://a/data.json"}}}
	c := newController(l, nil)

	s, ran := c.Bootstrap(context.Background())
	if !ran {
		t.Fatal("Bootstrap did not run from the initial state")
	}
	if s.Status != StatusReady || s.ActivePlatformID != "racional" {
		t.Errorf("state = %q / %q", s.Status, s.ActivePlatformID)
	}
	if s.Endpoint != "http://a/data.json" {
		t.Errorf("Endpoint = %q", s.Endpoint)
	}

	if _, ran := c.Bootstrap(context.Background()); ran {
		t.Error("Bootstrap should be ignored once data is loaded")
	}
}

func TestRefreshIgnoredWhileLoading(t *testing.T) {
	l := &stubLoader{results: []loader.Result{{Snapshot: scenarioSnapshot()}}}
	c := newController(l, nil)
	before := c.State()

	s, ran := c.Refresh(context.Background())
	if ran {
		t.Error("Refresh ran from the loading status")
	}
	if s.Status != StatusLoading || s.Status != before.Status || s.ChartMode != before.ChartMode {
		t.Errorf("state changed: %+v", s)
	}
	if l.calls.Load() != 0 {
		t.Errorf("loader called %d times", l.calls.Load())
	}
}

func TestAllEndpointsFailScenario(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	endpoints := staticResolver{
		server.URL + "/local/data/latest.json",
		server.URL + "/octo/portfolio/main/data/latest.json",
		server.URL + "/octo/portfolio/master/data/latest.json",
	}
	c := NewController(NewStore(Initial()), endpoints, loader.New(server.Client(), nil, nil), nil, nil)

	s, _ := c.Bootstrap(context.Background())
	if s.Status != StatusError {
		t.Fatalf("Status = %q, want error", s.Status)
	}
	if s.Error == "" {
		t.Fatal("error message is empty")
	}
	for _, ep := range endpoints {
		if !strings.Contains(s.Error, ep) {
			t.Errorf("error message does not mention %s: %s", ep, s.Error)
		}
	}
}

func TestRefreshKeepsSelectionAndChartMode(t *testing.T) {
	l := &stubLoader{results: []loader.Result{
		{Snapshot: snapshotWith("racional", "fintual")},
		{Snapshot: snapshotWith("etoro", "fintual")},
	}}
	c := newController(l, stubTrigger{result: fetchjob.Result{Message: "done"}})
	ctx := context.Background()

	c.Bootstrap(ctx)
	c.SelectPlatform("fintual")
	c.SetChartMode(ChartTimeseries)
	c.FetchData(ctx)

	s, ran := c.Refresh(ctx)
	if !ran {
		t.Fatal("Refresh did not run from ready")
	}
	if s.Status != StatusReady || s.ActivePlatformID != "fintual" {
		t.Errorf("state = %q / %q, want ready / fintual", s.Status, s.ActivePlatformID)
	}
	if s.ChartMode != ChartTimeseries {
		t.Errorf("ChartMode = %q, want timeseries", s.ChartMode)
	}
	if s.FetchJob.Status != FetchIdle {
		t.Errorf("FetchJob = %+v, want idle after a successful job", s.FetchJob)
	}
}

func TestRefreshFallsBackToFirstPlatform(t *testing.T) {
	l := &stubLoader{results: []loader.Result{
		{Snapshot: snapshotWith("racional", "fintual")},
		{Snapshot: snapshotWith("etoro", "ibkr")},
	}}
	c := newController(l, nil)
	ctx := context.Background()

	c.Bootstrap(ctx)
	c.SelectPlatform("fintual")
	s, _ := c.Refresh(ctx)
	if s.ActivePlatformID != "etoro" {
		t.Errorf("ActivePlatformID = %q, want etoro", s.ActivePlatformID)
	}
}

func TestRefreshFailure(t *testing.T) {
	l := &stubLoader{
		results: []loader.Result{{Snapshot: snapshotWith("racional")}},
		errs:    []error{nil, errors.New("endpoints exhausted")},
	}
	c := newController(l, nil)
	ctx := context.Background()

	c.Bootstrap(ctx)
	c.SetChartMode(ChartReturn5Y)
	s, _ := c.Refresh(ctx)
	if s.Status != StatusError || s.Error != "endpoints exhausted" {
		t.Errorf("state = %q / %q", s.Status, s.Error)
	}
	if s.ActivePlatformID != "" {
		t.Error("platform selection should be discarded on error")
	}
	if s.ChartMode != ChartReturn5Y {
		t.Errorf("ChartMode = %q, want return_5y", s.ChartMode)
	}

	if _, ran := c.Refresh(ctx); ran {
		t.Error("Refresh should be ignored in the error status")
	}
	s, ran := c.Bootstrap(ctx)
	if !ran || s.Status != StatusReady {
		t.Errorf("Bootstrap after error = %q, ran %v", s.Status, ran)
	}
}

func TestRefreshInterruptedKeepsData(t *testing.T) {
	l := &stubLoader{
		results: []loader.Result{{Snapshot: snapshotWith("racional", "etoro")}},
		errs:    []error{nil, fmt.Errorf("loading snapshot: %w", context.DeadlineExceeded)},
	}
	c := newController(l, nil)
	ctx := context.Background()

	c.Bootstrap(ctx)
	c.SelectPlatform("etoro")
	s, ran := c.Refresh(ctx)
	if !ran {
		t.Fatal("Refresh did not run")
	}
	if s.Status != StatusReady || s.Error != "" {
		t.Errorf("state = %q / %q, want ready without error", s.Status, s.Error)
	}
	if s.ActivePlatformID != "etoro" || len(s.Platforms) != 2 {
		t.Errorf("active = %q, platforms = %d; loaded data was dropped", s.ActivePlatformID, len(s.Platforms))
	}

	if _, ran := c.Refresh(ctx); !ran {
		t.Error("Refresh should run again after an interrupted one")
	}
}

func TestConcurrentRefreshRunsOnce(t *testing.T) {
	l := &stubLoader{results: []loader.Result{{Snapshot: snapshotWith("racional")}}}
	c := newController(l, nil)
	ctx := context.Background()
	c.Bootstrap(ctx)

	l.block = make(chan struct{})
	var (
		wg       sync.WaitGroup
		ran      atomic.Int32
		rejected atomic.Int32
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, ok := c.Refresh(ctx); ok {
			ran.Add(1)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for l.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := c.State().Status; got != StatusRefreshing {
		t.Errorf("Status during refresh = %q, want refreshing", got)
	}

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := c.Refresh(ctx); ok {
				ran.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	for rejected.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(l.block)
	wg.Wait()

	if ran.Load() != 1 {
		t.Errorf("refreshes run = %d, want 1", ran.Load())
	}
	if l.calls.Load() != 2 {
		t.Errorf("loader calls = %d, want 2", l.calls.Load())
	}
}

func TestFetchData(t *testing.T) {
	ctx := context.Background()

	c := newController(&stubLoader{}, stubTrigger{result: fetchjob.Result{Message: "ok", GeneratedAt: "2024-02-01T00:00:00Z"}})
	s, ran := c.FetchData(ctx)
	if !ran || s.FetchJob.Status != FetchSuccess || s.FetchJob.GeneratedAt != "2024-02-01T00:00:00Z" {
		t.Errorf("FetchJob = %+v, ran %v", s.FetchJob, ran)
	}
	if s.Status != StatusLoading {
		t.Errorf("FetchData changed status to %q", s.Status)
	}

	c = newController(&stubLoader{}, stubTrigger{err: errors.New("server down")})
	s, _ = c.FetchData(ctx)
	if s.FetchJob.Status != FetchError || s.FetchJob.Message != "server down" {
		t.Errorf("FetchJob = %+v", s.FetchJob)
	}

	c = newController(&stubLoader{}, nil)
	s, _ = c.FetchData(ctx)
	if s.FetchJob.Status != FetchError {
		t.Errorf("FetchJob without trigger = %+v", s.FetchJob)
	}
}

func TestFetchDataIgnoredWhileRunning(t *testing.T) {
	c := newController(&stubLoader{}, stubTrigger{})
	c.store.Update(func(s State) State {
		s.FetchJob = FetchJob{Status: FetchRunning}
		return s
	})
	if _, ran := c.FetchData(context.Background()); ran {
		t.Error("FetchData ran while a job was running")
	}
}
