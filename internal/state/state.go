// Package state derives the dashboard's application state from a snapshot and
// drives its loading, refreshing and error transitions.
package state

import (
	"context"
	"slices"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/prefs"
)

// Status is the lifecycle phase of the application state.
type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusRefreshing Status = "refreshing"
	StatusError      Status = "error"
)

// ChartMode selects which chart is displayed.
type ChartMode string

const (
	ChartTimeseries    ChartMode = "timeseries"
	ChartMonthlyChange ChartMode = "monthly_change"
	ChartReturn1Y      ChartMode = "return_1y"
	ChartReturn5Y      ChartMode = "return_5y"

	DefaultChartMode = ChartReturn1Y
)

// ChartModes lists every chart mode in display order.
var ChartModes = []ChartMode{ChartTimeseries, ChartMonthlyChange, ChartReturn1Y, ChartReturn5Y}

// Valid reports whether m is a known chart mode.
func (m ChartMode) Valid() bool {
	return slices.Contains(ChartModes, m)
}

// FetchStatus is the phase of the data-generation side action.
type FetchStatus string

const (
	FetchIdle    FetchStatus = "idle"
	FetchRunning FetchStatus = "running"
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
)

// FetchJob is the state of the data-generation side action.
type FetchJob struct {
	Status      FetchStatus `json:"status"`
	Message     string      `json:"message"`
	GeneratedAt string      `json:"generated_at,omitempty"`
}

// State is the application state. Values are replaced wholesale on every
// transition; the slices and maps they carry are never modified afterwards.
type State struct {
	Status              Status                      `json:"status"`
	Error               string                      `json:"error,omitempty"`
	GeneratedAt         string                      `json:"generated_at,omitempty"`
	PreviousGeneratedAt string                      `json:"previous_generated_at,omitempty"`
	Currency            string                      `json:"currency,omitempty"`
	Source              domain.Source               `json:"source"`
	Platforms           []domain.Platform           `json:"platforms"`
	PlatformIndex       map[string]*domain.Platform `json:"-"`
	Charts              domain.Charts               `json:"charts"`
	ActivePlatformID    string                      `json:"active_platform_id,omitempty"`
	ChartMode           ChartMode                   `json:"chart_mode"`
	FetchJob            FetchJob                    `json:"fetch_job"`
	Endpoint            string                      `json:"endpoint,omitempty"`
}

// Initial returns the state every session starts in.
func Initial() State {
	return State{
		Status:    StatusLoading,
		ChartMode: DefaultChartMode,
		FetchJob:  FetchJob{Status: FetchIdle},
	}
}

// Build derives a ready state from snap. The active platform is preferredID
// when snap still has it, else the first platform, else none. The stored
// generation marker is read as the previous timestamp and then overwritten
// with snap's, so repeated calls are not idempotent with respect to p.
func Build(ctx context.Context, snap domain.Snapshot, preferredID string, p *prefs.Preferences) State {
	platforms := slices.Clone(snap.Platforms)
	if platforms == nil {
		platforms = []domain.Platform{}
	}

	var previous string
	if p != nil {
		previous = p.LastGeneratedAt(ctx)
		p.SetGeneratedAt(ctx, snap.GeneratedAt)
	}

	currency := snap.Currency
	if currency == "" {
		currency = "USD"
	}

	return State{
		Status:              StatusReady,
		GeneratedAt:         snap.GeneratedAt,
		PreviousGeneratedAt: previous,
		Currency:            currency,
		Source:              snap.Source,
		Platforms:           platforms,
		PlatformIndex:       domain.IndexPlatforms(platforms),
		Charts:              snap.Charts,
		ActivePlatformID:    pickActivePlatform(platforms, preferredID),
		ChartMode:           DefaultChartMode,
		FetchJob:            FetchJob{Status: FetchIdle},
	}
}

func pickActivePlatform(platforms []domain.Platform, preferredID string) string {
	if len(platforms) == 0 {
		return ""
	}
	if preferredID != "" && domain.HasPlatform(platforms, preferredID) {
		return preferredID
	}
	return platforms[0].ID
}

// Failed returns the error state that follows s. Data and platform selection
// are discarded; chart mode and fetch job survive.
func Failed(s State, err error) State {
	msg := "unknown error while loading the data"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return State{
		Status:    StatusError,
		Error:     msg,
		ChartMode: s.ChartMode,
		FetchJob:  s.FetchJob,
	}
}

// SelectPlatform returns s with id active. s is returned unchanged unless it
// is ready, id is known and differs from the current selection.
func SelectPlatform(s State, id string) State {
	if s.Status != StatusReady || id == "" || id == s.ActivePlatformID {
		return s
	}
	if _, ok := s.PlatformIndex[id]; !ok {
		return s
	}
	s.ActivePlatformID = id
	return s
}

// WithChartMode returns s showing mode. Empty, unknown and unchanged modes are ignored.
func WithChartMode(s State, mode ChartMode) State {
	if mode == "" || mode == s.ChartMode || !mode.Valid() {
		return s
	}
	s.ChartMode = mode
	return s
}

// ActivePlatform returns the selected platform of a ready state.
func ActivePlatform(s State) (*domain.Platform, bool) {
	if s.Status != StatusReady || s.ActivePlatformID == "" {
		return nil, false
	}
	p, ok := s.PlatformIndex[s.ActivePlatformID]
	return p, ok
}
