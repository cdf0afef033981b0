// Package api serves the dashboard state, charts and actions over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/tracker/internal/chart"
	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/export"
	"github.com/mtlprog/tracker/internal/goals"
	"github.com/mtlprog/tracker/internal/state"
	"github.com/mtlprog/tracker/internal/view"
)

// Dashboard drives the application state.
type Dashboard interface {
	State() state.State
	Bootstrap(ctx context.Context) (state.State, bool)
	Refresh(ctx context.Context) (state.State, bool)
	SelectPlatform(id string) state.State
	SetChartMode(mode state.ChartMode) state.State
	FetchData(ctx context.Context) (state.State, bool)
}

// BannerSource provides the goals banner.
type BannerSource interface {
	Banner(ctx context.Context) (goals.Banner, error)
}

// Exporter writes the holdings to the configured destinations.
type Exporter interface {
	Export(ctx context.Context, s state.State) error
}

// Deps are the collaborators of the HTTP handlers. Banner and Exporter are optional.
type Deps struct {
	Dashboard   Dashboard
	Banner      BannerSource
	Exporter    Exporter
	Location    *time.Location
	StaticDir   string
	AdminAPIKey string
}

// Handler provides HTTP endpoints for the dashboard.
type Handler struct {
	deps Deps
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Handler{deps: deps}
}

// GetState handles GET /api/v1/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Dashboard.State())
}

// GetView handles GET /api/v1/view.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, view.Build(h.deps.Dashboard.State(), h.deps.Location))
}

type chartResponse struct {
	Mode        state.ChartMode `json:"mode"`
	Chart       chart.Chart     `json:"chart"`
	Placeholder string          `json:"placeholder,omitempty"`
}

// GetChart handles GET /api/v1/chart.
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	s := h.deps.Dashboard.State()
	c, placeholder := chart.Build(s)
	writeJSON(w, http.StatusOK, chartResponse{Mode: s.ChartMode, Chart: c, Placeholder: placeholder})
}

// GetChartPNG handles GET /api/v1/chart.png?width=&height=.
func (h *Handler) GetChartPNG(w http.ResponseWriter, r *http.Request) {
	const maxSide = 4096
	size := func(name string) int {
		n, err := strconv.Atoi(r.URL.Query().Get(name))
		if err != nil || n <= 0 {
			return 0
		}
		return min(n, maxSide)
	}

	c, placeholder := chart.Build(h.deps.Dashboard.State())
	var buf bytes.Buffer
	if err := chart.RenderPNG(&buf, c, size("width"), size("height")); err != nil {
		if errors.Is(err, chart.ErrNothingToDraw) {
			msg := placeholder
			if msg == "" {
				msg = err.Error()
			}
			writeError(w, http.StatusNotFound, msg)
			return
		}
		slog.Error("failed to render chart", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
	}
}

// GetBanner handles GET /api/v1/banner. Load failures hide the banner.
func (h *Handler) GetBanner(w http.ResponseWriter, r *http.Request) {
	if h.deps.Banner == nil {
		writeJSON(w, http.StatusOK, goals.Banner{})
		return
	}
	banner, err := h.deps.Banner.Banner(r.Context())
	if err != nil {
		slog.Warn("goals banner unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, banner)
}

// Refresh handles POST /api/v1/refresh. A state without data is bootstrapped
// instead, which is how a failed initial load is retried.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var (
		s  state.State
		ok bool
	)
	// the load outlives a client that hangs up
	ctx := context.WithoutCancel(r.Context())
	switch h.deps.Dashboard.State().Status {
	case state.StatusLoading, state.StatusError:
		s, ok = h.deps.Dashboard.Bootstrap(ctx)
	default:
		s, ok = h.deps.Dashboard.Refresh(ctx)
	}
	if !ok {
		writeError(w, http.StatusConflict, "a load is already in progress")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SelectPlatform handles PUT /api/v1/platform/{id}.
func (h *Handler) SelectPlatform(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current := h.deps.Dashboard.State()
	if current.Status != state.StatusReady {
		writeError(w, http.StatusConflict, "platforms can only be selected once the data is ready")
		return
	}
	if !domain.HasPlatform(current.Platforms, id) {
		writeError(w, http.StatusNotFound, "unknown platform")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dashboard.SelectPlatform(id))
}

// SetChartMode handles PUT /api/v1/chart-mode/{mode}.
func (h *Handler) SetChartMode(w http.ResponseWriter, r *http.Request) {
	mode := state.ChartMode(r.PathValue("mode"))
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "unknown chart mode")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dashboard.SetChartMode(mode))
}

// FetchData handles POST /api/v1/fetch-data.
func (h *Handler) FetchData(w http.ResponseWriter, r *http.Request) {
	s, ok := h.deps.Dashboard.FetchData(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "data generation is already running")
		return
	}
	writeJSON(w, http.StatusOK, s.FetchJob)
}

// Export handles POST /api/v1/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.deps.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	if err := h.deps.Exporter.Export(r.Context(), h.deps.Dashboard.State()); err != nil {
		if errors.Is(err, export.ErrNotReady) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("failed to export holdings", "error", err)
		writeError(w, http.StatusBadGateway, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exported"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
