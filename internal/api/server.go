package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/tracker/internal/metrics"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, deps Deps) *http.Server {
	handler := NewHandler(deps)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/state", handler.GetState)
	mux.HandleFunc("GET /api/v1/view", handler.GetView)
	mux.HandleFunc("GET /api/v1/chart", handler.GetChart)
	mux.HandleFunc("GET /api/v1/chart.png", handler.GetChartPNG)
	mux.HandleFunc("GET /api/v1/banner", handler.GetBanner)
	mux.HandleFunc("POST /api/v1/refresh", handler.Refresh)
	mux.HandleFunc("PUT /api/v1/platform/{id}", handler.SelectPlatform)
	mux.HandleFunc("PUT /api/v1/chart-mode/{mode}", handler.SetChartMode)
	mux.Handle("POST /api/v1/fetch-data", adminOnly(deps.AdminAPIKey, http.HandlerFunc(handler.FetchData)))
	mux.Handle("POST /api/v1/export", adminOnly(deps.AdminAPIKey, http.HandlerFunc(handler.Export)))
	mux.Handle("GET /metrics", promhttp.Handler())
	if deps.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(deps.StaticDir)))
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      instrument(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

func adminOnly(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return requireAuth(apiKey, next)
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request counts and latencies labelled by route pattern.
func instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, pattern := next.Handler(r)
		path := routePath(pattern)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePath strips the method from a mux pattern so labels stay bounded.
func routePath(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}
