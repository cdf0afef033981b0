// Package loader fetches the portfolio snapshot from the first candidate
// endpoint that serves a valid document.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/endpoint"
	"github.com/mtlprog/tracker/internal/metrics"
	"github.com/mtlprog/tracker/internal/prefs"
	"github.com/mtlprog/tracker/internal/snapshot"
)

const cacheBustParam = "cacheBust"

// RemoteParser recognizes branch-qualified remote URLs.
type RemoteParser interface {
	ParseRemote(rawURL string) (endpoint.Remote, bool)
}

// Result is a loaded snapshot and the endpoint that served it.
type Result struct {
	Snapshot domain.Snapshot
	Endpoint string
}

// Loader tries endpoints in order and stops at the first success.
type Loader struct {
	httpClient *http.Client
	prefs      *prefs.Preferences
	remotes    RemoteParser
	now        func() time.Time
}

// New creates a Loader. remotes may be nil, in which case no branch is remembered.
func New(httpClient *http.Client, p *prefs.Preferences, remotes RemoteParser) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if p == nil {
		p = prefs.New(nil)
	}
	return &Loader{
		httpClient: httpClient,
		prefs:      p,
		remotes:    remotes,
		now:        time.Now,
	}
}

// Load fetches the snapshot from the first endpoint that answers with a success
// status and a well-formed body. No request is made after the first success.
// When every endpoint fails the error is an *UnavailableError listing each attempt.
func (l *Loader) Load(ctx context.Context, endpoints []string) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.LoadDuration.Observe(time.Since(start).Seconds())
	}()

	attempts := make([]Attempt, 0, len(endpoints))
	for _, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("loading snapshot: %w", err)
		}

		snap, outcome, err := l.fetch(ctx, ep)
		metrics.FetchAttemptsTotal.WithLabelValues(outcome).Inc()
		if err != nil {
			// an aborted caller says nothing about the endpoint
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, fmt.Errorf("loading snapshot: %w", ctxErr)
			}
			slog.Debug("snapshot endpoint failed", "endpoint", ep, "outcome", outcome, "error", err)
			attempts = append(attempts, Attempt{Endpoint: ep, Reason: err.Error()})
			continue
		}

		l.remember(ctx, ep)
		slog.Info("loaded snapshot", "endpoint", ep, "generated_at", snap.GeneratedAt,
			"platforms", len(snap.Platforms), "failed_attempts", len(attempts))
		return Result{Snapshot: snap, Endpoint: ep}, nil
	}

	metrics.EndpointsExhaustedTotal.Inc()
	return Result{}, &UnavailableError{Attempts: attempts}
}

func (l *Loader) remember(ctx context.Context, ep string) {
	l.prefs.SetLastEndpoint(ctx, ep)
	if l.remotes == nil {
		return
	}
	if remote, ok := l.remotes.ParseRemote(ep); ok {
		l.prefs.SetBranch(ctx, remote.Repo.String(), remote.Branch)
	}
}

// fetch loads one endpoint and reports the attempt outcome label.
func (l *Loader) fetch(ctx context.Context, ep string) (domain.Snapshot, string, error) {
	u, err := url.Parse(ep)
	if err != nil {
		return domain.Snapshot{}, "network_error", fmt.Errorf("invalid URL: %w", err)
	}

	var body []byte
	switch u.Scheme {
	case "http", "https":
		body, err = l.get(ctx, u)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) {
				return domain.Snapshot{}, "http_error", err
			}
			return domain.Snapshot{}, "network_error", err
		}
	case "", "file":
		body, err = os.ReadFile(u.Path)
		if err != nil {
			return domain.Snapshot{}, "network_error", fmt.Errorf("reading file: %w", err)
		}
	default:
		return domain.Snapshot{}, "network_error", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	snap, err := snapshot.Decode(bytes.NewReader(body))
	if err != nil {
		return domain.Snapshot{}, "malformed", err
	}
	return snap, "success", nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "HTTP " + strconv.Itoa(e.code)
}

func (l *Loader) get(ctx context.Context, u *url.URL) ([]byte, error) {
	q := u.Query()
	q.Set(cacheBustParam, cacheBuster(l.now()))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// cacheBuster returns "<unix millis>-<6 random base36 chars>".
func cacheBuster(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}
