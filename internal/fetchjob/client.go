// Package fetchjob asks a data-generation server to rebuild the snapshot.
package fetchjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const triggerPath = "/api/fetch-data"

var (
	// ErrServerUnreachable is returned when no generation server answered.
	ErrServerUnreachable = errors.New("could not reach the local data server, start it and try again")
	// ErrEndpointUnavailable is returned when servers answered but none exposes the trigger.
	ErrEndpointUnavailable = errors.New("the " + triggerPath + " endpoint is not available on this server")
	// errNoCandidates is returned when no server is configured.
	errNoCandidates = errors.New("no data server configured")
)

// Result is the generation server's answer.
type Result struct {
	Message     string `json:"message"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// Candidate is one trigger request to try.
type Candidate struct {
	URL    string
	Method string
}

// Candidates expands base URLs into POST then GET requests against the trigger path.
func Candidates(bases []string) []Candidate {
	var out []Candidate
	for _, base := range bases {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		out = append(out,
			Candidate{URL: base + triggerPath, Method: http.MethodPost},
			Candidate{URL: base + triggerPath, Method: http.MethodGet},
		)
	}
	return out
}

// Client triggers snapshot generation.
type Client struct {
	httpClient *http.Client
	candidates []Candidate
}

// NewClient creates a trigger client for the given server base URLs.
func NewClient(httpClient *http.Client, bases []string) *Client {
	if httpClient == nil {
		// generation runs the full aggregation, allow it time
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{httpClient: httpClient, candidates: Candidates(bases)}
}

type response struct {
	Message     *string `json:"message"`
	GeneratedAt any     `json:"generated_at"`
}

// Run tries every candidate in order until one succeeds. 404, 405 and 501
// answers mean "not here" and move on; other failures are remembered and the
// most specific one is reported once all candidates are exhausted.
func (c *Client) Run(ctx context.Context) (Result, error) {
	if len(c.candidates) == 0 {
		return Result{}, errNoCandidates
	}

	var (
		lastStatus int
		lastErr    error
		networkErr bool
	)
	for _, cand := range c.candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		result, status, err := c.try(ctx, cand)
		if err == nil {
			slog.Info("data generation triggered", "url", cand.URL, "method", cand.Method, "generated_at", result.GeneratedAt)
			return result, nil
		}

		slog.Debug("data generation candidate failed", "url", cand.URL, "method", cand.Method, "error", err)
		switch {
		case status == 0:
			lastErr, networkErr = err, true
		case notHere(status):
			lastStatus = status
		default:
			lastStatus = status
			lastErr, networkErr = err, false
		}
	}

	switch {
	case lastStatus == http.StatusNotImplemented:
		return Result{}, ErrServerUnreachable
	case lastStatus == http.StatusNotFound || lastStatus == http.StatusMethodNotAllowed:
		return Result{}, ErrEndpointUnavailable
	case networkErr:
		return Result{}, ErrServerUnreachable
	case lastErr != nil:
		return Result{}, lastErr
	default:
		return Result{}, errors.New("data generation failed")
	}
}

func notHere(status int) bool {
	return status == http.StatusNotFound || status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented
}

// try performs one candidate request. status is 0 when no response was received.
func (c *Client) try(ctx context.Context, cand Candidate) (Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, cand.Method, cand.URL, nil)
	if err != nil {
		return Result{}, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = fmt.Sprintf("HTTP error %d", resp.StatusCode)
		}
		return Result{}, resp.StatusCode, errors.New(text)
	}

	return parseResult(body), resp.StatusCode, nil
}

// parseResult reads the server answer. An unreadable body still counts as success.
func parseResult(body []byte) Result {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		slog.Debug("ignoring unreadable generation response", "error", err)
	}

	var result Result
	if s, ok := r.GeneratedAt.(string); ok {
		result.GeneratedAt = s
	}
	switch {
	case r.Message != nil:
		result.Message = *r.Message
	case result.GeneratedAt != "":
		result.Message = `Data generated. Press "Refresh".`
	default:
		result.Message = "Data generated successfully."
	}
	return result
}
