// Package github discovers the default branch of the repository that hosts the
// published portfolio snapshot.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mtlprog/tracker/internal/metrics"
)

const branchCacheSize = 256

// Client is an HTTP client for the GitHub REST API with retry on 429.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	branches   *lru.Cache[string, string]
}

// NewClient creates a new GitHub API client.
func NewClient(baseURL string, maxRetries int, baseDelay time.Duration) *Client {
	branches, err := lru.New[string, string](branchCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(fmt.Sprintf("creating branch cache: %v", err))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		branches:   branches,
	}
}

type repositoryResponse struct {
	DefaultBranch string `json:"default_branch"`
}

// DefaultBranch returns the default branch of repo. Lookup failures are logged
// and reported as ok=false; they are not cached, successful answers are cached
// for the lifetime of the client.
func (c *Client) DefaultBranch(ctx context.Context, repo Repository) (string, bool) {
	key := strings.ToLower(repo.String())
	if branch, ok := c.branches.Get(key); ok {
		return branch, true
	}

	var resp repositoryResponse
	if err := c.getJSON(ctx, "/repos/"+repo.Owner+"/"+repo.Name, &resp); err != nil {
		slog.Warn("default branch lookup failed", "repository", repo.String(), "error", err)
		metrics.BranchLookupsTotal.WithLabelValues("failed").Inc()
		return "", false
	}
	if resp.DefaultBranch == "" {
		slog.Warn("repository has no default branch", "repository", repo.String())
		metrics.BranchLookupsTotal.WithLabelValues("failed").Inc()
		return "", false
	}

	metrics.BranchLookupsTotal.WithLabelValues("found").Inc()
	c.branches.Add(key, resp.DefaultBranch)
	return resp.DefaultBranch, true
}

// apiError is a non-200 answer. GitHub puts a human readable reason in the
// message field of the body.
type apiError struct {
	status  int
	url     string
	message string
}

func (e *apiError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("HTTP %d from %s", e.status, e.url)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.status, e.url, e.message)
}

// rateLimited reports whether GitHub refused the request because of a rate
// limit. Primary limits answer 403 with no remaining requests, secondary
// limits answer 429.
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// get performs a GET request, backing off exponentially while rate limited.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		body, limited, err := c.do(ctx, url)
		if !limited {
			return body, err
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("rate limited after %d attempts: %w", attempt+1, err)
		}
		slog.Debug("github rate limited, backing off", "url", url, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.baseDelay << attempt):
		}
	}
}

// do sends one request. limited is true when the answer is a rate limit.
func (c *Client) do(ctx context.Context, url string) (body []byte, limited bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "portfolio-tracker")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return body, false, nil
	}

	apiErr := &apiError{status: resp.StatusCode, url: url}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.message = payload.Message
	}
	return nil, rateLimited(resp), apiErr
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}
