// Package goals publishes the investment goals of a Fintual account as a
// public JSON file and turns that file into the dashboard banner.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Environment variables holding the account credentials.
const (
	EnvUserEmail = "FINTUAL_USER_EMAIL"
	EnvUserToken = "FINTUAL_USER_TOKEN"
)

// DefaultAPIURL is the goals endpoint of the Fintual API.
const DefaultAPIURL = "https://fintual.cl/api/goals"

// ErrCredentialMissing is returned when a required credential is not set.
var ErrCredentialMissing = errors.New("required environment variable missing")

// UpstreamError is returned when the goals API answers with a non-success status.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("goals API responded HTTP %d", e.StatusCode)
}

// Credentials authenticate against the goals API.
type Credentials struct {
	Email string
	Token string
}

// CredentialsFromEnv reads both credentials. Values are trimmed; blank values
// count as missing.
func CredentialsFromEnv() (Credentials, error) {
	email, err := requireEnv(EnvUserEmail)
	if err != nil {
		return Credentials{}, err
	}
	token, err := requireEnv(EnvUserToken)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Email: email, Token: token}, nil
}

func requireEnv(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrCredentialMissing, name)
	}
	return v, nil
}

// Client fetches goals from the API.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a goals API client. An empty apiURL uses DefaultAPIURL.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIURL returns the endpoint without credentials.
func (c *Client) APIURL() string {
	return c.apiURL
}

// Fetch returns the raw goals document. The document must be a JSON object.
func (c *Client) Fetch(ctx context.Context, creds Credentials) (map[string]any, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API URL: %w", err)
	}
	q := u.Query()
	q.Set("user_email", creds.Email)
	q.Set("user_token", creds.Token)
	u.RawQuery = q.Encode()

	slog.Info("fetching goals", "url", sanitize(u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the transport error carries the URL with the token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("connecting to the goals API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid response from the goals API: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.New("goals response is empty or not a JSON object")
	}
	return obj, nil
}

func sanitize(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}
