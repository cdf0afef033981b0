package prefs

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Fixed keys of the values the dashboard persists.
const (
	KeyLastEndpoint    = "portfolioTracker:lastDataEndpoint"
	KeyRepoBranches    = "portfolioTracker:repoBranches"
	KeyLastGeneratedAt = "portfolioTracker:lastGeneratedAt"
)

// Preferences gives typed access to the persisted values. Storage failures are
// logged and treated as absent values; they never fail the caller.
type Preferences struct {
	store Store
}

// New wraps store. A nil store falls back to memory.
func New(store Store) *Preferences {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Preferences{store: store}
}

func (p *Preferences) get(ctx context.Context, key string) string {
	v, ok, err := p.store.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read preference", "key", key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (p *Preferences) set(ctx context.Context, key, value string) {
	if value == "" {
		return
	}
	if err := p.store.Set(ctx, key, value); err != nil {
		slog.Warn("failed to write preference", "key", key, "error", err)
	}
}

// LastEndpoint returns the data URL that last served a snapshot, or "".
func (p *Preferences) LastEndpoint(ctx context.Context) string {
	return p.get(ctx, KeyLastEndpoint)
}

// SetLastEndpoint records the data URL that served the latest snapshot.
func (p *Preferences) SetLastEndpoint(ctx context.Context, endpoint string) {
	p.set(ctx, KeyLastEndpoint, endpoint)
}

// Branch returns the last branch known to host the data file for repo, or "".
func (p *Preferences) Branch(ctx context.Context, repo string) string {
	return p.branches(ctx)[normalizeRepo(repo)]
}

// SetBranch records the branch that served the data file for repo.
func (p *Preferences) SetBranch(ctx context.Context, repo, branch string) {
	if repo == "" || branch == "" {
		return
	}
	branches := p.branches(ctx)
	key := normalizeRepo(repo)
	if branches[key] == branch {
		return
	}
	branches[key] = branch

	data, err := json.Marshal(branches)
	if err != nil {
		slog.Warn("failed to encode branch preferences", "error", err)
		return
	}
	p.set(ctx, KeyRepoBranches, string(data))
}

func (p *Preferences) branches(ctx context.Context) map[string]string {
	branches := make(map[string]string)
	raw := p.get(ctx, KeyRepoBranches)
	if raw == "" {
		return branches
	}
	if err := json.Unmarshal([]byte(raw), &branches); err != nil {
		slog.Warn("ignoring unreadable branch preferences", "error", err)
		return make(map[string]string)
	}
	return branches
}

// LastGeneratedAt returns the generation timestamp of the last rendered snapshot.
func (p *Preferences) LastGeneratedAt(ctx context.Context) string {
	return p.get(ctx, KeyLastGeneratedAt)
}

// SetGeneratedAt overwrites the stored generation timestamp. Empty values are ignored.
func (p *Preferences) SetGeneratedAt(ctx context.Context, generatedAt string) {
	p.set(ctx, KeyLastGeneratedAt, generatedAt)
}

func normalizeRepo(repo string) string {
	return strings.ToLower(strings.TrimSpace(repo))
}
