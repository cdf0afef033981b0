// Package endpoint resolves the ordered list of URLs the snapshot may be
// fetched from.
package endpoint

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/tracker/internal/github"
	"github.com/mtlprog/tracker/internal/prefs"
)

// Branches tried after every discovered or remembered branch.
var fallbackBranches = []string{"main", "master"}

// BranchDiscoverer looks up the default branch of a repository.
type BranchDiscoverer interface {
	DefaultBranch(ctx context.Context, repo github.Repository) (string, bool)
}

// Config is the page-level configuration of the resolver.
type Config struct {
	Repository string // optional "owner/repo"
	Branch     string // optional
	RawURL     string // raw content host, e.g. https://raw.githubusercontent.com
	BaseURL    string // base of the bundled local copy
	DataPath   string // path of the data file inside the repository and under BaseURL
}

// Remote is a branch-qualified raw content URL broken into its parts.
type Remote struct {
	Repo   github.Repository
	Branch string
}

// Resolver produces candidate data URLs, most likely to succeed first.
type Resolver struct {
	cfg       Config
	repo      github.Repository
	local     string
	discovery BranchDiscoverer
	prefs     *prefs.Preferences
}

// NewResolver creates a resolver. An invalid repository is logged and treated
// as absent. discovery and p may be nil.
func NewResolver(cfg Config, discovery BranchDiscoverer, p *prefs.Preferences) *Resolver {
	cfg.RawURL = strings.TrimRight(cfg.RawURL, "/")
	cfg.DataPath = strings.TrimLeft(cfg.DataPath, "/")
	if p == nil {
		p = prefs.New(nil)
	}

	r := &Resolver{
		cfg:       cfg,
		local:     localURL(cfg.BaseURL, cfg.DataPath),
		discovery: discovery,
		prefs:     p,
	}
	if cfg.Repository != "" {
		repo, err := github.ParseRepository(cfg.Repository)
		if err != nil {
			slog.Warn("ignoring source repository", "error", err)
		} else {
			r.repo = repo
		}
	}
	return r
}

func localURL(base, path string) string {
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return path
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + path
	}
	return baseURL.ResolveReference(ref).String()
}

// LocalURL returns the URL of the bundled local copy.
func (r *Resolver) LocalURL() string {
	return r.local
}

// Repository returns the configured repository and whether one is set.
func (r *Resolver) Repository() (github.Repository, bool) {
	return r.repo, !r.repo.IsZero()
}

// RemoteURL builds the raw content URL of the data file on branch.
func (r *Resolver) RemoteURL(repo github.Repository, branch string) string {
	return r.cfg.RawURL + "/" + repo.Owner + "/" + repo.Name + "/" + branch + "/" + r.cfg.DataPath
}

// ParseRemote recovers the repository and branch from a URL built by
// RemoteURL. Branch names may contain slashes.
func (r *Resolver) ParseRemote(rawURL string) (Remote, bool) {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	rest, ok := strings.CutPrefix(rawURL, r.cfg.RawURL+"/")
	if !ok {
		return Remote{}, false
	}
	rest, ok = strings.CutSuffix(rest, "/"+r.cfg.DataPath)
	if !ok {
		return Remote{}, false
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || lo.Contains(parts, "") {
		return Remote{}, false
	}
	return Remote{
		Repo:   github.Repository{Owner: parts[0], Name: parts[1]},
		Branch: parts[2],
	}, true
}

// Resolve returns the deduplicated candidate URLs in priority order: the last
// successful endpoint when it belongs to the configured source, remote URLs
// for the remembered, configured, discovered and fallback branches, then the
// local copy. Without a repository only the local copy is returned.
func (r *Resolver) Resolve(ctx context.Context) []string {
	if r.repo.IsZero() {
		return []string{r.local}
	}

	var candidates []string
	if stored := r.prefs.LastEndpoint(ctx); stored != "" && r.belongs(stored) {
		candidates = append(candidates, stored)
	}

	for _, branch := range r.branches(ctx) {
		candidates = append(candidates, r.RemoteURL(r.repo, branch))
	}
	candidates = append(candidates, r.local)

	return lo.Uniq(candidates)
}

func (r *Resolver) belongs(endpoint string) bool {
	if endpoint == r.local {
		return true
	}
	remote, ok := r.ParseRemote(endpoint)
	return ok && remote.Repo.Equal(r.repo)
}

func (r *Resolver) branches(ctx context.Context) []string {
	branches := []string{
		r.prefs.Branch(ctx, r.repo.String()),
		strings.TrimSpace(r.cfg.Branch),
	}
	if r.discovery != nil {
		if branch, ok := r.discovery.DefaultBranch(ctx, r.repo); ok {
			branches = append(branches, branch)
		}
	}
	branches = append(branches, fallbackBranches...)
	return lo.Uniq(lo.Compact(branches))
}
