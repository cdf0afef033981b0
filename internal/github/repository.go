package github

import (
	"fmt"
	"strings"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses an "owner/repo" identifier.
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	owner = strings.TrimSpace(owner)
	name = strings.TrimSuffix(strings.TrimSpace(name), ".git")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("invalid repository %q, expected owner/repo", s)
	}
	return Repository{Owner: owner, Name: name}, nil
}

// String returns the "owner/repo" form.
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// IsZero reports whether no repository is set.
func (r Repository) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}

// Equal compares repositories case-insensitively, as GitHub does.
func (r Repository) Equal(other Repository) bool {
	return strings.EqualFold(r.Owner, other.Owner) && strings.EqualFold(r.Name, other.Name)
}
