package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDataUnavailable is returned when no candidate endpoint produced a snapshot.
var ErrDataUnavailable = errors.New("portfolio data unavailable")

// Attempt records why one endpoint failed.
type Attempt struct {
	Endpoint string
	Reason   string
}

// UnavailableError aggregates every failed attempt of one load.
type UnavailableError struct {
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrDataUnavailable.Error() + ": no endpoints to try"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s)", a.Endpoint, a.Reason)
	}
	return fmt.Sprintf("%s: all %d endpoints failed: %s",
		ErrDataUnavailable.Error(), len(e.Attempts), strings.Join(parts, "; "))
}

func (e *UnavailableError) Unwrap() error {
	return ErrDataUnavailable
}
