package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mtlprog/tracker/internal/domain"
)

// ErrMalformed indicates that a document is not a usable portfolio snapshot.
var ErrMalformed = errors.New("malformed snapshot")

// ValidationError lists every structural problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid snapshot structure: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrMalformed
}

// Decode reads a snapshot document, checks its structure and decodes it.
// Keys the dashboard can default (currency, source, charts) may be absent.
func Decode(r io.Reader) (domain.Snapshot, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return decode(body, false)
}

// DecodeStrict is Decode with every top-level key required, as the publishing
// pipeline guarantees.
func DecodeStrict(r io.Reader) (domain.Snapshot, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	return decode(body, true)
}

// ValidateFile strictly validates the snapshot stored at path.
func ValidateFile(path string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return DecodeStrict(f)
}

func decode(body []byte, strict bool) (domain.Snapshot, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: parsing JSON: %v", ErrMalformed, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: document is not a JSON object", ErrMalformed)
	}
	if err := Validate(obj, strict); err != nil {
		return domain.Snapshot{}, err
	}

	var snap domain.Snapshot
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: decoding: %v", ErrMalformed, err)
	}
	return snap, nil
}
