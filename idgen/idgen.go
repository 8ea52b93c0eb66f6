// Package idgen names acquisition runs.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunPrefix starts every run id.
const RunPrefix = "run_"

// Generator yields a new identifier on each call.
type Generator func() string

// UUIDv7 yields time-ordered RFC 9562 UUIDs, so run ids sort by start time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// WithPrefix prepends prefix to the ids of gen.
func WithPrefix(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}

// Static always yields id. Used to pin run ids in tests and reports.
func Static(id string) Generator {
	return func() string { return id }
}

// RunID is the generator the acquirer uses by default.
var RunID = WithPrefix(RunPrefix, UUIDv7())

// ParseRunID checks that id was produced by RunID and returns its UUID.
func ParseRunID(id string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(id, RunPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("idgen: run id %q lacks prefix %q", id, RunPrefix)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("idgen: run id %q: %w", id, err)
	}
	if u.Version() != 7 {
		return uuid.Nil, fmt.Errorf("idgen: run id %q: not a v7 uuid", id)
	}
	return u, nil
}
