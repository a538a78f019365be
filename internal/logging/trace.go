package logging

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run IDs tie together the log events of one simulation.

type contextKey string

const runIDKey contextKey = "run_id"

// NewRunID generates a sortable run ID (26 chars, ULID).
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// WithRunID adds a run ID to context.
// If id is empty, generates a new one.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewRunID()
	}
	return context.WithValue(ctx, runIDKey, id)
}

// GetRunID extracts the run ID from context.
// Returns empty string if not present.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger for component tagged with the context's run.
func FromContext(ctx context.Context, component string) *Logger {
	return New(component).WithRun(GetRunID(ctx))
}
