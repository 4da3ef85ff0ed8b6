// Package history records which files were loaded as the active table.
//
// Only metadata is kept (name, source, shape, who loaded it); table
// contents never leave memory. The in-memory recorder is the default.
// When a database URL is configured the Postgres recorder is used instead
// so the log survives restarts.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// List limits.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Event is one successful table load.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// ListOptions filters List. Zero values mean no filter.
type ListOptions struct {
	Limit  int
	Source string
}

// Recorder stores load events.
type Recorder interface {
	// Record appends e. A zero ID or LoadedAt is filled in.
	Record(ctx context.Context, e Event) error
	// List returns events newest first.
	List(ctx context.Context, opts ListOptions) ([]Event, error)
	// Prune deletes events loaded before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close()
}

// normalize fills defaults shared by all recorders.
func normalize(e Event) Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.LoadedAt.IsZero() {
		e.LoadedAt = time.Now().UTC()
	}
	return e
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
