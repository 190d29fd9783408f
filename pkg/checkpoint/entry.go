package checkpoint

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no checkpoint exists for the key.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidEntry indicates the stored checkpoint could not be decoded.
	ErrInvalidEntry = errors.New("invalid checkpoint entry")
)

// Entry is one stored resume point.
type Entry struct {
	// Cursor is the pagination token of the next page to fetch.
	Cursor string `json:"cursor,omitempty"`

	// LastEventAt is when the last stream event was read.
	LastEventAt time.Time `json:"last_event_at,omitempty"`

	// SavedAt is when the entry was written.
	SavedAt time.Time `json:"saved_at"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	if e.SavedAt.IsZero() {
		return 0
	}
	return time.Since(e.SavedAt)
}

// Store persists checkpoints. Implementations must be safe for concurrent use
// by independent engines.
type Store interface {
	// Get returns ErrNotFound when the key has no checkpoint.
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, entry *Entry) error
	Delete(ctx context.Context, key Key) error
}
