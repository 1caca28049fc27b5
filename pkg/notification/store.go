package notification

import (
	"context"
	"encoding/json"
)

// List limits. Callers may pass any limit; the store clamps it so a single
// replay page can never exceed MaxListLimit rows.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Store is the append-only notification event log.
type Store interface {
	// Append persists the event and returns it with its assigned id.
	// A store error is fatal to the calling operation.
	Append(ctx context.Context, userID, eventType string, payload json.RawMessage) (Event, error)

	// List returns events for userID with id > afterID, ascending by id,
	// capped to the clamped limit. afterID 0 means from the beginning.
	List(ctx context.Context, userID string, afterID int64, limit int) ([]Event, error)
}

// ClampListLimit normalizes a caller-supplied page size.
// Zero or negative means "unspecified" and maps to the default.
func ClampListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
