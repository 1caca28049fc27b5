package notification

import (
	"encoding/json"
	"time"
)

// Event is a single entry in the notification log. Events are immutable
// after creation except for ReadAt, which is set by the read-receipt flow.
type Event struct {
	// ID is assigned by the store and is strictly monotonically increasing
	// across all users. Per-user views are increasing subsequences of it.
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
}

// Validate checks the fields required for an event to be dispatchable.
// Events arriving from the inter-process bus are validated with this before
// fan-out; anything failing here is dropped rather than raised, since bus
// payloads cross process versions during rolling deploys.
func (e Event) Validate() error {
	if e.ID <= 0 {
		return ErrInvalidEvent
	}
	if e.UserID == "" {
		return ErrInvalidEvent
	}
	if e.EventType == "" {
		return ErrInvalidEvent
	}
	return nil
}
