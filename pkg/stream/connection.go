package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/meshly/backend/pkg/notification"
)

// framePayload is the JSON document carried on the data line of an event
// frame. Field names are part of the wire contract with clients.
type framePayload struct {
	NotificationID int64           `json:"notificationId"`
	EventType      string          `json:"eventType"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Connection is one live client stream. It exists only in memory: created
// on connect, destroyed when the transport signals closure.
type Connection struct {
	id     string
	userID string

	w       http.ResponseWriter
	flusher http.Flusher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex // serializes frame writes
	dead bool
}

// ID returns the generated connection id.
func (c *Connection) ID() string { return c.id }

// UserID returns the owning user.
func (c *Connection) UserID() string { return c.userID }

// Done is closed once the connection has been fully torn down: removed
// from the gateway registry, heartbeat stopped, no write in flight. The
// HTTP handler must not return before this fires.
func (c *Connection) Done() <-chan struct{} { return c.done }

// writeEvent writes one event frame: an id line, an event line and a data
// line, terminated by a blank line.
func (c *Connection) writeEvent(ev notification.Event) error {
	data, err := json.Marshal(framePayload{
		NotificationID: ev.ID,
		EventType:      ev.EventType,
		Payload:        ev.Payload,
		CreatedAt:      ev.CreatedAt,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return ErrConnectionClosed
	}
	if _, err := fmt.Fprintf(c.w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.EventType, data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// writeComment writes a comment-only frame. Used for the connect
// acknowledgment and for heartbeats; clients ignore these.
func (c *Connection) writeComment(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return ErrConnectionClosed
	}
	if _, err := fmt.Fprintf(c.w, ": %s\n\n", text); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// markDead stops all future writes. Taking the write mutex guarantees no
// write is in flight when this returns, so the response writer is safe to
// abandon afterwards.
func (c *Connection) markDead() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}
