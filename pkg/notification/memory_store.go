package notification

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
// Suitable for development and testing; ids come from a single counter
// under the store mutex, mirroring the database sequence semantics.
type MemoryStore struct {
	events map[string][]Event // userID -> events, ascending by id
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]Event),
	}
}

func (s *MemoryStore) Append(ctx context.Context, userID, eventType string, payload json.RawMessage) (Event, error) {
	if userID == "" {
		return Event{}, ErrEmptyUserID
	}
	if eventType == "" {
		return Event{}, ErrEmptyEventType
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ev := Event{
		ID:        s.nextID,
		UserID:    userID,
		EventType: eventType,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: time.Now(),
	}
	s.events[userID] = append(s.events[userID], ev)

	return ev, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string, afterID int64, limit int) ([]Event, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if afterID < 0 {
		afterID = 0
	}
	limit = ClampListLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[userID]

	// Events are stored in append order, which is id order.
	start := sort.Search(len(all), func(i int) bool { return all[i].ID > afterID })

	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	// Copy so callers cannot mutate stored entries.
	out := make([]Event, end-start)
	copy(out, all[start:end])

	return out, nil
}
