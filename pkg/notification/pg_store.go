package notification

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the production Store backed by PostgreSQL. The BIGSERIAL
// primary key of notification_events provides the global total order:
// a single sequence hands out ids in commit order across all users.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a Store over an existing connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	if pool == nil {
		panic("notification: pool cannot be nil")
	}
	return &PgStore{pool: pool}
}

func (s *PgStore) Append(ctx context.Context, userID, eventType string, payload json.RawMessage) (Event, error) {
	if userID == "" {
		return Event{}, ErrEmptyUserID
	}
	if eventType == "" {
		return Event{}, ErrEmptyEventType
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	ev := Event{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO notification_events (user_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		userID, eventType, payload,
	)
	if err := row.Scan(&ev.ID, &ev.CreatedAt); err != nil {
		return Event{}, errors.Join(ErrStoreFailure, err)
	}

	return ev, nil
}

func (s *PgStore) List(ctx context.Context, userID string, afterID int64, limit int) ([]Event, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if afterID < 0 {
		afterID = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, event_type, payload, created_at, read_at
		FROM notification_events
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`,
		userID, afterID, ClampListLimit(limit),
	)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.ReadAt); err != nil {
			return nil, errors.Join(ErrStoreFailure, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	return events, nil
}
