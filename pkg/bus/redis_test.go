package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshly/backend/pkg/notification"
)

// refusingConnect stands in where a test must never reach Redis.
func refusingConnect(context.Context) (redis.UniversalClient, error) {
	return nil, errors.New("no redis in this test")
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	t.Run("valid payload", func(t *testing.T) {
		t.Parallel()

		raw := []byte(`{"id":42,"user_id":"U42","event_type":"chat.item.updated","payload":{"itemId":"i1"},"created_at":"2026-01-15T10:00:00Z"}`)
		ev, err := decodeEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(42), ev.ID)
		assert.Equal(t, "U42", ev.UserID)
		assert.Equal(t, "chat.item.updated", ev.EventType)
		assert.JSONEq(t, `{"itemId":"i1"}`, string(ev.Payload))
		assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), ev.CreatedAt)
	})

	t.Run("rejects non-JSON payload", func(t *testing.T) {
		t.Parallel()

		_, err := decodeEvent([]byte("not json at all"))
		require.Error(t, err)
	})

	t.Run("rejects wrong shape", func(t *testing.T) {
		t.Parallel()

		// Valid JSON, but not an event object.
		_, err := decodeEvent([]byte(`["a","b"]`))
		require.Error(t, err)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		t.Parallel()

		for name, raw := range map[string]string{
			"no id":         `{"user_id":"u1","event_type":"chat.item.updated"}`,
			"no user id":    `{"id":1,"event_type":"chat.item.updated"}`,
			"no event type": `{"id":1,"user_id":"u1"}`,
		} {
			name, raw := name, raw
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				_, err := decodeEvent([]byte(raw))
				require.ErrorIs(t, err, notification.ErrInvalidEvent)
			})
		}
	})
}

func TestNewRedisBus(t *testing.T) {
	t.Parallel()

	t.Run("panics on nil connect", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { NewRedisBus(nil) })
	})

	t.Run("channel option", func(t *testing.T) {
		t.Parallel()

		b := NewRedisBus(refusingConnect, WithChannel("custom:channel"))
		assert.Equal(t, "custom:channel", b.channel)

		b = NewRedisBus(refusingConnect, WithChannel(""))
		assert.Equal(t, DefaultChannel, b.channel)
	})

	t.Run("publish surfaces connect failure", func(t *testing.T) {
		t.Parallel()

		b := NewRedisBus(refusingConnect)
		transmitted, err := b.Publish(context.Background(), notification.Event{
			ID:        1,
			UserID:    "u1",
			EventType: "chat.item.updated",
		})
		require.ErrorIs(t, err, ErrConnect)
		assert.False(t, transmitted)
	})

	t.Run("client surfaces connect failure", func(t *testing.T) {
		t.Parallel()

		b := NewRedisBus(refusingConnect)
		_, err := b.Client(context.Background())
		require.ErrorIs(t, err, ErrConnect)

		require.NoError(t, b.Close())
		_, err = b.Client(context.Background())
		require.ErrorIs(t, err, ErrBusClosed)
	})

	t.Run("close before connect is a no-op", func(t *testing.T) {
		t.Parallel()

		b := NewRedisBus(refusingConnect)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		_, err := b.ensure(context.Background())
		require.ErrorIs(t, err, ErrBusClosed)
	})
}
