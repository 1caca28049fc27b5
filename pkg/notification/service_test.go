package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshly/backend/pkg/notification"
)

// recordingDeliverer counts local dispatches per event id.
type recordingDeliverer struct {
	mu     sync.Mutex
	events []notification.Event
}

func (d *recordingDeliverer) PublishToUser(ctx context.Context, ev notification.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *recordingDeliverer) delivered() []notification.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Event(nil), d.events...)
}

// stubBus reports a fixed publish outcome.
type stubBus struct {
	transmitted bool
	err         error
}

func (b *stubBus) Publish(ctx context.Context, ev notification.Event) (bool, error) {
	return b.transmitted, b.err
}

// failingStore simulates an unreachable backing store.
type failingStore struct{ err error }

func (s *failingStore) Append(ctx context.Context, userID, eventType string, payload json.RawMessage) (notification.Event, error) {
	return notification.Event{}, s.err
}

func (s *failingStore) List(ctx context.Context, userID string, afterID int64, limit int) ([]notification.Event, error) {
	return nil, s.err
}

// fakeNetwork simulates the distributed bus: every instance's publish is
// received by every instance's handlers, the publisher included, through
// its own subscription.
type fakeNetwork struct {
	mu        sync.Mutex
	instances []*fakeInstance
}

type fakeInstance struct {
	net      *fakeNetwork
	mu       sync.Mutex
	handlers []func(context.Context, notification.Event)
}

func (n *fakeNetwork) instance() *fakeInstance {
	inst := &fakeInstance{net: n}
	n.mu.Lock()
	n.instances = append(n.instances, inst)
	n.mu.Unlock()
	return inst
}

func (i *fakeInstance) Publish(ctx context.Context, ev notification.Event) (bool, error) {
	i.net.mu.Lock()
	instances := append([]*fakeInstance(nil), i.net.instances...)
	i.net.mu.Unlock()

	for _, inst := range instances {
		inst.mu.Lock()
		handlers := append(([]func(context.Context, notification.Event))(nil), inst.handlers...)
		inst.mu.Unlock()
		for _, h := range handlers {
			h(ctx, ev)
		}
	}
	return true, nil
}

func (i *fakeInstance) RegisterHandler(h func(context.Context, notification.Event)) {
	i.mu.Lock()
	i.handlers = append(i.handlers, h)
	i.mu.Unlock()
}

func TestServicePublishToUser(t *testing.T) {
	t.Parallel()

	t.Run("persists and dispatches locally when bus does not transmit", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		deliverer := &recordingDeliverer{}
		svc := notification.NewService(store, &stubBus{transmitted: false}, deliverer)

		ev, err := svc.PublishToUser(context.Background(), "u1", "chat.item.updated", json.RawMessage(`{"itemId":"i1"}`))
		require.NoError(t, err)
		assert.Positive(t, ev.ID)

		delivered := deliverer.delivered()
		require.Len(t, delivered, 1)
		assert.Equal(t, ev.ID, delivered[0].ID)

		// The event is durable regardless of live delivery.
		events, err := store.List(context.Background(), "u1", 0, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("succeeds with zero live connections in local mode", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		svc := notification.NewService(store, &stubBus{transmitted: false}, &recordingDeliverer{})

		_, err := svc.PublishToUser(context.Background(), "nobody-connected", "model.ready", nil)
		require.NoError(t, err)
	})

	t.Run("skips direct dispatch after a transmitted publish", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		deliverer := &recordingDeliverer{}
		svc := notification.NewService(store, &stubBus{transmitted: true}, deliverer)

		_, err := svc.PublishToUser(context.Background(), "u1", "chat.item.updated", nil)
		require.NoError(t, err)
		assert.Empty(t, deliverer.delivered())
	})

	t.Run("degrades to local dispatch on bus failure", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		deliverer := &recordingDeliverer{}
		svc := notification.NewService(store, &stubBus{err: errors.New("redis unreachable")}, deliverer)

		ev, err := svc.PublishToUser(context.Background(), "u1", "chat.item.updated", nil)
		require.NoError(t, err, "bus failure must not fail the publish")
		assert.Positive(t, ev.ID)
		assert.Len(t, deliverer.delivered(), 1)
	})

	t.Run("propagates store failure without dispatch", func(t *testing.T) {
		t.Parallel()

		storeErr := errors.New("connection refused")
		deliverer := &recordingDeliverer{}
		svc := notification.NewService(&failingStore{err: storeErr}, &stubBus{}, deliverer)

		_, err := svc.PublishToUser(context.Background(), "u1", "chat.item.updated", nil)
		require.ErrorIs(t, err, storeErr)
		assert.Empty(t, deliverer.delivered())
	})

	t.Run("store preserves call order by ascending id", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryStore()
		svc := notification.NewService(store, &stubBus{}, &recordingDeliverer{})

		for i := 0; i < 20; i++ {
			_, err := svc.PublishToUser(context.Background(), "u1", "chat.item.updated", json.RawMessage(`{}`))
			require.NoError(t, err, "publish %d", i)
		}

		events, err := store.List(context.Background(), "u1", 0, 100)
		require.NoError(t, err)
		require.Len(t, events, 20)
		for i := 1; i < len(events); i++ {
			assert.Equal(t, events[i-1].ID+1, events[i].ID, "gap or duplicate at %d", i)
		}
	})
}

func TestServiceDistributedFanOut(t *testing.T) {
	t.Parallel()

	// Two simulated process instances share one store and one fake
	// channel. An event published on A must reach B's handler, and A
	// must not dispatch locally a second time on top of hearing its own
	// subscription.
	store := notification.NewMemoryStore()
	network := &fakeNetwork{}

	busA, busB := network.instance(), network.instance()
	gatewayA, gatewayB := &recordingDeliverer{}, &recordingDeliverer{}

	busA.RegisterHandler(func(ctx context.Context, ev notification.Event) { gatewayA.PublishToUser(ctx, ev) })
	busB.RegisterHandler(func(ctx context.Context, ev notification.Event) { gatewayB.PublishToUser(ctx, ev) })

	svcA := notification.NewService(store, busA, gatewayA)

	ev, err := svcA.PublishToUser(context.Background(), "u1", "chat.item.updated", json.RawMessage(`{"itemId":"i1"}`))
	require.NoError(t, err)

	require.Len(t, gatewayB.delivered(), 1, "instance B must observe the event")
	assert.Equal(t, ev.ID, gatewayB.delivered()[0].ID)

	require.Len(t, gatewayA.delivered(), 1, "publisher must deliver exactly once, via its own subscription")
	assert.Equal(t, ev.ID, gatewayA.delivered()[0].ID)
}
