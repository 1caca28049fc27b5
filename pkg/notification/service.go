package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/meshly/backend/pkg/logger"
)

// Bus replicates a persisted event to every backend instance, including
// the publishing one. Publish reports whether the event was transmitted;
// when it was, the publisher must rely on its own subscription for local
// delivery and must not dispatch directly, or clients would see the event
// twice.
type Bus interface {
	Publish(ctx context.Context, event Event) (transmitted bool, err error)
}

// Deliverer pushes a persisted event to the clients connected to this
// process. Delivery is best effort; a user with no live connections is a
// no-op and the event stays in the store for replay.
type Deliverer interface {
	PublishToUser(ctx context.Context, event Event)
}

// Service is the single publish entry point used by all producers.
type Service struct {
	store     Store
	bus       Bus
	deliverer Deliverer
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewService creates the notification service. Store and deliverer are
// required; the bus may be a local adapter that never transmits.
func NewService(store Store, bus Bus, deliverer Deliverer, opts ...ServiceOption) *Service {
	if store == nil {
		panic("notification: store cannot be nil")
	}
	if bus == nil {
		panic("notification: bus cannot be nil")
	}
	if deliverer == nil {
		panic("notification: deliverer cannot be nil")
	}

	s := &Service{
		store:     store,
		bus:       bus,
		deliverer: deliverer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PublishToUser persists the event and fans it out to live connections.
// The returned event carries its durable id, so the call is synchronous
// with respect to persistence and best effort for live push. A store
// failure propagates; bus failures degrade to direct local dispatch.
func (s *Service) PublishToUser(ctx context.Context, userID, eventType string, payload json.RawMessage) (Event, error) {
	ev, err := s.store.Append(ctx, userID, eventType, payload)
	if err != nil {
		return Event{}, err
	}

	transmitted, err := s.bus.Publish(ctx, ev)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "bus publish failed, dispatching locally",
			logger.EventID(ev.ID),
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	if !transmitted {
		s.deliverer.PublishToUser(ctx, ev)
	}

	return ev, nil
}
