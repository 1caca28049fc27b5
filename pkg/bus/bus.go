package bus

import (
	"context"

	"github.com/meshly/backend/pkg/notification"
)

// Handler is invoked for every event the adapter receives through its
// subscription. Handlers must not block; slow fan-out stalls every
// subsequent event on the channel.
type Handler func(ctx context.Context, event notification.Event)

// Bus fans persisted events out across backend instances.
type Bus interface {
	// Publish sends the event on the shared channel and reports whether it
	// was transmitted. When transmitted is false the caller must dispatch
	// to local connections itself.
	Publish(ctx context.Context, event notification.Event) (transmitted bool, err error)

	// RegisterHandler adds a callback for events received via subscription.
	// It never blocks on connection setup and never fails synchronously;
	// setup errors surface on the next Publish call.
	RegisterHandler(h Handler)

	// Close tears down the subscription and the underlying connection.
	Close() error
}
