package bus

import (
	"context"

	"github.com/meshly/backend/pkg/notification"
)

// LocalBus is the no-op adapter for single-instance deployments.
// Publish never transmits, so the caller always dispatches locally.
type LocalBus struct{}

// NewLocalBus creates the no-op bus adapter.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(ctx context.Context, event notification.Event) (bool, error) {
	return false, nil
}

// RegisterHandler does nothing; there is no subscription in local mode.
func (b *LocalBus) RegisterHandler(h Handler) {}

func (b *LocalBus) Close() error { return nil }
