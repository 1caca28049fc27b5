package bus

import "errors"

var (
	// ErrBusClosed is returned when publishing on a closed bus.
	ErrBusClosed = errors.New("bus: closed")

	// ErrConnect wraps failures to reach the underlying channel.
	// Publish callers degrade to direct local dispatch on this error.
	ErrConnect = errors.New("bus: failed to connect")

	// ErrPublish wraps failures to transmit an event on the channel.
	ErrPublish = errors.New("bus: failed to publish")
)
