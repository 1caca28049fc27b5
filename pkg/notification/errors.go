package notification

import "errors"

var (
	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("notification: invalid event")

	// ErrEmptyUserID is returned when an operation is attempted without a user id.
	ErrEmptyUserID = errors.New("notification: user id is required")

	// ErrEmptyEventType is returned when publishing without an event type.
	ErrEmptyEventType = errors.New("notification: event type is required")

	// ErrStoreFailure wraps persistence errors. Writes never drop silently;
	// the producer decides whether to retry the whole publish.
	ErrStoreFailure = errors.New("notification: store operation failed")
)
