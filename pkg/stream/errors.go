package stream

import "errors"

var (
	// ErrGatewayClosed is returned when connecting to a shut-down gateway.
	ErrGatewayClosed = errors.New("stream: gateway is closed")

	// ErrStreamingUnsupported is returned when the response writer cannot
	// flush, which SSE requires.
	ErrStreamingUnsupported = errors.New("stream: transport does not support streaming")

	// ErrConnectionClosed is returned from writes to a torn-down connection.
	ErrConnectionClosed = errors.New("stream: connection is closed")

	// ErrReplayFailed wraps a write failure while flushing the replay
	// backlog during connect.
	ErrReplayFailed = errors.New("stream: failed to flush replay backlog")
)
