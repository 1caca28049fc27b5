package httpserver

import "errors"

var (
	// ErrStart wraps failures to start or run the server.
	ErrStart = errors.New("httpserver: failed to start")

	// ErrShutdown wraps failures during graceful shutdown.
	ErrShutdown = errors.New("httpserver: failed to shut down")
)
