// Package logger provides the shared slog construction and the typed
// attribute helpers used across the backend, keeping attribute keys
// consistent between services.
package logger
