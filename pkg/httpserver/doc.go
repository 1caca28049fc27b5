// Package httpserver wraps net/http with graceful shutdown, signal
// handling and a health endpoint. Write timeouts are left unset by
// default because the notification stream holds responses open
// indefinitely.
package httpserver
