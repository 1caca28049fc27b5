// Package stream implements the streaming gateway: the set of live SSE
// connections held by this process and the fan-out of notification events
// to them.
//
// Each connection belongs to one user and is registered in a per-user set
// keyed by a generated connection id. Writes to a single connection are
// serialized; connections are otherwise independent. A heartbeat comment
// frame keeps idle transports alive through proxies and surfaces dead
// peers via failed writes.
//
// Teardown has exactly one path: the connection context is cancelled
// (client disconnect, a failed write, gateway shutdown) and the
// per-connection goroutine unregisters the connection and stops its
// heartbeat. There is no explicit disconnect call.
package stream
