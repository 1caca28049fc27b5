// Package notification implements the durable notification event log and
// the publish entry point used by every producer in the backend.
//
// Events are appended to a single globally ordered log and filtered per
// user on read. The Service persists first, then hands the event to the
// bus for cross-instance fan-out; when the bus reports the event was not
// transmitted it dispatches directly to the local streaming gateway.
// Live delivery is best effort; durability and resume come from the log.
//
// Basic usage:
//
//	store := notification.NewPgStore(pool)
//	svc := notification.NewService(store, bus, gateway)
//
//	ev, err := svc.PublishToUser(ctx, userID, "chat.item.updated", payload)
package notification
