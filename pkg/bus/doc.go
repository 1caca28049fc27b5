// Package bus provides the inter-process fan-out channel for notification
// events.
//
// Two adapters implement the same contract, selected by configuration:
//
//   - LocalBus never transmits. Publish always reports the event was not
//     transmitted, so the caller performs direct local dispatch. This is
//     the single-instance deployment mode.
//   - RedisBus serializes events onto a shared Redis pub/sub channel.
//     Every process, the publisher included, receives the event through
//     one subscription established lazily per process. After a successful
//     publish the publishing process must rely on that subscription for
//     local delivery; dispatching directly as well would deliver twice.
//
// Connection setup is single-flight: concurrent first callers share one
// in-flight attempt. Malformed payloads read off the channel are dropped
// and logged, never raised: they arrive across a trust boundary shared
// between process versions during rolling deploys.
package bus
