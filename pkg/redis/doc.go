// Package redis bootstraps the Redis client used by the distributed
// notification bus.
package redis
