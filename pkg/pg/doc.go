// Package pg bootstraps the PostgreSQL connection pool, applies schema
// migrations and provides error helpers shared by all stores.
package pg
