// Package auth resolves the authenticated subject for incoming requests
// and carries it through the request context.
//
// Identity management itself lives outside this service; the middleware
// here only maps a bearer token to a user id via a Resolver. The static
// resolver covers service-to-service tokens and tests; a production
// deployment plugs in a resolver backed by the session service.
package auth
