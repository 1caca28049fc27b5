package auth

import "errors"

// ErrUnauthenticated is returned when no valid subject can be resolved.
var ErrUnauthenticated = errors.New("auth: unauthenticated")
