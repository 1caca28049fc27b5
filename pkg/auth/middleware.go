package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Resolver maps a bearer token to a user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (userID string, err error)
}

// StaticResolver resolves tokens from a fixed token→user map. Lookups
// compare hashes in constant time so resolution does not leak token
// prefixes through timing.
type StaticResolver struct {
	tokens map[string]string
}

// NewStaticResolver creates a resolver over a token→userID map.
func NewStaticResolver(tokens map[string]string) *StaticResolver {
	m := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		m[token] = userID
	}
	return &StaticResolver{tokens: m}
}

func (r *StaticResolver) Resolve(ctx context.Context, token string) (string, error) {
	want := sha256.Sum256([]byte(token))
	for candidate, userID := range r.tokens {
		got := sha256.Sum256([]byte(candidate))
		if subtle.ConstantTimeCompare(want[:], got[:]) == 1 {
			return userID, nil
		}
	}
	return "", ErrUnauthenticated
}

// Middleware authenticates requests via the Authorization bearer token
// and stores the resolved user id in the request context. Requests
// without a valid subject are rejected with 401 before reaching the
// handler.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}
