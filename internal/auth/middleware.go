package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// errNoToken marks a request with no bearer token at all, as opposed to one
// that carried an invalid token. Both map to the same 401 response.
var errNoToken = errors.New("auth: no bearer token")

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// caller identity in a request context — no collisions with other packages.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is a middleware that enforces authentication on protected
// routes.
//
// It reads the access token from the "Authorization: Bearer <token>" header,
// validates it, and stores the caller's Identity in the request context. A
// missing, malformed, expired or tampered token yields the same uniform
// 401 — the response does not distinguish why authentication failed.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := extractIdentity(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context.
//
// Returns (Identity{}, false) if the request carried no valid token.
//
// Usage in handlers:
//
//	caller, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // unauthenticated — should not happen behind RequireAuth
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.ID != ""
}

// extractIdentity reads and validates the bearer token.
func extractIdentity(r *http.Request, tokens *TokenService) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, errNoToken
	}

	return tokens.ValidateAccess(token)
}
