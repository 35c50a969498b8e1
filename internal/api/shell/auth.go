package shell

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	// PlayerTokenHeader is the header name for control authentication token.
	PlayerTokenHeader = "X-Player-Token"

	// TokenQueryParam carries the token on WebSocket upgrades, where browsers
	// cannot set headers.
	TokenQueryParam = "token"
)

// requireToken creates a middleware that validates the control token from the
// X-Player-Token header, a bearer Authorization header or the token query
// parameter. An empty token disables the check.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from headers
			got := r.Header.Get(PlayerTokenHeader)
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if got == "" {
				got = r.URL.Query().Get(TokenQueryParam)
			}

			// Validate token
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, ControlResponse{Success: false, Message: "unauthenticated"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
