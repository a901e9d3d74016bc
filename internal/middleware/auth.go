// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tomtom215/archivus/internal/logging"
)

// BearerAuth guards the API with a static token. Requests must carry
// an "Authorization: Bearer <token>" header. When no token is
// configured the middleware is a pass-through, which suits single-user
// deployments behind a private network.
//
// Tokens are hashed before comparison so the check is constant-time
// regardless of the length of what the client sent.
func BearerAuth(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	expected := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := sha256.Sum256([]byte(bearerToken(r)))
			if subtle.ConstantTimeCompare(expected[:], presented[:]) != 1 {
				logging.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("remote_addr", r.RemoteAddr).
					Msg("Rejected API request with missing or invalid token")

				w.Header().Set("WWW-Authenticate", `Bearer realm="archivus"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
// Returns empty string when the header is absent or not Bearer-shaped.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
