// ABOUTME: HTTP middleware for bearer-token authentication on API endpoints
// ABOUTME: Validates the JWT, cross-checks the session store, and attaches Identity

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hermeslabs/hermes-gateway/internal/session"
)

// TokenValidator verifies a token string and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// SessionReader looks up the live session record for a subject.
type SessionReader interface {
	Get(ctx context.Context, subject string) (*session.Record, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeError writes a structured {error, status} body. All auth failures go
// through here so the response shape stays uniform and no token detail leaks.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  msg,
		"status": status,
	})
}

// Middleware creates an HTTP middleware that authenticates every request.
// It extracts the bearer token, validates it, and cross-checks the session
// store: a request is rejected when the subject has no session record or
// when the record's jti no longer matches the token's, so logout and
// refresh revoke earlier tokens before their natural expiry. A session
// store outage yields 503 rather than granting access.
func Middleware(validator TokenValidator, sessions SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeError(w, http.StatusUnauthorized, errMsg)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			rec, err := sessions.Get(r.Context(), claims.Subject)
			if errors.Is(err, session.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if err != nil {
				logger.Error("session lookup failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}

			if rec.TokenID != claims.ID {
				// A newer login or refresh superseded this token
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			identity := &Identity{
				UserID:  claims.Subject,
				Email:   claims.Email,
				Name:    rec.Name,
				Role:    claims.Role,
				TokenID: claims.ID,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
