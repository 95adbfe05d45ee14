// ABOUTME: Error taxonomy to HTTP response mapping for the gateway boundary
// ABOUTME: Every failure becomes a structured {error, status} body, no internals leak

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hermeslabs/hermes-gateway/internal/clients"
	"github.com/hermeslabs/hermes-gateway/internal/session"
	"github.com/hermeslabs/hermes-gateway/internal/store"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured {error, status} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error":  msg,
		"status": status,
	})
}

// writeMappedError converts a domain error into its boundary response.
// Unrecognized errors become an opaque 500.
func (g *Gateway) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clients.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, "Authentication failed")
	case errors.Is(err, clients.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, clients.ErrUnavailable), errors.Is(err, session.ErrUnavailable):
		g.logger.Error("backend unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service unavailable")
	default:
		g.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
