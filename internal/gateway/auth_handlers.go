// ABOUTME: HTTP handlers for the login/refresh/logout flow
// ABOUTME: Orchestrates the identity service, token issuance, and session recording

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hermeslabs/hermes-gateway/internal/auth"
	"github.com/hermeslabs/hermes-gateway/internal/clients"
	"github.com/hermeslabs/hermes-gateway/internal/session"
)

// LoginRequest is the JSON request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserInfo is the profile block returned by login and /me.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginResponse is the JSON response for POST /api/auth/login.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// RefreshRequest is the JSON request body for POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is the JSON response for POST /api/auth/refresh.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// handleLogin handles POST /api/auth/login.
//
// Credential verification is delegated to the identity service; a rejection
// is reported as a uniform authentication failure that never reveals which
// field was wrong. On success a token pair is issued and the session record
// written with a TTL matching the access token. A session write failure
// aborts the login: no token leaves the gateway without a recorded session.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := g.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, clients.ErrUnavailable) {
			g.writeMappedError(w, err)
		} else {
			g.metrics.loginsTotal.WithLabelValues("failure").Inc()
			writeError(w, http.StatusUnauthorized, "Authentication failed")
		}
		return
	}

	pair, err := g.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}

	rec := &session.Record{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    user.Role,
		TokenID: pair.AccessTokenID,
	}
	if err := g.sessions.Put(r.Context(), rec, time.Duration(pair.ExpiresIn)*time.Second); err != nil {
		// Fail closed: a token without a session record would be
		// unrevocable
		g.writeMappedError(w, err)
		return
	}

	g.metrics.loginsTotal.WithLabelValues("success").Inc()
	g.logger.Info("user logged in", "user_id", user.ID)

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	})
}

// handleRefresh handles POST /api/auth/refresh.
//
// The presented refresh token only needs a valid signature and unexpired
// claims; it is exchanged for a brand-new pair for the same subject. The
// session record is overwritten with the new access jti, so the pre-refresh
// access token immediately fails the middleware cross-check.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	claims, err := g.issuer.Validate(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	pair, err := g.issuer.Issue(claims.Subject, claims.Email, claims.Role)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}

	// Preserve the display name from the existing record when there is one
	name := ""
	if prev, err := g.sessions.Get(r.Context(), claims.Subject); err == nil {
		name = prev.Name
	}

	rec := &session.Record{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    name,
		Role:    claims.Role,
		TokenID: pair.AccessTokenID,
	}
	if err := g.sessions.Put(r.Context(), rec, time.Duration(pair.ExpiresIn)*time.Second); err != nil {
		g.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// handleLogout handles POST /api/auth/logout. Deleting the session record
// revokes the current tokens: the middleware cross-check fails for any
// token the subject still holds.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity := auth.FromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := g.sessions.Delete(r.Context(), identity.UserID); err != nil {
		g.writeMappedError(w, err)
		return
	}

	g.logger.Info("user logged out", "user_id", identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/auth/me, returning the identity the middleware
// attached.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	identity := auth.FromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, UserInfo{
		ID:    identity.UserID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
	})
}
