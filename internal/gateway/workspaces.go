// ABOUTME: Workspace CRUD handlers backed by the SQLite store
// ABOUTME: All operations are scoped to the authenticated owner

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hermeslabs/hermes-gateway/internal/auth"
	"github.com/hermeslabs/hermes-gateway/internal/store"
)

// workspaceView is the JSON shape workspaces are rendered as.
type workspaceView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewWorkspace(ws *store.Workspace) workspaceView {
	return workspaceView{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		OwnerID:     ws.OwnerID,
		CreatedAt:   ws.CreatedAt,
		UpdatedAt:   ws.UpdatedAt,
	}
}

// handleWorkspaces handles GET (list) and POST (create) on /api/workspaces.
func (g *Gateway) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := g.workspaces.ListWorkspaces(r.Context(), identity.UserID)
		if err != nil {
			g.writeMappedError(w, err)
			return
		}
		views := make([]workspaceView, 0, len(list))
		for _, ws := range list {
			views = append(views, viewWorkspace(ws))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"workspaces": views})

	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		now := time.Now().UTC()
		ws := &store.Workspace{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			OwnerID:     identity.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := g.workspaces.CreateWorkspace(r.Context(), ws); err != nil {
			g.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewWorkspace(ws))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleWorkspaceByID handles GET/PATCH/DELETE on /api/workspaces/{id}.
// A workspace owned by someone else is reported as not found rather than
// forbidden, so ids cannot be probed.
func (g *Gateway) handleWorkspaceByID(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	id := strings.TrimPrefix(r.URL.Path, "/api/workspaces/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	ws, err := g.workspaces.GetWorkspace(r.Context(), id)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}
	if ws.OwnerID != identity.UserID {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, viewWorkspace(ws))

	case http.MethodPatch:
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name != nil && *req.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}

		updated, err := g.workspaces.UpdateWorkspace(r.Context(), id, store.WorkspaceUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			g.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewWorkspace(updated))

	case http.MethodDelete:
		if err := g.workspaces.DeleteWorkspace(r.Context(), id); err != nil {
			g.writeMappedError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
