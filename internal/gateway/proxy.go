// ABOUTME: Pass-through handlers for the execution and memory backends
// ABOUTME: Authenticated requests are forwarded with gateway error mapping

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hermeslabs/hermes-gateway/internal/clients"
)

// handleExecutions handles POST /api/executions (create).
func (g *Gateway) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req clients.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Language == "" {
		writeError(w, http.StatusBadRequest, "code and language are required")
		return
	}

	exec, err := g.controlPlane.CreateExecution(r.Context(), &req)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exec)
}

// handleExecutionByID dispatches /api/executions/{id}, /api/executions/{id}/logs,
// and /api/executions/{id}/cancel.
func (g *Gateway) handleExecutionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/executions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "execution id is required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		exec, err := g.controlPlane.GetExecution(r.Context(), id)
		if err != nil {
			g.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exec)

	case action == "logs" && r.Method == http.MethodGet:
		logs, err := g.controlPlane.GetExecutionLogs(r.Context(), id)
		if err != nil {
			g.writeMappedError(w, err)
			return
		}
		if logs == nil {
			logs = []clients.ExecutionLog{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})

	case action == "cancel" && r.Method == http.MethodPost:
		if err := g.controlPlane.CancelExecution(r.Context(), id); err != nil {
			g.writeMappedError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMemoryStore handles POST /api/memory/store.
func (g *Gateway) handleMemoryStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req clients.StoreMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "namespace and content are required")
		return
	}

	id, err := g.memory.Store(r.Context(), &req)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleMemorySearch handles POST /api/memory/search.
func (g *Gateway) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req clients.SearchMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "namespace and query are required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := g.memory.Search(r.Context(), &req)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}
	if results == nil {
		results = []clients.MemoryResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// handleMemoryQuery handles POST /api/memory/query. The backend response is
// passed through verbatim since the query shape is backend-defined.
func (g *Gateway) handleMemoryQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Namespace string `json:"namespace"`
		OmniQuery string `json:"omni_query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Namespace == "" || req.OmniQuery == "" {
		writeError(w, http.StatusBadRequest, "namespace and omni_query are required")
		return
	}

	raw, err := g.memory.Query(r.Context(), req.Namespace, req.OmniQuery)
	if err != nil {
		g.writeMappedError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
