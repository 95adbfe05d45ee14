// ABOUTME: Tests for the backend service clients
// ABOUTME: Runs against httptest servers, covering success paths and error mapping

package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityClientAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/authenticate", r.URL.Path)

		var req authenticateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Email != "ada@example.com" || req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(authenticateResponse{User: User{
			ID:    "user-123",
			Email: req.Email,
			Name:  "Ada Lovelace",
			Role:  "admin",
		}})
	}))
	defer srv.Close()

	client := NewIdentityClient(srv.URL)

	user, err := client.Authenticate(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "Ada Lovelace", user.Name)

	_, err = client.Authenticate(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestIdentityClientUnavailable(t *testing.T) {
	// Server errors and a dead endpoint both surface as ErrUnavailable,
	// never as a credential rejection
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	client := NewIdentityClient(srv.URL)

	_, err := client.Authenticate(context.Background(), "ada@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = client.Authenticate(context.Background(), "ada@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestControlPlaneClientLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /v1/executions":
			var req ExecutionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "print(1)", req.Code)
			json.NewEncoder(w).Encode(Execution{ID: "exec-1", Status: "queued"})
		case "GET /v1/executions/exec-1":
			json.NewEncoder(w).Encode(Execution{ID: "exec-1", Status: "running"})
		case "GET /v1/executions/exec-1/logs":
			json.NewEncoder(w).Encode(map[string][]ExecutionLog{"logs": {
				{Timestamp: "2026-03-01T12:00:00Z", Level: "info", Message: "started"},
			}})
		case "POST /v1/executions/exec-1/cancel":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewControlPlaneClient(srv.URL)
	ctx := context.Background()

	exec, err := client.CreateExecution(ctx, &ExecutionRequest{Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	assert.Equal(t, "exec-1", exec.ID)

	exec, err = client.GetExecution(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, "running", exec.Status)

	logs, err := client.GetExecutionLogs(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "started", logs[0].Message)

	require.NoError(t, client.CancelExecution(ctx, "exec-1"))

	_, err = client.GetExecution(ctx, "exec-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/memory/store":
			json.NewEncoder(w).Encode(map[string]string{"id": "mem-1"})
		case "/v1/memory/search":
			var req SearchMemoryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "notes", req.Namespace)
			json.NewEncoder(w).Encode(map[string][]MemoryResult{"results": {
				{ID: "mem-1", Content: "hello", Score: 0.9},
			}})
		case "/v1/memory/query":
			json.NewEncoder(w).Encode(map[string]interface{}{"answer": 42})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewMemoryClient(srv.URL)
	ctx := context.Background()

	id, err := client.Store(ctx, &StoreMemoryRequest{Namespace: "notes", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "mem-1", id)

	results, err := client.Search(ctx, &SearchMemoryRequest{Namespace: "notes", Query: "hello", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)

	raw, err := client.Query(ctx, "notes", "what is the answer")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(raw))
}
