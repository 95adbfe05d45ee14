// ABOUTME: Client for the memory/search service
// ABOUTME: Store, search, and omni-query over namespaced memory entries

package clients

import (
	"context"
	"encoding/json"
	"net/http"
)

// StoreMemoryRequest stores one entry under a namespace.
type StoreMemoryRequest struct {
	Namespace string            `json:"namespace"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SearchMemoryRequest searches a namespace.
type SearchMemoryRequest struct {
	Namespace string `json:"namespace"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
}

// MemoryResult is one search hit.
type MemoryResult struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MemoryClient talks to the memory/search service.
type MemoryClient interface {
	Store(ctx context.Context, req *StoreMemoryRequest) (string, error)
	Search(ctx context.Context, req *SearchMemoryRequest) ([]MemoryResult, error)
	Query(ctx context.Context, namespace, omniQuery string) (json.RawMessage, error)
}

// HTTPMemoryClient is the JSON-over-HTTP MemoryClient implementation.
type HTTPMemoryClient struct {
	http *httpClient
}

// NewMemoryClient creates a client for the memory service at baseURL.
func NewMemoryClient(baseURL string) *HTTPMemoryClient {
	return &HTTPMemoryClient{http: newHTTPClient(baseURL)}
}

func (c *HTTPMemoryClient) Store(ctx context.Context, req *StoreMemoryRequest) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.http.doJSON(ctx, http.MethodPost, "/v1/memory/store", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPMemoryClient) Search(ctx context.Context, req *SearchMemoryRequest) ([]MemoryResult, error) {
	var resp struct {
		Results []MemoryResult `json:"results"`
	}
	if err := c.http.doJSON(ctx, http.MethodPost, "/v1/memory/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *HTTPMemoryClient) Query(ctx context.Context, namespace, omniQuery string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.http.doJSON(ctx, http.MethodPost, "/v1/memory/query", map[string]string{
		"namespace":  namespace,
		"omni_query": omniQuery,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
