// ABOUTME: Client for the execution control-plane service
// ABOUTME: Create/get/cancel executions and fetch their log history

package clients

import (
	"context"
	"net/http"
)

// ExecutionRequest describes a code execution to start.
type ExecutionRequest struct {
	Code        string            `json:"code"`
	Language    string            `json:"language"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Execution is the control plane's view of an execution.
type Execution struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ExecutionLog is one log line from an execution.
type ExecutionLog struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ControlPlaneClient talks to the execution control plane.
type ControlPlaneClient interface {
	CreateExecution(ctx context.Context, req *ExecutionRequest) (*Execution, error)
	GetExecution(ctx context.Context, id string) (*Execution, error)
	GetExecutionLogs(ctx context.Context, id string) ([]ExecutionLog, error)
	CancelExecution(ctx context.Context, id string) error
}

// HTTPControlPlaneClient is the JSON-over-HTTP ControlPlaneClient
// implementation.
type HTTPControlPlaneClient struct {
	http *httpClient
}

// NewControlPlaneClient creates a client for the control plane at baseURL.
func NewControlPlaneClient(baseURL string) *HTTPControlPlaneClient {
	return &HTTPControlPlaneClient{http: newHTTPClient(baseURL)}
}

func (c *HTTPControlPlaneClient) CreateExecution(ctx context.Context, req *ExecutionRequest) (*Execution, error) {
	var exec Execution
	if err := c.http.doJSON(ctx, http.MethodPost, "/v1/executions", req, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (c *HTTPControlPlaneClient) GetExecution(ctx context.Context, id string) (*Execution, error) {
	var exec Execution
	if err := c.http.doJSON(ctx, http.MethodGet, "/v1/executions/"+id, nil, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (c *HTTPControlPlaneClient) GetExecutionLogs(ctx context.Context, id string) ([]ExecutionLog, error) {
	var resp struct {
		Logs []ExecutionLog `json:"logs"`
	}
	if err := c.http.doJSON(ctx, http.MethodGet, "/v1/executions/"+id+"/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *HTTPControlPlaneClient) CancelExecution(ctx context.Context, id string) error {
	return c.http.doJSON(ctx, http.MethodPost, "/v1/executions/"+id+"/cancel", nil, nil)
}
