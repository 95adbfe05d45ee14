// ABOUTME: Shared JSON-over-HTTP plumbing for the backend service clients
// ABOUTME: One long-lived client per backend, constructed at startup and shared

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client errors
var (
	// ErrNotFound means the backend reported no such resource.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means the backend could not be reached.
	ErrUnavailable = errors.New("backend unavailable")
)

const requestTimeout = 30 * time.Second

// httpClient is the common transport for the backend clients. Each backend
// gets one instance at process start; the underlying http.Client pools
// connections across all request goroutines.
type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// doJSON performs a JSON request against the backend. A nil in sends no
// body; a nil out discards the response body. Non-2xx statuses map to
// sentinel errors where they have a caller-visible meaning.
func (c *httpClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("backend error: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
