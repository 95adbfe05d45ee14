// ABOUTME: Client for the external identity service (credential verification)
// ABOUTME: Authenticate never reveals whether the email or the password was wrong

package clients

import (
	"context"
	"errors"
	"net/http"
)

// ErrAuthenticationFailed means the identity service rejected the
// credentials. It deliberately carries no detail about which field was
// wrong.
var ErrAuthenticationFailed = errors.New("authentication failed")

// User is the profile the identity service returns for an authenticated
// subject.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// IdentityClient verifies credentials against the identity service.
type IdentityClient interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// HTTPIdentityClient is the JSON-over-HTTP IdentityClient implementation.
type HTTPIdentityClient struct {
	http *httpClient
}

// NewIdentityClient creates a client for the identity service at baseURL.
func NewIdentityClient(baseURL string) *HTTPIdentityClient {
	return &HTTPIdentityClient{http: newHTTPClient(baseURL)}
}

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	User User `json:"user"`
}

// Authenticate verifies the credentials and returns the user profile.
// Any rejection by the identity service surfaces as
// ErrAuthenticationFailed.
func (c *HTTPIdentityClient) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var resp authenticateResponse
	err := c.http.doJSON(ctx, http.MethodPost, "/v1/authenticate", &authenticateRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, ErrAuthenticationFailed
	}
	return &resp.User, nil
}
