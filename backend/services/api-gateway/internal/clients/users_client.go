package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/httpx"
)

// UsersClient proxies user-service auth endpoints.
type UsersClient struct {
	base *httpx.BaseClient
}

// NewUsersClient returns client.
func NewUsersClient(baseURL string, httpClient httpx.HTTPDoer) *UsersClient {
	return &UsersClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// Signup forwards signup payload.
func (c *UsersClient) Signup(ctx context.Context, body []byte, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodPost, "/auth/signup", body, headers)
}

// Login forwards login payload.
func (c *UsersClient) Login(ctx context.Context, body []byte, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodPost, "/auth/login", body, headers)
}

// Me fetches the caller profile.
func (c *UsersClient) Me(ctx context.Context, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/users/me", nil, headers)
}
