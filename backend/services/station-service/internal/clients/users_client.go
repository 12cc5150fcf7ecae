package clients

import (
	"context"
	"net/http"
	"net/url"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// UsersClient resolves OCPP idTags against user-service.
type UsersClient struct {
	base *httpx.BaseClient
}

// NewUsersClient returns client.
func NewUsersClient(baseURL string, httpClient httpx.HTTPDoer) *UsersClient {
	return &UsersClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// GetUserByEmail looks a user up by the email used as idTag.
func (c *UsersClient) GetUserByEmail(ctx context.Context, email string) (*contracts.UserDTO, error) {
	var resp contracts.UserDTO
	path := "/internal/users?email=" + url.QueryEscape(email)
	if err := c.base.DoJSON(ctx, "getUserByEmail", http.MethodGet, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
