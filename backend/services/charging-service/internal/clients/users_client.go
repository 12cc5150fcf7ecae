package clients

import (
	"context"
	"net/http"
	"strconv"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// UsersClient calls user-service.
type UsersClient struct {
	base *httpx.BaseClient
}

// NewUsersClient returns client.
func NewUsersClient(baseURL string, httpClient httpx.HTTPDoer) *UsersClient {
	return &UsersClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// GetUser fetches a user profile.
func (c *UsersClient) GetUser(ctx context.Context, userID int64) (*contracts.UserDTO, error) {
	var resp contracts.UserDTO
	path := "/internal/users/" + strconv.FormatInt(userID, 10)
	if err := c.base.DoJSON(ctx, "getUser", http.MethodGet, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
