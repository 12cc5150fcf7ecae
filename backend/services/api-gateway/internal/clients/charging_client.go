package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/httpx"
)

// ChargingClient proxies charging-service session history.
type ChargingClient struct {
	base *httpx.BaseClient
}

// NewChargingClient returns client.
func NewChargingClient(baseURL string, httpClient httpx.HTTPDoer) *ChargingClient {
	return &ChargingClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// SessionsForUser fetches the caller's sessions. rawQuery is passed through.
func (c *ChargingClient) SessionsForUser(ctx context.Context, rawQuery string, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, withQuery("/sessions/me", rawQuery), nil, headers)
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
