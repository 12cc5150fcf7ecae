package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/httpx"
)

// StationsClient fetches station status from station-service.
type StationsClient struct {
	base *httpx.BaseClient
}

// NewStationsClient returns client.
func NewStationsClient(baseURL string, httpClient httpx.HTTPDoer) *StationsClient {
	return &StationsClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// ListStations fetches upstream data.
func (c *StationsClient) ListStations(ctx context.Context, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/stations", nil, headers)
}
