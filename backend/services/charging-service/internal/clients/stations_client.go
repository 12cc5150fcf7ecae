package clients

import (
	"context"
	"net/http"
	"net/url"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// StationsClient calls station-service.
type StationsClient struct {
	base *httpx.BaseClient
}

// NewStationsClient returns client.
func NewStationsClient(baseURL string, httpClient httpx.HTTPDoer) *StationsClient {
	return &StationsClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// GetCharger fetches a charger by id.
func (c *StationsClient) GetCharger(ctx context.Context, chargerID string) (*contracts.ChargerResponse, error) {
	var resp contracts.ChargerResponse
	path := "/internal/chargers/" + url.PathEscape(chargerID)
	if err := c.base.DoJSON(ctx, "getCharger", http.MethodGet, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rate returns the price per kWh at a station.
func (c *StationsClient) Rate(ctx context.Context, stationID string) (*contracts.RateResponse, error) {
	var resp contracts.RateResponse
	path := "/internal/stations/" + url.PathEscape(stationID) + "/rate"
	if err := c.base.DoJSON(ctx, "getRate", http.MethodGet, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateChargerStatus asks station-service to move a charger.
func (c *StationsClient) UpdateChargerStatus(ctx context.Context, chargerID string, update contracts.ChargerStatusUpdate) error {
	path := "/internal/chargers/" + url.PathEscape(chargerID) + "/status"
	return c.base.DoJSON(ctx, "updateChargerStatus", http.MethodPut, path, update, nil, nil)
}
