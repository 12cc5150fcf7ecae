package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// ChargingClient reports transaction lifecycle to charging-service.
type ChargingClient struct {
	base *httpx.BaseClient
}

// NewChargingClient builds HTTP client wrapper.
func NewChargingClient(baseURL string, httpClient httpx.HTTPDoer) *ChargingClient {
	return &ChargingClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// StartSession opens a session. Replaying the same session id is safe.
func (c *ChargingClient) StartSession(ctx context.Context, req contracts.StartSessionRequest) (*contracts.SessionResponse, error) {
	var resp contracts.SessionResponse
	if err := c.base.DoJSON(ctx, "startSession", http.MethodPost, "/internal/sessions/start", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopSession closes a session with the delivered energy.
func (c *ChargingClient) StopSession(ctx context.Context, req contracts.StopSessionRequest) (*contracts.SessionResponse, error) {
	var resp contracts.SessionResponse
	if err := c.base.DoJSON(ctx, "stopSession", http.MethodPost, "/internal/sessions/stop", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
