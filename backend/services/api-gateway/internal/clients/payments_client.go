package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/httpx"
)

// PaymentsClient proxies payment-service wallet and payment history endpoints.
type PaymentsClient struct {
	base *httpx.BaseClient
}

// NewPaymentsClient returns client instance.
func NewPaymentsClient(baseURL string, httpClient httpx.HTTPDoer) *PaymentsClient {
	return &PaymentsClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// Balance reads the caller's wallet balance.
func (c *PaymentsClient) Balance(ctx context.Context, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/wallet/balance", nil, headers)
}

// TopUp credits the caller's wallet. The idempotency key travels in headers or body.
func (c *PaymentsClient) TopUp(ctx context.Context, body []byte, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodPost, "/wallet/credit", body, headers)
}

// Entries lists the caller's ledger entries.
func (c *PaymentsClient) Entries(ctx context.Context, rawQuery string, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, withQuery("/wallet/entries", rawQuery), nil, headers)
}

// PaymentsForUser fetches billing history.
func (c *PaymentsClient) PaymentsForUser(ctx context.Context, rawQuery string, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, withQuery("/payments/me", rawQuery), nil, headers)
}
