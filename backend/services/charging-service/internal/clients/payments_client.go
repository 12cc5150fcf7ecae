package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// PaymentsClient calls payment-service.
type PaymentsClient struct {
	base *httpx.BaseClient
}

// NewPaymentsClient returns client.
func NewPaymentsClient(baseURL string, httpClient httpx.HTTPDoer) *PaymentsClient {
	return &PaymentsClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// ProcessPayment requests settlement of a session. Safe to repeat with the same session id.
func (c *PaymentsClient) ProcessPayment(ctx context.Context, req contracts.ProcessPaymentRequest) (*contracts.PaymentResponse, error) {
	var resp contracts.PaymentResponse
	if err := c.base.DoJSON(ctx, "processPayment", http.MethodPost, "/payments/process", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelPayment voids or refunds the payment of a session.
func (c *PaymentsClient) CancelPayment(ctx context.Context, req contracts.CancelPaymentRequest) (*contracts.PaymentResponse, error) {
	var resp contracts.PaymentResponse
	if err := c.base.DoJSON(ctx, "cancelPayment", http.MethodPost, "/payments/cancel", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
