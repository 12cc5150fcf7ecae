package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/api-gateway/internal/clients"
)

// WalletHandlers proxies payment-service wallet and payment endpoints.
type WalletHandlers struct {
	client *clients.PaymentsClient
	logger *zap.Logger
}

// NewWalletHandlers returns handler.
func NewWalletHandlers(client *clients.PaymentsClient, logger *zap.Logger) *WalletHandlers {
	return &WalletHandlers{client: client, logger: logger}
}

// Balance handles GET /api/wallet/balance.
func (h *WalletHandlers) Balance(w http.ResponseWriter, r *http.Request) {
	authenticated(w, r, h.logger, "payment service", func(headers map[string]string) (int, []byte, error) {
		return h.client.Balance(r.Context(), headers)
	})
}

// TopUp handles POST /api/wallet/topup. The client idempotency key is forwarded so a
// retried top-up is credited once.
func (h *WalletHandlers) TopUp(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}
	authenticated(w, r, h.logger, "payment service", func(headers map[string]string) (int, []byte, error) {
		if key := strings.TrimSpace(r.Header.Get(contracts.HeaderIdempotencyKey)); key != "" {
			headers[contracts.HeaderIdempotencyKey] = key
		}
		return h.client.TopUp(r.Context(), body, headers)
	})
}

// Entries handles GET /api/wallet/entries.
func (h *WalletHandlers) Entries(w http.ResponseWriter, r *http.Request) {
	authenticated(w, r, h.logger, "payment service", func(headers map[string]string) (int, []byte, error) {
		return h.client.Entries(r.Context(), r.URL.RawQuery, headers)
	})
}

// Payments handles GET /api/payments/me.
func (h *WalletHandlers) Payments(w http.ResponseWriter, r *http.Request) {
	authenticated(w, r, h.logger, "payment service", func(headers map[string]string) (int, []byte, error) {
		return h.client.PaymentsForUser(r.Context(), r.URL.RawQuery, headers)
	})
}
