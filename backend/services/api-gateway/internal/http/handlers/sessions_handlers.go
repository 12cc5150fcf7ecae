package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/services/api-gateway/internal/clients"
)

// SessionsHandlers proxies charging-service endpoints.
type SessionsHandlers struct {
	client *clients.ChargingClient
	logger *zap.Logger
}

// NewSessionsHandlers returns handler.
func NewSessionsHandlers(client *clients.ChargingClient, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{client: client, logger: logger}
}

// Me handles GET /api/sessions/me.
func (h *SessionsHandlers) Me(w http.ResponseWriter, r *http.Request) {
	authenticated(w, r, h.logger, "charging service", func(headers map[string]string) (int, []byte, error) {
		return h.client.SessionsForUser(r.Context(), r.URL.RawQuery, headers)
	})
}
