package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/api-gateway/internal/clients"
)

// AuthHandlers proxies user-service endpoints.
type AuthHandlers struct {
	client *clients.UsersClient
	logger *zap.Logger
}

// NewAuthHandlers returns handler struct.
func NewAuthHandlers(client *clients.UsersClient, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{client: client, logger: logger}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}
	status, respBody, err := h.client.Signup(r.Context(), body, forwardHeaders(r))
	relay(w, h.logger, "user service", status, respBody, err)
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid body")
		return
	}
	status, respBody, err := h.client.Login(r.Context(), body, forwardHeaders(r))
	relay(w, h.logger, "user service", status, respBody, err)
}

// Me handles GET /api/users/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	authenticated(w, r, h.logger, "user service", func(headers map[string]string) (int, []byte, error) {
		return h.client.Me(r.Context(), headers)
	})
}
