package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/user-service/internal/service"
)

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token     string            `json:"token"`
	TokenType string            `json:"tokenType"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      contracts.UserDTO `json:"user"`
}

// NewLoginHandler handles POST /auth/login.
func NewLoginHandler(users *service.UserService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid JSON body")
			return
		}

		session, err := users.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid credentials")
				return
			}
			logger.Error("login failed", zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to login")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, LoginResponse{
			Token:     session.Token,
			TokenType: "Bearer",
			ExpiresAt: session.ExpiresAt,
			User:      session.User.DTO(),
		})
	}
}
