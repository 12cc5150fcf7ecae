package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/user-service/internal/service"
)

const codeEmailInUse = "email_in_use"

// NewSignupHandler returns HTTP handler for registration endpoint.
func NewSignupHandler(users *service.UserService, logger *zap.Logger) http.HandlerFunc {
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

		user, err := users.Signup(r.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmailInUse):
				httpx.WriteError(w, http.StatusConflict, codeEmailInUse, "email already registered")
			case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
				httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			default:
				logger.Error("signup failed", zap.Error(err))
				httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to create user")
			}
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, user.DTO())
	}
}
