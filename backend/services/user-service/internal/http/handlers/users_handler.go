package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/user-service/internal/service"
)

// NewUserByIDHandler returns GET /internal/users/{userId} handler.
func NewUserByIDHandler(users *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
		if err != nil || id <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid user id")
			return
		}
		user, err := users.Get(r.Context(), id)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user.DTO())
	}
}

// NewUserByEmailHandler returns GET /internal/users?email= handler.
func NewUserByEmailHandler(users *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "email is required")
			return
		}
		user, err := users.GetByEmail(r.Context(), email)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user.DTO())
	}
}

// NewMeHandler returns GET /users/me for the caller identified by the gateway.
func NewMeHandler(users *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}
		user, err := users.Get(r.Context(), id)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, user.DTO())
	}
}
