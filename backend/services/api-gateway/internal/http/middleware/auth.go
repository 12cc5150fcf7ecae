package middleware

import (
	"context"
	"net/http"
	"strings"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
)

type contextKey string

const userIDKey contextKey = "userID"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware validates JWT tokens and extracts user ID.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "missing authorization header")
				return
			}
			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid authorization header")
				return
			}

			claims, err := tokens.ValidateToken(strings.TrimSpace(tokenStr))
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves userID from request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
