package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/user-service/internal/http/handlers"
	"evcharge/backend/services/user-service/internal/password"
	"evcharge/backend/services/user-service/internal/repository"
	"evcharge/backend/services/user-service/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("secret", time.Hour)
	users := service.NewUserService(repository.NewMemoryUserStore(), password.NewBcryptHasher(bcrypt.MinCost, 8),
		tokens, nil, retry.Policy{MaxAttempts: 1}, zap.NewNop())

	routes := Routes{
		Signup:      handlers.NewSignupHandler(users, zap.NewNop()),
		Login:       handlers.NewLoginHandler(users, zap.NewNop()),
		Me:          handlers.NewMeHandler(users),
		UserByID:    handlers.NewUserByIDHandler(users),
		UserByEmail: handlers.NewUserByEmailHandler(users),
	}
	return NewRouter(routes, zap.NewNop()), tokens
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	h, tokens := newTestRouter(t)
	creds := map[string]string{"email": "eve@example.com", "password": "long enough"}

	rec := do(t, h, http.MethodPost, "/auth/signup", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var user contracts.UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "eve@example.com", user.Email)

	rec = do(t, h, http.MethodPost, "/auth/signup", creds, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/signup", map[string]string{"email": "x@example.com", "password": "123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "Bearer", login.TokenType)
	assert.Equal(t, user.ID, login.User.ID)
	claims, err := tokens.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	rec = do(t, h, http.MethodPost, "/auth/login", map[string]string{"email": "eve@example.com", "password": "nope nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/login", map[string]string{"email": "eve@example.com", "role": "admin"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalLookups(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/auth/signup", map[string]string{"email": "frank@example.com", "password": "long enough"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/internal/users?email=Frank%40example.com", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user contracts.UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, int64(1), user.ID)

	rec = do(t, h, http.MethodGet, "/internal/users/1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/internal/users/2", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Code)

	rec = do(t, h, http.MethodGet, "/internal/users/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/internal/users?email=ghost%40example.com", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/me", nil, map[string]string{contracts.HeaderUserID: "1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/users/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
