package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/contracts"
)

func TestDoJSONDecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.Header.Get(contracts.HeaderUserID))
		WriteJSON(w, http.StatusOK, contracts.BalanceResponse{UserID: 7, Balance: contracts.MustMoney("12.50")})
	}))
	defer srv.Close()

	client := NewBaseClient(srv.URL+"/", NewDefaultHTTPClient(time.Second))
	var out contracts.BalanceResponse
	err := client.DoJSON(context.Background(), "getBalance", http.MethodGet, "/wallet/balance", nil, &out,
		map[string]string{contracts.HeaderUserID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "12.50", out.Balance.String())
}

func TestDoJSONMapsServerErrorsToRemoteCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusServiceUnavailable, CodeInternal, "down")
	}))
	defer srv.Close()

	client := NewBaseClient(srv.URL, NewDefaultHTTPClient(time.Second))
	err := client.DoJSON(context.Background(), "processPayment", http.MethodPost, "/payments/process", map[string]string{}, nil, nil)
	var rce *contracts.RemoteCallError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, http.StatusServiceUnavailable, rce.StatusCode)
}

func TestDoJSONMapsTimeoutToRemoteCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewBaseClient(srv.URL, NewDefaultHTTPClient(10*time.Millisecond))
	err := client.DoJSON(context.Background(), "slow", http.MethodGet, "/", nil, nil, nil)
	assert.True(t, contracts.IsRemoteCallError(err))
}

func TestDoJSONRestoresSentinelFromCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteDomainError(w, &contracts.InsufficientFundsError{UserID: 1})
	}))
	defer srv.Close()

	client := NewBaseClient(srv.URL, NewDefaultHTTPClient(time.Second))
	err := client.DoJSON(context.Background(), "deduct", http.MethodPost, "/wallet/deduct", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientFunds))
	assert.False(t, contracts.IsRemoteCallError(err))
}

func TestDoJSONBareNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := NewBaseClient(srv.URL, NewDefaultHTTPClient(time.Second))
	err := client.DoJSON(context.Background(), "getRate", http.MethodGet, "/missing", nil, nil, nil)
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}

func TestClassify(t *testing.T) {
	status, code := Classify(&contracts.InvalidStateError{SessionID: "s", From: contracts.SessionSettled, Action: "stop"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeInvalidState, code)

	status, _ = Classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
