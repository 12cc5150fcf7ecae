package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/payment-service/internal/http/handlers"
	"evcharge/backend/services/payment-service/internal/repository"
	"evcharge/backend/services/payment-service/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *service.Ledger) {
	t.Helper()
	logger := zap.NewNop()
	ledger := service.NewLedger(repository.NewMemoryWalletStore(), logger)
	payments := service.NewPaymentService(repository.NewMemoryPaymentStore(), ledger, logger)
	return NewRouter(Routes{
		ProcessPayment: handlers.NewProcessPaymentHandler(payments, logger),
		CancelPayment:  handlers.NewCancelPaymentHandler(payments, logger),
		Payment:        handlers.NewPaymentHandler(payments),
		PaymentsMe:     handlers.NewPaymentsMeHandler(payments),
		Balance:        handlers.NewBalanceHandler(ledger),
		Deduct:         handlers.NewDeductHandler(ledger, logger),
		Credit:         handlers.NewCreditHandler(ledger, logger),
		Entries:        handlers.NewEntriesHandler(ledger),
		Provision:      handlers.NewProvisionHandler(ledger),
	}, logger), ledger
}

func do(t *testing.T, h http.Handler, method, path string, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(contracts.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWalletEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/internal/wallets", "", contracts.ProvisionWalletRequest{UserID: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/internal/wallets", "", contracts.ProvisionWalletRequest{UserID: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/wallet/credit", "1", contracts.DeductRequest{Amount: contracts.MustMoney("50"), IdempotencyKey: "top-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/wallet/deduct", "1", contracts.DeductRequest{Amount: contracts.MustMoney("30"), IdempotencyKey: "d-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result contracts.LedgerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, contracts.OutcomeApplied, result.Outcome)
	assert.Equal(t, "20.00", result.NewBalance.String())

	rec = do(t, h, http.MethodPost, "/wallet/deduct", "1", contracts.DeductRequest{Amount: contracts.MustMoney("30"), IdempotencyKey: "d-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, contracts.OutcomeAlreadyApplied, result.Outcome)
	assert.Equal(t, "20.00", result.NewBalance.String())

	rec = do(t, h, http.MethodPost, "/wallet/deduct", "1", contracts.DeductRequest{Amount: contracts.MustMoney("30"), IdempotencyKey: "d-2"})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, contracts.OutcomeInsufficientFunds, result.Outcome)
	assert.Equal(t, "20.00", result.NewBalance.String())

	rec = do(t, h, http.MethodPost, "/wallet/deduct", "1", contracts.DeductRequest{Amount: contracts.MustMoney("1")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/wallet/balance", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balance contracts.BalanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, "20.00", balance.Balance.String())

	rec = do(t, h, http.MethodGet, "/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/wallet/entries?limit=10", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries struct {
		Entries []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries.Entries, 2)
}

func TestDeductKeyFromHeader(t *testing.T) {
	h, ledger := newTestRouter(t)
	fundWallet(t, ledger, 2, "10")

	body, err := json.Marshal(map[string]string{"amount": "4.00"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/wallet/deduct", bytes.NewReader(body))
	req.Header.Set(contracts.HeaderUserID, "2")
	req.Header.Set(contracts.HeaderIdempotencyKey, "hdr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result contracts.LedgerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "hdr-1", result.IdempotencyKey)
	assert.Equal(t, "6.00", result.NewBalance.String())
}

func TestProcessPaymentEndpoint(t *testing.T) {
	h, ledger := newTestRouter(t)
	fundWallet(t, ledger, 3, "50")

	req := contracts.ProcessPaymentRequest{SessionID: "s-1", UserID: 3, Amount: contracts.MustMoney("30")}
	rec := do(t, h, http.MethodPost, "/payments/process", "", req)
	require.Equal(t, http.StatusOK, rec.Code)
	var first contracts.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, contracts.PaymentSucceeded, first.Status)
	require.NotNil(t, first.NewBalance)
	assert.Equal(t, "20.00", first.NewBalance.String())

	rec = do(t, h, http.MethodPost, "/payments/process", "", req)
	require.Equal(t, http.StatusOK, rec.Code)
	var second contracts.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.PaymentID, second.PaymentID)

	req.Amount = contracts.MustMoney("31")
	rec = do(t, h, http.MethodPost, "/payments/process", "", req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/payments/s-1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/payments/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/payments/me", "3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Payments []contracts.PaymentResponse `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Payments, 1)

	rec = do(t, h, http.MethodPost, "/payments/cancel", "", contracts.CancelPaymentRequest{SessionID: "s-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled contracts.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, contracts.PaymentRefunded, cancelled.Status)
	assert.Equal(t, "50.00", cancelled.NewBalance.String())
}

func TestProcessPaymentWithoutWallet(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/payments/process", "", contracts.ProcessPaymentRequest{SessionID: "s-2", UserID: 9, Amount: contracts.MustMoney("1")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func fundWallet(t *testing.T, ledger *service.Ledger, userID int64, amount string) {
	t.Helper()
	_, _, err := ledger.Provision(context.Background(), userID)
	require.NoError(t, err)
	_, err = ledger.Credit(context.Background(), userID, contracts.MustMoney(amount), "seed")
	require.NoError(t, err)
}

func TestClientKeyMatchingSessionIDDoesNotBlockPayment(t *testing.T) {
	h, ledger := newTestRouter(t)
	fundWallet(t, ledger, 4, "50")

	rec := do(t, h, http.MethodPost, "/wallet/credit", "4", contracts.DeductRequest{Amount: contracts.MustMoney("1"), IdempotencyKey: "s-4"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result contracts.LedgerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "s-4", result.IdempotencyKey)

	// another user may reuse the same key
	_, _, err := ledger.Provision(context.Background(), 5)
	require.NoError(t, err)
	rec = do(t, h, http.MethodPost, "/wallet/credit", "5", contracts.DeductRequest{Amount: contracts.MustMoney("2"), IdempotencyKey: "s-4"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, contracts.OutcomeApplied, result.Outcome)

	rec = do(t, h, http.MethodPost, "/payments/process", "", contracts.ProcessPaymentRequest{SessionID: "s-4", UserID: 4, Amount: contracts.MustMoney("30")})
	require.Equal(t, http.StatusOK, rec.Code)
	var payment contracts.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payment))
	assert.Equal(t, contracts.PaymentSucceeded, payment.Status)
	assert.Equal(t, "21.00", payment.NewBalance.String())
}
