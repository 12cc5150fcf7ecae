package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/payment-service/internal/models"
	"evcharge/backend/services/payment-service/internal/service"
)

// NewBalanceHandler returns GET /wallet/balance handler.
func NewBalanceHandler(ledger *service.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}
		balance, err := ledger.GetBalance(r.Context(), userID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, contracts.BalanceResponse{UserID: userID, Balance: balance})
	}
}

type mutation func(ctx context.Context, userID int64, amount contracts.Money, key string) (*models.Entry, error)

// NewDeductHandler returns POST /wallet/deduct handler.
func NewDeductHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return mutationHandler(ledger, ledger.Debit, logger)
}

// NewCreditHandler returns POST /wallet/credit handler.
func NewCreditHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return mutationHandler(ledger, ledger.Credit, logger)
}

// mutationHandler answers with a LedgerResult. The idempotency key comes from the body or
// the Idempotency-Key header and is required. It is stored scoped to the caller, so keys
// of different users and of internal settlement entries never collide.
func mutationHandler(ledger *service.Ledger, apply mutation, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}
		var req contracts.DeductRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = strings.TrimSpace(r.Header.Get(contracts.HeaderIdempotencyKey))
		}

		result := contracts.LedgerResult{UserID: userID, IdempotencyKey: req.IdempotencyKey}
		entry, err := apply(r.Context(), userID, req.Amount, service.ClientKey(userID, req.IdempotencyKey))
		switch {
		case err == nil:
			result.Outcome = contracts.OutcomeApplied
			result.NewBalance = entry.BalanceAfter
			httpx.WriteJSON(w, http.StatusOK, result)
		case errors.Is(err, contracts.ErrAlreadyApplied):
			result.Outcome = contracts.OutcomeAlreadyApplied
			result.NewBalance = entry.BalanceAfter
			httpx.WriteJSON(w, http.StatusOK, result)
		case errors.Is(err, contracts.ErrInsufficientFunds):
			var insufficient *contracts.InsufficientFundsError
			if errors.As(err, &insufficient) {
				result.NewBalance = insufficient.Available
			}
			result.Outcome = contracts.OutcomeInsufficientFunds
			result.Error = err.Error()
			result.Code = httpx.CodeInsufficientFunds
			httpx.WriteJSON(w, http.StatusPaymentRequired, result)
		case errors.Is(err, service.ErrKeyRequired):
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
		default:
			if status, _ := httpx.Classify(err); status == http.StatusInternalServerError {
				logger.Error("wallet mutation failed", zap.Int64("user_id", userID), zap.Error(err))
			}
			httpx.WriteDomainError(w, err)
		}
	}
}

// NewEntriesHandler returns GET /wallet/entries handler.
func NewEntriesHandler(ledger *service.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}
		entries, err := ledger.Entries(r.Context(), userID, httpx.LimitParam(r, 50))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to load entries")
			return
		}
		if entries == nil {
			entries = []models.Entry{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
	}
}

// NewProvisionHandler returns POST /internal/wallets handler.
func NewProvisionHandler(ledger *service.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contracts.ProvisionWalletRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}
		if req.UserID <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "userId required")
			return
		}
		wallet, created, err := ledger.Provision(r.Context(), req.UserID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		httpx.WriteJSON(w, status, contracts.WalletResponse{
			WalletID: wallet.ID,
			UserID:   wallet.UserID,
			Balance:  wallet.Balance,
		})
	}
}
