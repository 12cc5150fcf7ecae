package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/payment-service/internal/models"
	"evcharge/backend/services/payment-service/internal/service"
)

// NewProcessPaymentHandler returns POST /payments/process handler. Declined payments are a
// normal 200 response carrying status "failed"; transient errors answer 503 so callers retry.
func NewProcessPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contracts.ProcessPaymentRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}
		if req.SessionID == "" || req.UserID <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "sessionId and userId required")
			return
		}

		p, err := svc.ProcessPayment(r.Context(), req.SessionID, req.UserID, req.Amount)
		if err != nil {
			writePaymentError(w, logger, "process payment", req.SessionID, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, p.Response())
	}
}

// NewCancelPaymentHandler returns POST /payments/cancel handler.
func NewCancelPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contracts.CancelPaymentRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}
		if req.SessionID == "" {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "sessionId required")
			return
		}

		p, err := svc.CancelPayment(r.Context(), req)
		if err != nil {
			writePaymentError(w, logger, "cancel payment", req.SessionID, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, p.Response())
	}
}

// NewPaymentHandler returns GET /payments/{sessionId} handler.
func NewPaymentHandler(svc *service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Payment(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, p.Response())
	}
}

// NewPaymentsMeHandler returns GET /payments/me handler.
func NewPaymentsMeHandler(svc *service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}

		payments, err := svc.PaymentsForUser(r.Context(), userID, httpx.LimitParam(r, 50))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to load payments")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"payments": paymentResponses(payments),
		})
	}
}

func paymentResponses(payments []models.Payment) []contracts.PaymentResponse {
	out := make([]contracts.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, payments[i].Response())
	}
	return out
}

func writePaymentError(w http.ResponseWriter, logger *zap.Logger, op, sessionID string, err error) {
	status, code := httpx.Classify(err)
	if status != http.StatusInternalServerError {
		httpx.WriteError(w, status, code, err.Error())
		return
	}
	logger.Error(op+" failed", zap.String("session_id", sessionID), zap.Error(err))
	httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeInternal, "payment temporarily unavailable")
}
