// Package httpx holds the HTTP plumbing shared by services: JSON responses,
// error-code mapping, the base client for service-to-service calls and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"evcharge/backend/libs/contracts"
)

// Error codes carried in error bodies so clients can restore the sentinel.
const (
	CodeBadRequest           = "bad_request"
	CodeUnauthorized         = "unauthorized"
	CodeNotFound             = "not_found"
	CodeInvalidState         = "invalid_state"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeRateUnavailable      = "rate_unavailable"
	CodeIdempotencyConflict  = "idempotency_conflict"
	CodeSettlementInProgress = "settlement_in_progress"
	CodeInvalidAmount        = "invalid_amount"
	CodeInternal             = "internal"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRaw writes an already encoded JSON body.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_, _ = w.Write(body)
	}
}

// WriteError writes an error body with an explicit code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: message, Code: code})
}

// WriteDomainError maps err onto a status code and error code.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteError(w, status, code, msg)
}

// Classify maps the shared error taxonomy to HTTP.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, contracts.ErrInsufficientFunds):
		return http.StatusPaymentRequired, CodeInsufficientFunds
	case errors.Is(err, contracts.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, contracts.ErrIdempotencyConflict):
		return http.StatusConflict, CodeIdempotencyConflict
	case errors.Is(err, contracts.ErrSettlementInProgress):
		return http.StatusConflict, CodeSettlementInProgress
	case errors.Is(err, contracts.ErrRateUnavailable):
		return http.StatusFailedDependency, CodeRateUnavailable
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, contracts.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case contracts.IsRemoteCallError(err):
		return http.StatusBadGateway, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// sentinelFor is the inverse of Classify for client-side decoding.
func sentinelFor(code string) error {
	switch code {
	case CodeInsufficientFunds:
		return contracts.ErrInsufficientFunds
	case CodeInvalidState:
		return contracts.ErrInvalidState
	case CodeIdempotencyConflict:
		return contracts.ErrIdempotencyConflict
	case CodeSettlementInProgress:
		return contracts.ErrSettlementInProgress
	case CodeRateUnavailable:
		return contracts.ErrRateUnavailable
	case CodeNotFound:
		return contracts.ErrNotFound
	case CodeInvalidAmount:
		return contracts.ErrInvalidAmount
	}
	return nil
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// UserIDFromHeader reads the caller identity set by the gateway.
func UserIDFromHeader(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(contracts.HeaderUserID))
	if raw == "" {
		return 0, errors.New("missing user id header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user id header")
	}
	return id, nil
}

// LimitParam reads ?limit=, falling back to def and capping at 500.
func LimitParam(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > 500 {
		return 500
	}
	return limit
}
