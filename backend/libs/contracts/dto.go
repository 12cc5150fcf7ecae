package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Headers shared by every service.
const (
	HeaderUserID         = "X-User-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestID      = "X-Request-ID"
)

// ProcessPaymentRequest is the body of POST /payments/process.
type ProcessPaymentRequest struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId"`
	Amount    Money  `json:"amount"`
}

// PaymentResponse describes a PaymentRecord as seen by callers.
type PaymentResponse struct {
	PaymentID  string        `json:"paymentId"`
	SessionID  string        `json:"sessionId"`
	UserID     int64         `json:"userId"`
	Status     PaymentStatus `json:"status"`
	Amount     Money         `json:"amount"`
	NewBalance *Money        `json:"newBalance,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// CancelPaymentRequest is the body of POST /payments/cancel. UserID and Amount are
// recorded when no payment exists yet for the session.
type CancelPaymentRequest struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId,omitempty"`
	Amount    Money  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// BalanceResponse is returned by GET /wallet/balance.
type BalanceResponse struct {
	UserID  int64 `json:"userId"`
	Balance Money `json:"balance"`
}

// DeductRequest is the body of POST /wallet/deduct and POST /wallet/credit.
type DeductRequest struct {
	Amount         Money  `json:"amount"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// LedgerOutcome tags a LedgerResult.
type LedgerOutcome string

const (
	OutcomeApplied           LedgerOutcome = "applied"
	OutcomeAlreadyApplied    LedgerOutcome = "already_applied"
	OutcomeInsufficientFunds LedgerOutcome = "insufficient_funds"
)

// LedgerResult is the typed response of wallet mutations.
type LedgerResult struct {
	Outcome        LedgerOutcome `json:"outcome"`
	UserID         int64         `json:"userId"`
	IdempotencyKey string        `json:"idempotencyKey"`
	NewBalance     Money         `json:"newBalance"`
	Error          string        `json:"error,omitempty"`
	Code           string        `json:"code,omitempty"`
}

// ProvisionWalletRequest creates the wallet of a new user.
type ProvisionWalletRequest struct {
	UserID int64 `json:"userId"`
}

// WalletResponse describes a wallet.
type WalletResponse struct {
	WalletID string `json:"walletId"`
	UserID   int64  `json:"userId"`
	Balance  Money  `json:"balance"`
}

// ChargerStatusUpdate is the body of PUT /internal/chargers/{id}/status.
type ChargerStatusUpdate struct {
	Status ChargerStatus `json:"status"`
	Source StatusSource  `json:"source"`
}

// ChargerResponse describes a charger.
type ChargerResponse struct {
	ChargerID   string        `json:"chargerId"`
	StationID   string        `json:"stationId"`
	ConnectorID int           `json:"connectorId"`
	Status      ChargerStatus `json:"status"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// RateResponse is the price per kWh applied at a station.
type RateResponse struct {
	StationID   string     `json:"stationId"`
	TariffID    int64      `json:"tariffId"`
	PricePerKWh Money      `json:"pricePerKwh"`
	ValidUntil  *time.Time `json:"validUntil,omitempty"`
}

// UserDTO is the public view of a user profile.
type UserDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Notification types.
const (
	NotificationLowBalance       = "low_balance"
	NotificationPaymentSucceeded = "payment_succeeded"
)

// NotificationRequest is the body of createNotification.
type NotificationRequest struct {
	UserID    int64  `json:"userId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// StartSessionRequest is sent by the charger adapter when a transaction starts.
type StartSessionRequest struct {
	SessionID string    `json:"sessionId"`
	UserID    int64     `json:"userId"`
	ChargerID string    `json:"chargerId"`
	StationID string    `json:"stationId"`
	StartTime time.Time `json:"startTime"`
}

// StopSessionRequest is sent by the charger adapter when a transaction stops.
type StopSessionRequest struct {
	SessionID      string          `json:"sessionId"`
	EndTime        time.Time       `json:"endTime"`
	EnergyConsumed decimal.Decimal `json:"energyConsumed"`
}

// SessionResponse describes a charging session.
type SessionResponse struct {
	SessionID      string          `json:"sessionId"`
	UserID         int64           `json:"userId"`
	ChargerID      string          `json:"chargerId"`
	StationID      string          `json:"stationId"`
	Status         SessionStatus   `json:"status"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        *time.Time      `json:"endTime,omitempty"`
	EnergyConsumed decimal.Decimal `json:"energyConsumed"`
	Amount         *Money          `json:"amount,omitempty"`
	PaymentID      string          `json:"paymentId,omitempty"`
	FailureReason  string          `json:"failureReason,omitempty"`
}
