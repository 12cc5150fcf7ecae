package models

import (
	"time"

	"evcharge/backend/libs/contracts"
)

// Payment is the settlement record of one session. SessionID is unique.
type Payment struct {
	ID           string                  `db:"id"`
	SessionID    string                  `db:"session_id"`
	UserID       int64                   `db:"user_id"`
	Amount       contracts.Money         `db:"amount"`
	Status       contracts.PaymentStatus `db:"status"`
	Reason       string                  `db:"reason"`
	BalanceAfter *contracts.Money        `db:"balance_after"`
	CreatedAt    time.Time               `db:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at"`
}

// Response converts the record to its wire form.
func (p *Payment) Response() contracts.PaymentResponse {
	return contracts.PaymentResponse{
		PaymentID:  p.ID,
		SessionID:  p.SessionID,
		UserID:     p.UserID,
		Status:     p.Status,
		Amount:     p.Amount,
		NewBalance: p.BalanceAfter,
		Reason:     p.Reason,
		CreatedAt:  p.CreatedAt,
	}
}
