package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"evcharge/backend/libs/contracts"
)

// ErrNegativeEnergy rejects a stop reading below zero.
var ErrNegativeEnergy = errors.New("energy consumed must be non-negative")

// Session represents a charging session. Status only moves forward:
// active -> stopped -> settling -> settled | failed_payment.
type Session struct {
	ID            string                  `db:"session_id"`
	UserID        int64                   `db:"user_id"`
	ChargerID     string                  `db:"charger_id"`
	StationID     string                  `db:"station_id"`
	Status        contracts.SessionStatus `db:"status"`
	StartTime     time.Time               `db:"start_time"`
	EndTime       *time.Time              `db:"end_time"`
	EnergyKWh     decimal.Decimal         `db:"energy_kwh"`
	RatePerKWh    *contracts.Money        `db:"rate_per_kwh"`
	Amount        *contracts.Money        `db:"amount"`
	PaymentID     string                  `db:"payment_id"`
	FailureReason string                  `db:"failure_reason"`
	CompensatedAt *time.Time              `db:"compensated_at"`
	Version       int64                   `db:"version"`
	CreatedAt     time.Time               `db:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at"`
}

func (s *Session) reject(action string) error {
	return &contracts.InvalidStateError{SessionID: s.ID, From: s.Status, Action: action}
}

// Stop records the end of charging. Only an active session can stop; end time and energy
// are set exactly once.
func (s *Session) Stop(end time.Time, energyKWh decimal.Decimal) error {
	if s.Status != contracts.SessionActive {
		return s.reject("stop")
	}
	if energyKWh.IsNegative() {
		return ErrNegativeEnergy
	}
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	end = end.UTC()
	s.EndTime = &end
	s.EnergyKWh = energyKWh
	s.Status = contracts.SessionStopped
	return nil
}

// BeginSettlement fixes the amount to charge. A resumed settlement reuses it.
func (s *Session) BeginSettlement(amount, rate contracts.Money) error {
	if s.Status != contracts.SessionStopped {
		return s.reject("begin settlement")
	}
	s.Amount = &amount
	s.RatePerKWh = &rate
	s.Status = contracts.SessionSettling
	return nil
}

// MarkSettled completes a settlement backed by a succeeded payment.
func (s *Session) MarkSettled(paymentID string) error {
	if s.Status != contracts.SessionSettling {
		return s.reject("settle")
	}
	s.PaymentID = paymentID
	s.FailureReason = ""
	s.Status = contracts.SessionSettled
	return nil
}

// MarkFailed ends a settlement without payment.
func (s *Session) MarkFailed(paymentID, reason string) error {
	if s.Status != contracts.SessionSettling {
		return s.reject("fail settlement")
	}
	s.PaymentID = paymentID
	s.FailureReason = reason
	s.Status = contracts.SessionFailedPayment
	return nil
}

// NeedsCompensation reports a failed settlement whose payment may still have landed.
func (s *Session) NeedsCompensation() bool {
	return s.Status == contracts.SessionFailedPayment &&
		s.FailureReason == contracts.ReasonRetriesExhausted &&
		s.CompensatedAt == nil
}

// Response converts the session to its wire form.
func (s *Session) Response() contracts.SessionResponse {
	return contracts.SessionResponse{
		SessionID:      s.ID,
		UserID:         s.UserID,
		ChargerID:      s.ChargerID,
		StationID:      s.StationID,
		Status:         s.Status,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		EnergyConsumed: s.EnergyKWh,
		Amount:         s.Amount,
		PaymentID:      s.PaymentID,
		FailureReason:  s.FailureReason,
	}
}
