package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/payment-service/internal/models"
	"evcharge/backend/services/payment-service/internal/repository"
)

// PaymentService settles sessions against wallets. The payment record of a session is the
// idempotency anchor: the debit always uses SettleKey(sessionID). Ledger work runs inside
// the payment's transaction, so the record and its entry commit together.
type PaymentService struct {
	payments repository.PaymentStore
	ledger   *Ledger
	logger   *zap.Logger
}

// NewPaymentService builds service.
func NewPaymentService(payments repository.PaymentStore, ledger *Ledger, logger *zap.Logger) *PaymentService {
	return &PaymentService{payments: payments, ledger: ledger, logger: logger}
}

// ProcessPayment charges amount for sessionID. It is safe to call repeatedly: a terminal
// record is returned unchanged and the debit is keyed by the session id. A transient
// ledger error leaves the record pending and is returned to the caller.
func (s *PaymentService) ProcessPayment(ctx context.Context, sessionID string, userID int64, amount contracts.Money) (*models.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || userID <= 0 {
		return nil, errors.New("payments: session id and user id required")
	}
	if amount.IsNegative() {
		return nil, contracts.ErrInvalidAmount
	}

	log := s.logger.With(zap.String("session_id", sessionID), zap.Int64("user_id", userID))

	var (
		result   *models.Payment
		debitErr error
	)
	err := s.payments.WithSession(ctx, sessionID, func(tx repository.PaymentTx) error {
		ledger := s.ledger.within(tx)
		p, err := tx.Get(ctx)
		switch {
		case errors.Is(err, contracts.ErrNotFound):
			p = &models.Payment{
				ID:     uuid.NewString(),
				UserID: userID,
				Amount: amount,
				Status: contracts.PaymentPending,
			}
			if err := tx.Insert(ctx, p); err != nil {
				return err
			}
			log.Info("payment record created", zap.String("payment_id", p.ID), zap.String("amount", amount.String()))
		case err != nil:
			return err
		case isVoided(p):
			result = p
			return nil
		case p.UserID != userID || !p.Amount.Equal(amount):
			return contracts.ErrIdempotencyConflict
		}

		if p.Status.IsTerminal() {
			result = p
			return nil
		}

		if amount.IsZero() {
			// nothing to take; the record still anchors the settlement
			p.Status = contracts.PaymentSucceeded
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			result = p
			return nil
		}

		entry, err := ledger.Debit(ctx, userID, amount, SettleKey(sessionID))
		switch {
		case err == nil || errors.Is(err, contracts.ErrAlreadyApplied):
			balance := entry.BalanceAfter
			p.Status = contracts.PaymentSucceeded
			p.Reason = ""
			p.BalanceAfter = &balance
		case errors.Is(err, contracts.ErrInsufficientFunds):
			p.Status = contracts.PaymentFailed
			p.Reason = contracts.ReasonInsufficientFunds
		default:
			// record stays pending; the caller retries with the same session id
			result, debitErr = p, err
			return nil
		}
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		log.Info("payment settled", zap.String("status", string(p.Status)), zap.String("reason", p.Reason))
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if debitErr != nil {
		log.Warn("payment left pending", zap.Error(debitErr))
		return result, debitErr
	}
	return result, nil
}

// CancelPayment is the compensation step for a session the caller gave up on. It fences
// later ProcessPayment calls and gives back any debit that landed.
func (s *PaymentService) CancelPayment(ctx context.Context, req contracts.CancelPaymentRequest) (*models.Payment, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, errors.New("payments: session id required")
	}
	reason := req.Reason
	if reason == "" {
		reason = contracts.ReasonVoided
	}

	log := s.logger.With(zap.String("session_id", sessionID), zap.String("reason", reason))

	var result *models.Payment
	err := s.payments.WithSession(ctx, sessionID, func(tx repository.PaymentTx) error {
		ledger := s.ledger.within(tx)
		p, err := tx.Get(ctx)
		if errors.Is(err, contracts.ErrNotFound) {
			p = &models.Payment{
				ID:     uuid.NewString(),
				UserID: req.UserID,
				Amount: req.Amount,
				Status: contracts.PaymentFailed,
				Reason: contracts.ReasonVoided,
			}
			if err := tx.Insert(ctx, p); err != nil {
				return err
			}
			log.Info("payment voided before processing")
			result = p
			return nil
		}
		if err != nil {
			return err
		}

		if p.Status == contracts.PaymentFailed || p.Status == contracts.PaymentRefunded {
			result = p
			return nil
		}

		debit, err := ledger.EntryByKey(ctx, SettleKey(sessionID))
		switch {
		case errors.Is(err, contracts.ErrNotFound):
			// no money moved: a pending record is voided, a zero-amount success is reversed
			if p.Status == contracts.PaymentPending {
				p.Status, p.Reason = contracts.PaymentFailed, contracts.ReasonVoided
			} else {
				p.Status, p.Reason = contracts.PaymentRefunded, reason
			}
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			log.Info("payment cancelled without refund", zap.String("status", string(p.Status)))
			result = p
			return nil
		case err != nil:
			return err
		}

		refunded, err := refund(ctx, ledger, sessionID, debit)
		if err != nil {
			return err
		}
		balance := refunded.BalanceAfter
		p.Status = contracts.PaymentRefunded
		p.Reason = reason
		p.BalanceAfter = &balance
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		log.Info("payment refunded", zap.String("amount", refunded.Amount.String()))
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// refund credits back the settlement debit of sessionID.
func refund(ctx context.Context, ledger *Ledger, sessionID string, debit *models.Entry) (*models.Entry, error) {
	if debit.Kind != models.EntryDebit {
		return nil, contracts.ErrIdempotencyConflict
	}
	entry, err := ledger.Credit(ctx, debit.UserID, debit.Amount, RefundKey(sessionID))
	if err != nil && !errors.Is(err, contracts.ErrAlreadyApplied) {
		return nil, err
	}
	return entry, nil
}

// Payment returns the record of a session.
func (s *PaymentService) Payment(ctx context.Context, sessionID string) (*models.Payment, error) {
	return s.payments.GetBySession(ctx, sessionID)
}

// PaymentsForUser returns history for given user.
func (s *PaymentService) PaymentsForUser(ctx context.Context, userID int64, limit int) ([]models.Payment, error) {
	return s.payments.ListByUser(ctx, userID, limit)
}

func isVoided(p *models.Payment) bool {
	return p.Status == contracts.PaymentFailed && p.Reason == contracts.ReasonVoided
}
