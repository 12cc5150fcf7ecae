package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/charging-service/internal/models"
	"evcharge/backend/services/charging-service/internal/repository"
)

// Settlement outcomes reported to metrics.
const (
	OutcomeSettled         = "settled"
	OutcomeFailedPayment   = "failed_payment"
	OutcomeExhausted       = "retries_exhausted"
	OutcomeDuplicate       = "duplicate"
	OutcomeRateUnavailable = "rate_unavailable"
	OutcomeDeferred        = "deferred"
)

// SettlerOptions bounds the remote calls made during settlement.
type SettlerOptions struct {
	// Payment governs processPayment, cancelPayment and the rate lookup.
	Payment retry.Policy
	// Release governs charger status updates and notifications.
	Release retry.Policy
}

// Settler drives a stopped session to settled or failed_payment.
type Settler struct {
	store    repository.SessionStore
	payments PaymentGateway
	stations StationGateway
	notifier Notifier
	lock     SettlementLock
	opts     SettlerOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewSettler builds settler. notifier may be nil.
func NewSettler(
	store repository.SessionStore,
	payments PaymentGateway,
	stations StationGateway,
	notifier Notifier,
	lock SettlementLock,
	opts SettlerOptions,
	logger *zap.Logger,
) *Settler {
	return &Settler{
		store:    store,
		payments: payments,
		stations: stations,
		notifier: notifier,
		lock:     lock,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Settle runs settlement for one session. It is safe to call any number of times and from
// any instance: a concurrent run fails fast with contracts.ErrSettlementInProgress, a
// terminal session is returned unchanged, and a session left in settling resumes with the
// amount fixed by the first run.
func (s *Settler) Settle(ctx context.Context, sessionID string) (*models.Session, error) {
	release, err := s.lock.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	session, outcome, err := s.settle(ctx, sessionID)
	metrics.ObserveSettlement(outcome, s.now().Sub(started).Seconds())
	return session, err
}

func (s *Settler) settle(ctx context.Context, sessionID string) (*models.Session, string, error) {
	log := s.logger.With(zap.String("session_id", sessionID))

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	switch session.Status {
	case contracts.SessionSettled, contracts.SessionFailedPayment:
		log.Debug("session already settled", zap.String("status", string(session.Status)))
		return session, OutcomeDuplicate, nil
	case contracts.SessionActive:
		return nil, "", &contracts.InvalidStateError{SessionID: session.ID, From: session.Status, Action: "settle"}
	case contracts.SessionStopped:
		if err := s.begin(ctx, session, log); err != nil {
			if errors.Is(err, contracts.ErrRateUnavailable) {
				return nil, OutcomeRateUnavailable, err
			}
			return nil, OutcomeDeferred, err
		}
	case contracts.SessionSettling:
		log.Info("resuming settlement", zap.Stringer("amount", session.Amount))
	}

	req := contracts.ProcessPaymentRequest{
		SessionID: session.ID,
		UserID:    session.UserID,
		Amount:    *session.Amount,
	}
	resp, err := retry.Do(ctx, s.opts.Payment, func(ctx context.Context) (*contracts.PaymentResponse, error) {
		metrics.CountSettlementAttempt()
		return s.payments.ProcessPayment(ctx, req)
	}, func(attempt uint, err error, next time.Duration) {
		log.Warn("processPayment failed, retrying",
			zap.Uint("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})

	switch {
	case err == nil && resp.Status == contracts.PaymentSucceeded:
		return s.finishSettled(ctx, session, resp, log)
	case err == nil && (resp.Status == contracts.PaymentFailed || resp.Status == contracts.PaymentRefunded):
		reason := resp.Reason
		if reason == "" {
			reason = contracts.ReasonInsufficientFunds
		}
		return s.finishFailed(ctx, session, resp.PaymentID, reason, log)
	case err == nil:
		log.Warn("payment still pending, leaving session settling", zap.String("payment_id", resp.PaymentID))
		return session, OutcomeDeferred, fmt.Errorf("session %s: payment %s is %s", session.ID, resp.PaymentID, resp.Status)
	case errors.Is(err, contracts.ErrInsufficientFunds):
		return s.finishFailed(ctx, session, "", contracts.ReasonInsufficientFunds, log)
	case ctx.Err() != nil:
		return session, OutcomeDeferred, ctx.Err()
	case contracts.IsRemoteCallError(err):
		log.Error("processPayment retries exhausted", zap.Error(err))
		settled, outcome, ferr := s.finishFailed(ctx, session, "", contracts.ReasonRetriesExhausted, log)
		if ferr != nil {
			return settled, outcome, ferr
		}
		if cerr := s.compensate(ctx, settled, log); cerr != nil {
			log.Warn("compensation deferred to sweep", zap.Error(cerr))
		}
		return settled, OutcomeExhausted, nil
	default:
		log.Error("processPayment failed, leaving session settling", zap.Error(err))
		return session, OutcomeDeferred, err
	}
}

// begin prices the session and moves it to settling.
func (s *Settler) begin(ctx context.Context, session *models.Session, log *zap.Logger) error {
	rate, err := retry.Do(ctx, s.opts.Payment, func(ctx context.Context) (*contracts.RateResponse, error) {
		return s.stations.Rate(ctx, session.StationID)
	}, nil)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) || errors.Is(err, contracts.ErrRateUnavailable) {
			log.Warn("no rate for station", zap.String("station_id", session.StationID))
			return fmt.Errorf("station %s: %w", session.StationID, contracts.ErrRateUnavailable)
		}
		return fmt.Errorf("rate lookup: %w", err)
	}
	if rate.ValidUntil != nil && rate.ValidUntil.Before(s.now()) {
		log.Warn("rate expired", zap.String("station_id", session.StationID), zap.Time("valid_until", *rate.ValidUntil))
		return fmt.Errorf("station %s: rate expired: %w", session.StationID, contracts.ErrRateUnavailable)
	}

	amount := contracts.Charge(rate.PricePerKWh, session.EnergyKWh)
	if err := session.BeginSettlement(amount, rate.PricePerKWh); err != nil {
		return err
	}
	if err := s.store.Update(ctx, session); err != nil {
		return err
	}
	log.Info("settlement started",
		zap.Stringer("amount", amount),
		zap.Stringer("rate", rate.PricePerKWh),
		zap.String("energy_kwh", session.EnergyKWh.String()),
	)
	return nil
}

func (s *Settler) finishSettled(ctx context.Context, session *models.Session, resp *contracts.PaymentResponse, log *zap.Logger) (*models.Session, string, error) {
	if err := session.MarkSettled(resp.PaymentID); err != nil {
		return nil, "", err
	}
	if err := s.store.Update(ctx, session); err != nil {
		return nil, OutcomeDeferred, err
	}
	log.Info("session settled", zap.String("payment_id", resp.PaymentID), zap.Stringer("amount", resp.Amount))

	s.setCharger(ctx, session, contracts.ChargerAvailable, log)
	s.notify(ctx, contracts.NotificationRequest{
		UserID:    session.UserID,
		Type:      contracts.NotificationPaymentSucceeded,
		Message:   fmt.Sprintf("Charging session paid: %s", resp.Amount),
		SessionID: session.ID,
	}, log)
	return session, OutcomeSettled, nil
}

func (s *Settler) finishFailed(ctx context.Context, session *models.Session, paymentID, reason string, log *zap.Logger) (*models.Session, string, error) {
	if err := session.MarkFailed(paymentID, reason); err != nil {
		return nil, "", err
	}
	if err := s.store.Update(ctx, session); err != nil {
		return nil, OutcomeDeferred, err
	}
	log.Warn("session payment failed", zap.String("reason", reason))

	s.setCharger(ctx, session, contracts.ChargerReserved, log)
	if reason == contracts.ReasonInsufficientFunds {
		s.notify(ctx, contracts.NotificationRequest{
			UserID:    session.UserID,
			Type:      contracts.NotificationLowBalance,
			Message:   fmt.Sprintf("Insufficient balance to pay %s for your charging session", session.Amount),
			SessionID: session.ID,
		}, log)
	}
	return session, OutcomeFailedPayment, nil
}

// Compensate voids or refunds the payment of a session whose settlement gave up on
// processPayment. Sessions that do not need it are returned unchanged.
func (s *Settler) Compensate(ctx context.Context, sessionID string) (*models.Session, error) {
	release, err := s.lock.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.compensate(ctx, session, s.logger.With(zap.String("session_id", sessionID))); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Settler) compensate(ctx context.Context, session *models.Session, log *zap.Logger) error {
	if !session.NeedsCompensation() {
		return nil
	}
	req := contracts.CancelPaymentRequest{
		SessionID: session.ID,
		UserID:    session.UserID,
		Amount:    *session.Amount,
		Reason:    session.FailureReason,
	}
	resp, err := retry.Do(ctx, s.opts.Payment, func(ctx context.Context) (*contracts.PaymentResponse, error) {
		return s.payments.CancelPayment(ctx, req)
	}, nil)
	if err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}

	now := s.now().UTC()
	session.CompensatedAt = &now
	if resp.PaymentID != "" {
		session.PaymentID = resp.PaymentID
	}
	if err := s.store.Update(ctx, session); err != nil {
		return err
	}
	log.Info("payment compensated", zap.String("payment_status", string(resp.Status)))
	return nil
}

func (s *Settler) setCharger(ctx context.Context, session *models.Session, status contracts.ChargerStatus, log *zap.Logger) {
	update := contracts.ChargerStatusUpdate{Status: status, Source: contracts.SourceSettlement}
	_, err := retry.Do(ctx, s.opts.Release, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.stations.UpdateChargerStatus(ctx, session.ChargerID, update)
	}, nil)
	if err != nil {
		log.Warn("failed to update charger status",
			zap.String("charger_id", session.ChargerID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *Settler) notify(ctx context.Context, req contracts.NotificationRequest, log *zap.Logger) {
	if s.notifier == nil {
		return
	}
	_, err := retry.Do(ctx, s.opts.Release, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.notifier.Notify(ctx, req)
	}, nil)
	if err != nil {
		log.Warn("failed to send notification", zap.String("type", req.Type), zap.Error(err))
	}
}
