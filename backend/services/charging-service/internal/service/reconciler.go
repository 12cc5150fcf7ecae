package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/charging-service/internal/repository"
)

// ReconcilerOptions configures the sweep.
type ReconcilerOptions struct {
	Interval time.Duration
	// MaxAge is how long a session may sit in stopped or settling before the sweep takes it.
	MaxAge time.Duration
	Batch  int
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Settled     int
	Compensated int
	Failed      int
}

// Reconciler re-drives settlements that were interrupted or whose event was lost.
type Reconciler struct {
	store   repository.SessionStore
	settler *Settler
	opts    ReconcilerOptions
	logger  *zap.Logger
	now     func() time.Time
}

// NewReconciler builds reconciler.
func NewReconciler(store repository.SessionStore, settler *Settler, opts ReconcilerOptions, logger *zap.Logger) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 2 * time.Minute
	}
	if opts.Batch <= 0 {
		opts.Batch = 100
	}
	return &Reconciler{store: store, settler: settler, opts: opts, logger: logger, now: time.Now}
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	r.logger.Info("reconciler started", zap.Duration("interval", r.opts.Interval), zap.Duration("max_age", r.opts.MaxAge))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := r.Sweep(ctx)
			if err != nil {
				r.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if res.Settled+res.Compensated+res.Failed > 0 {
				r.logger.Info("sweep finished",
					zap.Int("settled", res.Settled),
					zap.Int("compensated", res.Compensated),
					zap.Int("failed", res.Failed),
				)
			}
		}
	}
}

// Sweep settles stale stopped and settling sessions and retries pending compensations.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	stale, err := r.store.ListStale(ctx,
		[]contracts.SessionStatus{contracts.SessionStopped, contracts.SessionSettling},
		r.now().Add(-r.opts.MaxAge), r.opts.Batch)
	if err != nil {
		return res, err
	}
	for _, session := range stale {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := r.settler.Settle(ctx, session.ID)
		switch {
		case err == nil:
			res.Settled++
		case errors.Is(err, contracts.ErrSettlementInProgress):
		default:
			res.Failed++
			r.logger.Warn("sweep settle failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	}

	pending, err := r.store.ListUncompensated(ctx, r.opts.Batch)
	if err != nil {
		return res, err
	}
	for _, session := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := r.settler.Compensate(ctx, session.ID)
		switch {
		case err == nil:
			res.Compensated++
		case errors.Is(err, contracts.ErrSettlementInProgress):
		default:
			res.Failed++
			r.logger.Warn("sweep compensation failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	return res, nil
}
