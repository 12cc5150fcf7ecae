package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/events"
)

// SettlementHandler consumes SessionStopped and settles the session. Only transient remote
// failures are returned for redelivery. Everything else is acked without marking the event
// handled; the reconciliation sweep picks the session up from the store.
func SettlementHandler(settler *Settler, dedup events.Deduplicator, logger *zap.Logger) events.Handler {
	handle := func(ctx context.Context, env contracts.Envelope) error {
		stopped, err := env.DecodeStopped()
		if err != nil {
			logger.Error("malformed SessionStopped", zap.String("session_id", env.SessionID), zap.Error(err))
			return events.ErrSkip
		}
		log := logger.With(zap.String("session_id", stopped.SessionID))

		_, err = settler.Settle(ctx, stopped.SessionID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, contracts.ErrSettlementInProgress):
			log.Debug("settlement already running elsewhere")
			return events.ErrSkip
		case errors.Is(err, contracts.ErrInvalidState),
			errors.Is(err, contracts.ErrRateUnavailable),
			errors.Is(err, contracts.ErrNotFound):
			// left for the sweep
			log.Warn("settlement not possible now", zap.Error(err))
			return events.ErrSkip
		case contracts.IsRemoteCallError(err):
			log.Warn("settlement interrupted, redelivering", zap.Error(err))
			return err
		default:
			log.Error("settlement failed, left for the sweep", zap.Error(err))
			return events.ErrSkip
		}
	}
	return events.Deduplicated(dedup, events.Only(contracts.EventSessionStopped, handle), logger)
}
