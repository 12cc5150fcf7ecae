package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// NewStopTransactionHandler closes the session of a transaction. Only transient failures are
// answered with a CALLERROR; anything else is acknowledged so the station does not resend.
func NewStopTransactionHandler(transactions *service.TransactionService, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StopTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		_, _, err = transactions.Stop(ctx, service.StopRequest{
			StationID:     stationID,
			TransactionID: req.TransactionID,
			MeterStop:     req.MeterStop,
			Timestamp:     req.Timestamp,
			Reason:        req.Reason,
		})
		switch {
		case err == nil:
		case contracts.IsRemoteCallError(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			logger.Error("stop transaction not applied",
				zap.String("station_id", stationID),
				zap.Int64("transaction_id", req.TransactionID),
				zap.Error(err),
			)
		}
		return protocol.StopTransactionResponse{}, nil
	}
}
