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

// NewStartTransactionHandler opens a session for the transaction. Transient upstream
// failures are answered with a CALLERROR so the station retries.
func NewStartTransactionHandler(transactions *service.TransactionService, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StartTransactionRequest](payload)
		if err != nil {
			return nil, err
		}

		tx, err := transactions.Start(ctx, service.StartRequest{
			StationID:   stationID,
			ConnectorID: req.ConnectorID,
			IDTag:       req.IdTag,
			MeterStart:  req.MeterStart,
			Timestamp:   req.Timestamp,
		})
		if err != nil {
			status, transient := rejection(err)
			if transient {
				return nil, err
			}
			logger.Warn("start transaction rejected",
				zap.String("station_id", stationID),
				zap.Int("connector_id", req.ConnectorID),
				zap.String("status", status),
				zap.Error(err),
			)
			return protocol.StartTransactionResponse{IdTagInfo: protocol.IdTagInfo{Status: status}}, nil
		}

		return protocol.StartTransactionResponse{
			TransactionID: tx.ID,
			IdTagInfo:     protocol.IdTagInfo{Status: protocol.AuthorizationAccepted},
		}, nil
	}
}

// rejection picks the idTag status for a failed start, or reports the failure as transient.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrChargerUnavailable):
		return protocol.AuthorizationBlocked, false
	case contracts.IsRemoteCallError(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", true
	}
	return protocol.AuthorizationInvalid, false
}
