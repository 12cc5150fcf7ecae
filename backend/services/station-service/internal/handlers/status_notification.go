package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// ConnectorStatus maps an OCPP connector status onto a charger status.
func ConnectorStatus(status string) (contracts.ChargerStatus, bool) {
	switch status {
	case protocol.ConnectorAvailable:
		return contracts.ChargerAvailable, true
	case protocol.ConnectorPreparing,
		protocol.ConnectorCharging,
		protocol.ConnectorSuspendedEV,
		protocol.ConnectorSuspendedEVSE,
		protocol.ConnectorFinishing:
		return contracts.ChargerInUse, true
	case protocol.ConnectorReserved:
		return contracts.ChargerReserved, true
	case protocol.ConnectorUnavailable:
		return contracts.ChargerMaintenance, true
	case protocol.ConnectorFaulted:
		return contracts.ChargerOffline, true
	}
	return "", false
}

// NewStatusNotificationHandler applies connector status reports. Connector 0 is the
// station itself and only refreshes its heartbeat.
func NewStatusNotificationHandler(chargers *service.ChargerService, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StatusNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		if req.ConnectorID == 0 {
			if _, err := chargers.Heartbeat(ctx, stationID); err != nil {
				return nil, err
			}
			return protocol.StatusNotificationResponse{}, nil
		}

		status, ok := ConnectorStatus(req.Status)
		if !ok {
			return nil, ocpp.NewCallError(protocol.ErrorFormationViolation, "unknown connector status %q", req.Status)
		}
		charger, err := chargers.ReportConnector(ctx, stationID, req.ConnectorID, status)
		if err != nil {
			logger.Error("failed to update connector status",
				zap.String("station_id", stationID),
				zap.Int("connector_id", req.ConnectorID),
				zap.Error(err),
			)
			return nil, err
		}
		if req.ErrorCode != "" && req.ErrorCode != "NoError" {
			logger.Warn("connector reported error",
				zap.String("charger_id", charger.ID),
				zap.String("error_code", req.ErrorCode),
				zap.String("info", req.Info),
			)
		}
		return protocol.StatusNotificationResponse{}, nil
	}
}
