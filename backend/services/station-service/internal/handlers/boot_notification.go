package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/services/station-service/internal/models"
	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// NewBootNotificationHandler registers the station and tells it the heartbeat interval.
func NewBootNotificationHandler(chargers *service.ChargerService, interval time.Duration, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.BootNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		station := &models.Station{
			ID:              stationID,
			Vendor:          req.ChargePointVendor,
			Model:           req.ChargePointModel,
			FirmwareVersion: req.FirmwareVersion,
		}
		if err := chargers.Boot(ctx, station); err != nil {
			logger.Error("failed to register station", zap.String("station_id", stationID), zap.Error(err))
			return nil, err
		}

		return protocol.BootNotificationResponse{
			CurrentTime: station.LastHeartbeat,
			Interval:    int(interval / time.Second),
			Status:      protocol.RegistrationAccepted,
		}, nil
	}
}
