package handlers

import (
	"context"
	"encoding/json"

	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// NewHeartbeatHandler returns ack with current time.
func NewHeartbeatHandler(chargers *service.ChargerService) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, _ json.RawMessage) (interface{}, error) {
		now, err := chargers.Heartbeat(ctx, stationID)
		if err != nil {
			return nil, err
		}
		return protocol.HeartbeatResponse{CurrentTime: now}, nil
	}
}
