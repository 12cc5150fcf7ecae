package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"

	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// EnergyReading returns the last energy register sample in Wh.
func EnergyReading(values []protocol.MeterValue) (int64, bool) {
	var (
		wh    int64
		found bool
	)
	for _, mv := range values {
		for _, sv := range mv.SampledValue {
			if sv.Measurand != "" && sv.Measurand != protocol.MeasurandEnergyImport {
				continue
			}
			v, err := strconv.ParseFloat(sv.Value, 64)
			if err != nil {
				continue
			}
			if sv.Unit == protocol.UnitKWh {
				v *= 1000
			}
			wh, found = int64(math.Round(v)), true
		}
	}
	return wh, found
}

// NewMeterValuesHandler stores intermediate readings of running transactions.
func NewMeterValuesHandler(transactions *service.TransactionService, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.MeterValuesRequest](payload)
		if err != nil {
			return nil, err
		}
		if req.TransactionID == nil {
			return protocol.MeterValuesResponse{}, nil
		}
		wh, ok := EnergyReading(req.MeterValue)
		if !ok {
			return protocol.MeterValuesResponse{}, nil
		}
		if err := transactions.RecordMeter(ctx, stationID, *req.TransactionID, wh); err != nil {
			if !errors.Is(err, service.ErrUnknownTransaction) {
				return nil, err
			}
			logger.Warn("meter values for unknown transaction",
				zap.String("station_id", stationID),
				zap.Int64("transaction_id", *req.TransactionID),
			)
		}
		return protocol.MeterValuesResponse{}, nil
	}
}
