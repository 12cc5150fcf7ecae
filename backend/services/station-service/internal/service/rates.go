package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
	"evcharge/backend/services/station-service/internal/repository"
)

// ErrInvalidTariff rejects a tariff without name or with a negative price.
var ErrInvalidTariff = errors.New("invalid tariff")

// RateService quotes prices per kWh.
type RateService struct {
	tariffs  repository.TariffStore
	fallback *contracts.Money
	logger   *zap.Logger
}

// NewRateService builds service. fallback is used when no tariff matches; nil disables it.
func NewRateService(tariffs repository.TariffStore, fallback *contracts.Money, logger *zap.Logger) *RateService {
	return &RateService{tariffs: tariffs, fallback: fallback, logger: logger}
}

// Rate returns the rate for a station: its own tariff, the default tariff, or the fallback
// price. Without any of them the rate is ErrNotFound.
func (s *RateService) Rate(ctx context.Context, stationID string) (*contracts.RateResponse, error) {
	tariff, err := s.tariffs.ForStation(ctx, stationID)
	switch {
	case err == nil:
		rate := tariff.Rate(stationID)
		return &rate, nil
	case errors.Is(err, contracts.ErrNotFound) && s.fallback != nil:
		s.logger.Debug("using fallback price", zap.String("station_id", stationID))
		return &contracts.RateResponse{StationID: stationID, PricePerKWh: *s.fallback}, nil
	default:
		return nil, err
	}
}

// CreateTariff stores a new tariff.
func (s *RateService) CreateTariff(ctx context.Context, tariff *models.Tariff) error {
	tariff.Name = strings.TrimSpace(tariff.Name)
	if tariff.Name == "" || tariff.PricePerKWh.IsNegative() {
		return fmt.Errorf("%w: name required and price must not be negative", ErrInvalidTariff)
	}
	if err := s.tariffs.Create(ctx, tariff); err != nil {
		return fmt.Errorf("create tariff: %w", err)
	}
	s.logger.Info("tariff created",
		zap.Int64("tariff_id", tariff.ID),
		zap.String("station_id", tariff.StationID),
		zap.String("price_per_kwh", tariff.PricePerKWh.String()),
	)
	return nil
}
