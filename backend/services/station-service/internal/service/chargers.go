package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
	"evcharge/backend/services/station-service/internal/repository"
)

// ErrInvalidStatus rejects an unknown charger status or source.
var ErrInvalidStatus = errors.New("invalid charger status update")

// ChargerService tracks stations and the status of their chargers.
type ChargerService struct {
	stations repository.StationStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewChargerService builds service.
func NewChargerService(stations repository.StationStore, logger *zap.Logger) *ChargerService {
	return &ChargerService{stations: stations, logger: logger, now: time.Now}
}

// Boot registers a station after BootNotification.
func (s *ChargerService) Boot(ctx context.Context, station *models.Station) error {
	station.LastHeartbeat = s.now().UTC()
	if err := s.stations.UpsertStation(ctx, station); err != nil {
		return fmt.Errorf("upsert station %s: %w", station.ID, err)
	}
	s.logger.Info("station booted",
		zap.String("station_id", station.ID),
		zap.String("vendor", station.Vendor),
		zap.String("model", station.Model),
	)
	return nil
}

// Heartbeat records liveness and returns the server time.
func (s *ChargerService) Heartbeat(ctx context.Context, stationID string) (time.Time, error) {
	now := s.now().UTC()
	if err := s.stations.Heartbeat(ctx, stationID, now); err != nil {
		return now, fmt.Errorf("heartbeat %s: %w", stationID, err)
	}
	return now, nil
}

// ReportConnector applies a status reported by the charge point itself.
func (s *ChargerService) ReportConnector(ctx context.Context, stationID string, connectorID int, status contracts.ChargerStatus) (*models.Charger, error) {
	charger, changed, err := s.stations.SetChargerStatus(ctx, stationID, connectorID, status, contracts.SourceOCPP)
	if err != nil {
		return nil, fmt.Errorf("set charger status: %w", err)
	}
	if !changed && charger.Status != status {
		s.logger.Debug("charger report ignored",
			zap.String("charger_id", charger.ID),
			zap.String("current", string(charger.Status)),
			zap.String("reported", string(status)),
		)
	}
	return charger, nil
}

// UpdateStatus applies a status requested by settlement or an operator. The charger must
// already be known.
func (s *ChargerService) UpdateStatus(ctx context.Context, chargerID string, update contracts.ChargerStatusUpdate) (*models.Charger, error) {
	if !update.Status.Valid() || !update.Source.Valid() {
		return nil, fmt.Errorf("%w: status %q source %q", ErrInvalidStatus, update.Status, update.Source)
	}
	current, err := s.stations.Charger(ctx, chargerID)
	if err != nil {
		return nil, err
	}
	charger, changed, err := s.stations.SetChargerStatus(ctx, current.StationID, current.ConnectorID, update.Status, update.Source)
	if err != nil {
		return nil, fmt.Errorf("set charger status: %w", err)
	}
	if changed {
		s.logger.Info("charger status changed",
			zap.String("charger_id", chargerID),
			zap.String("from", string(current.Status)),
			zap.String("to", string(charger.Status)),
			zap.String("source", string(update.Source)),
		)
	}
	return charger, nil
}

// Get returns one charger.
func (s *ChargerService) Get(ctx context.Context, chargerID string) (*models.Charger, error) {
	return s.stations.Charger(ctx, chargerID)
}

// Snapshot lists stations with their chargers.
func (s *ChargerService) Snapshot(ctx context.Context) ([]models.StationSnapshot, error) {
	return s.stations.Snapshot(ctx)
}
