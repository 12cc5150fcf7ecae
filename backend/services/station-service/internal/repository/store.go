package repository

import (
	"context"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
)

// StationStore persists stations and their chargers.
type StationStore interface {
	UpsertStation(ctx context.Context, station *models.Station) error
	Heartbeat(ctx context.Context, stationID string, at time.Time) error
	// SetChargerStatus moves a charger according to models.NextStatus inside one unit of
	// work. An unknown charger is created with the requested status. The resulting charger
	// is returned with whether its status changed.
	SetChargerStatus(ctx context.Context, stationID string, connectorID int, status contracts.ChargerStatus, source contracts.StatusSource) (*models.Charger, bool, error)
	Charger(ctx context.Context, chargerID string) (*models.Charger, error)
	Snapshot(ctx context.Context) ([]models.StationSnapshot, error)
}

// TariffStore looks up prices.
type TariffStore interface {
	Create(ctx context.Context, tariff *models.Tariff) error
	// ForStation returns the newest active tariff of the station, falling back to the newest
	// active default tariff.
	ForStation(ctx context.Context, stationID string) (*models.Tariff, error)
}

// TransactionStore maps OCPP transaction ids to sessions.
type TransactionStore interface {
	// Create assigns t.ID.
	Create(ctx context.Context, t *models.Transaction) error
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) error
	RecordMeter(ctx context.Context, id int64, wh int64) error
	// Stop records the final reading once; a second call keeps the first values.
	Stop(ctx context.Context, id int64, meterStop int64, at time.Time) (*models.Transaction, error)
}

// Journal stores raw OCPP frames.
type Journal interface {
	Save(ctx context.Context, stationID, direction, action string, payload []byte) error
}
