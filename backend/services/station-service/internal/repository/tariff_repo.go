package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
)

// TariffRepository handles tariff lookups.
type TariffRepository struct {
	db *sql.DB
}

// NewTariffRepository returns repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// Create inserts a tariff.
func (r *TariffRepository) Create(ctx context.Context, t *models.Tariff) error {
	const query = `
		INSERT INTO tariffs (name, station_id, price_per_kwh, is_active, valid_until)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, t.Name, t.StationID, t.PricePerKWh, t.IsActive, t.ValidUntil).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// ForStation returns the station's active tariff or the active default.
func (r *TariffRepository) ForStation(ctx context.Context, stationID string) (*models.Tariff, error) {
	const query = `
		SELECT id, name, COALESCE(station_id, ''), price_per_kwh, is_active, valid_until, created_at, updated_at
		FROM tariffs
		WHERE is_active = true AND (station_id = $1 OR station_id IS NULL)
		ORDER BY station_id IS NULL, updated_at DESC
		LIMIT 1
	`
	var (
		t          models.Tariff
		validUntil sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, query, stationID).Scan(
		&t.ID,
		&t.Name,
		&t.StationID,
		&t.PricePerKWh,
		&t.IsActive,
		&validUntil,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tariff for %s: %w", stationID, contracts.ErrNotFound)
		}
		return nil, err
	}
	if validUntil.Valid {
		t.ValidUntil = &validUntil.Time
	}
	return &t, nil
}
