package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcharge/backend/libs/contracts"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/station-service/internal/models"
)

// StationRepository manages charging station persistence.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// UpsertStation stores or updates station metadata.
func (r *StationRepository) UpsertStation(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO charging_stations (id, vendor, model, firmware_version, last_heartbeat, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			vendor = EXCLUDED.vendor,
			model = EXCLUDED.model,
			firmware_version = EXCLUDED.firmware_version,
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at = NOW()
	`
	if station.LastHeartbeat.IsZero() {
		station.LastHeartbeat = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		station.ID,
		station.Vendor,
		station.Model,
		station.FirmwareVersion,
		station.LastHeartbeat,
	)
	return err
}

// Heartbeat refreshes last_heartbeat, registering the station if it never booted.
func (r *StationRepository) Heartbeat(ctx context.Context, stationID string, at time.Time) error {
	const query = `
		INSERT INTO charging_stations (id, last_heartbeat)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET last_heartbeat = EXCLUDED.last_heartbeat, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, stationID, at)
	return err
}

// SetChargerStatus locks the charger row and applies models.NextStatus.
func (r *StationRepository) SetChargerStatus(ctx context.Context, stationID string, connectorID int, status contracts.ChargerStatus, source contracts.StatusSource) (*models.Charger, bool, error) {
	const (
		selectQuery = `
			SELECT charger_id, station_id, connector_id, status, updated_at
			FROM chargers WHERE charger_id = $1 FOR UPDATE`
		insertQuery = `
			INSERT INTO chargers (charger_id, station_id, connector_id, status, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (charger_id) DO NOTHING`
		updateQuery = `
			UPDATE chargers SET status = $2, updated_at = NOW()
			WHERE charger_id = $1
			RETURNING updated_at`
	)

	id := models.ChargerID(stationID, connectorID)
	var (
		charger *models.Charger
		changed bool
	)
	err := libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertQuery, id, stationID, connectorID, status); err != nil {
			return err
		}
		c, err := scanCharger(tx.QueryRowContext(ctx, selectQuery, id))
		if err != nil {
			return err
		}
		next, ok := models.NextStatus(c.Status, status, source)
		if ok {
			if err := tx.QueryRowContext(ctx, updateQuery, id, next).Scan(&c.UpdatedAt); err != nil {
				return err
			}
			c.Status = next
		}
		charger, changed = c, ok
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return charger, changed, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCharger(row rowScanner) (*models.Charger, error) {
	var c models.Charger
	if err := row.Scan(&c.ID, &c.StationID, &c.ConnectorID, &c.Status, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("charger: %w", contracts.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

// Charger returns one charger.
func (r *StationRepository) Charger(ctx context.Context, chargerID string) (*models.Charger, error) {
	const query = `
		SELECT charger_id, station_id, connector_id, status, updated_at
		FROM chargers WHERE charger_id = $1`
	return scanCharger(r.db.QueryRowContext(ctx, query, chargerID))
}

// Snapshot lists every station with its chargers.
func (r *StationRepository) Snapshot(ctx context.Context) ([]models.StationSnapshot, error) {
	const stationsQuery = `
		SELECT id, vendor, model, firmware_version, last_heartbeat, created_at, updated_at
		FROM charging_stations ORDER BY id`
	const chargersQuery = `
		SELECT charger_id, station_id, connector_id, status, updated_at
		FROM chargers ORDER BY station_id, connector_id`

	rows, err := r.db.QueryContext(ctx, stationsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StationSnapshot
	index := make(map[string]int)
	for rows.Next() {
		var s models.StationSnapshot
		if err := rows.Scan(&s.ID, &s.Vendor, &s.Model, &s.FirmwareVersion, &s.LastHeartbeat, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Chargers = []models.Charger{}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := r.db.QueryContext(ctx, chargersQuery)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		c, err := scanCharger(crows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[c.StationID]; ok {
			out[i].Chargers = append(out[i].Chargers, *c)
		}
	}
	return out, crows.Err()
}
