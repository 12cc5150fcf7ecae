package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/charging-service/internal/models"
)

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `session_id, user_id, charger_id, station_id, status, start_time, end_time, energy_kwh,
	rate_per_kwh, amount, payment_id, failure_reason, compensated_at, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ChargerID,
		&s.StationID,
		&s.Status,
		&s.StartTime,
		&s.EndTime,
		&s.EnergyKWh,
		&s.RatePerKWh,
		&s.Amount,
		&s.PaymentID,
		&s.FailureReason,
		&s.CompensatedAt,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", contracts.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()
	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func nullableMoney(m *contracts.Money) interface{} {
	if m == nil {
		return nil
	}
	return m.String()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// Create inserts the session or returns the existing one with the same id.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) (*models.Session, bool, error) {
	const query = `
		INSERT INTO charging_sessions (session_id, user_id, charger_id, station_id, status, start_time, energy_kwh, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 1, NOW(), NOW())
		ON CONFLICT (session_id) DO NOTHING
		RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRowContext(ctx, query,
		s.ID,
		s.UserID,
		s.ChargerID,
		s.StationID,
		s.Status,
		s.StartTime,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, contracts.ErrNotFound) {
		return nil, false, err
	}
	existing, err := r.Get(ctx, s.ID)
	return existing, false, err
}

// Get returns the session by id.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM charging_sessions WHERE session_id = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, sessionID))
}

// Update writes every mutable column guarded by the version the caller read.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	const query = `
		UPDATE charging_sessions
		SET status = $3,
		    end_time = $4,
		    energy_kwh = $5,
		    rate_per_kwh = $6,
		    amount = $7,
		    payment_id = $8,
		    failure_reason = $9,
		    compensated_at = $10,
		    version = version + 1,
		    updated_at = NOW()
		WHERE session_id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.Version,
		s.Status,
		nullableTime(s.EndTime),
		s.EnergyKWh.String(),
		nullableMoney(s.RatePerKWh),
		nullableMoney(s.Amount),
		s.PaymentID,
		s.FailureReason,
		nullableTime(s.CompensatedAt),
	).Scan(&s.Version, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s at version %d: %w", s.ID, s.Version, contracts.ErrVersionConflict)
	}
	return err
}

// ListByUser returns last N sessions for user.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// ListActive returns currently active sessions.
func (r *SessionRepository) ListActive(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE status = 'active'
		ORDER BY start_time DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// ListStale returns sessions stuck in one of statuses since before.
func (r *SessionRepository) ListStale(ctx context.Context, statuses []contracts.SessionStatus, before time.Time, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, names, before, limit)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}

// ListUncompensated returns exhausted settlements whose payment was not cancelled yet.
func (r *SessionRepository) ListUncompensated(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE status = 'failed_payment' AND failure_reason = $1 AND compensated_at IS NULL
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, contracts.ReasonRetriesExhausted, limit)
	if err != nil {
		return nil, err
	}
	return scanSessions(rows)
}
