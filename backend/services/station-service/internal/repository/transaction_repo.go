package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
)

// TransactionRepository is the Postgres TransactionStore.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository returns repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `transaction_id, session_id, station_id, connector_id, user_id, id_tag,
	meter_start, meter_last, meter_stop, started_at, stopped_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t                    models.Transaction
		meterLast, meterStop sql.NullInt64
		stoppedAt            sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.SessionID, &t.StationID, &t.ConnectorID, &t.UserID, &t.IDTag,
		&t.MeterStart, &meterLast, &meterStop, &t.StartedAt, &stoppedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction: %w", contracts.ErrNotFound)
		}
		return nil, err
	}
	if meterLast.Valid {
		t.MeterLast = &meterLast.Int64
	}
	if meterStop.Valid {
		t.MeterStop = &meterStop.Int64
	}
	if stoppedAt.Valid {
		t.StoppedAt = &stoppedAt.Time
	}
	return &t, nil
}

// Create inserts t and assigns its id.
func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	const query = `
		INSERT INTO ocpp_transactions (session_id, station_id, connector_id, user_id, id_tag, meter_start, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING transaction_id
	`
	return r.db.QueryRowContext(ctx, query, t.SessionID, t.StationID, t.ConnectorID, t.UserID, t.IDTag, t.MeterStart, t.StartedAt).
		Scan(&t.ID)
}

// Get returns one transaction.
func (r *TransactionRepository) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ocpp_transactions WHERE transaction_id = $1`
	return scanTransaction(r.db.QueryRowContext(ctx, query, id))
}

// Delete removes a transaction whose session could not be opened.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ocpp_transactions WHERE transaction_id = $1`, id)
	return err
}

// RecordMeter stores the latest meter reading.
func (r *TransactionRepository) RecordMeter(ctx context.Context, id int64, wh int64) error {
	const query = `UPDATE ocpp_transactions SET meter_last = $2 WHERE transaction_id = $1 AND stopped_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, id, wh)
	return err
}

// Stop records the final reading unless already stopped and returns the stored row.
func (r *TransactionRepository) Stop(ctx context.Context, id int64, meterStop int64, at time.Time) (*models.Transaction, error) {
	const query = `
		UPDATE ocpp_transactions SET meter_stop = $2, stopped_at = $3
		WHERE transaction_id = $1 AND stopped_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, id, meterStop, at); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
