package repository

import (
	"context"
	"database/sql"
	"errors"

	"evcharge/backend/libs/contracts"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/payment-service/internal/models"
)

// PaymentRepository is the Postgres PaymentStore. Per-session serialization uses a
// transaction-scoped advisory lock so it holds across service instances.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository returns repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, session_id, user_id, amount, status, reason, balance_after, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	if err := row.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Amount, &p.Status, &p.Reason, &p.BalanceAfter, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment")
		}
		return nil, err
	}
	return &p, nil
}

func nullableMoney(m *contracts.Money) interface{} {
	if m == nil {
		return nil
	}
	return m.String()
}

// GetBySession returns the payment of sessionID.
func (r *PaymentRepository) GetBySession(ctx context.Context, sessionID string) (*models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`
	return scanPayment(r.db.QueryRowContext(ctx, query, sessionID))
}

// ListByUser returns latest payments of the user.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// WithSession takes the session's advisory lock and runs fn in the same transaction.
func (r *PaymentRepository) WithSession(ctx context.Context, sessionID string, fn func(tx PaymentTx) error) error {
	return libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "payment:"+sessionID); err != nil {
			return err
		}
		return fn(&pgPaymentTx{tx: tx, sessionID: sessionID})
	})
}

type pgPaymentTx struct {
	tx        *sql.Tx
	sessionID string
}

func (t *pgPaymentTx) Get(ctx context.Context) (*models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE session_id = $1`
	return scanPayment(t.tx.QueryRowContext(ctx, query, t.sessionID))
}

func (t *pgPaymentTx) Insert(ctx context.Context, p *models.Payment) error {
	const query = `
		INSERT INTO payments (id, session_id, user_id, amount, status, reason, balance_after, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := t.tx.QueryRowContext(ctx, query,
		p.ID, t.sessionID, p.UserID, p.Amount, p.Status, p.Reason, nullableMoney(p.BalanceAfter),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if libdb.IsUniqueViolation(err) {
		return contracts.ErrIdempotencyConflict
	}
	return err
}

func (t *pgPaymentTx) Update(ctx context.Context, p *models.Payment) error {
	const query = `
		UPDATE payments
		SET status = $2, reason = $3, balance_after = $4, updated_at = NOW()
		WHERE session_id = $1
		RETURNING updated_at
	`
	err := t.tx.QueryRowContext(ctx, query, t.sessionID, p.Status, p.Reason, nullableMoney(p.BalanceAfter)).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("payment")
	}
	return err
}
