package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evcharge/backend/libs/contracts"
	libdb "evcharge/backend/libs/db"
	"evcharge/backend/services/payment-service/internal/models"
)

// WalletRepository is the Postgres WalletStore. Mutations lock the wallet row with
// SELECT ... FOR UPDATE for the length of one transaction. A repository bound to an
// enclosing transaction (BindTx) runs every query on that transaction instead of the pool.
type WalletRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewWalletRepository returns repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletColumns = `id, user_id, balance, created_at, updated_at`

const entryColumns = `id, wallet_id, user_id, kind, amount, balance_after, idempotency_key, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *WalletRepository) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// BindTx returns a repository running on the transaction of a Postgres PaymentTx, so a
// payment and its ledger entry commit together on one connection. Other transactions
// leave the repository unbound.
func (r *WalletRepository) BindTx(tx PaymentTx) WalletStore {
	ptx, ok := tx.(*pgPaymentTx)
	if !ok {
		return r
	}
	return &WalletRepository{db: r.db, tx: ptx.tx}
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var w models.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("wallet")
		}
		return nil, err
	}
	return &w, nil
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	if err := row.Scan(&e.ID, &e.WalletID, &e.UserID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.IdempotencyKey, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("ledger entry")
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a wallet for w.UserID if none exists.
func (r *WalletRepository) Create(ctx context.Context, w *models.Wallet) (*models.Wallet, bool, error) {
	const query = `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + walletColumns

	created, err := scanWallet(r.q().QueryRowContext(ctx, query, w.ID, w.UserID, w.Balance))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, contracts.ErrNotFound) {
		return nil, false, err
	}
	existing, err := r.Get(ctx, w.UserID)
	return existing, false, err
}

// Get returns the wallet of userID.
func (r *WalletRepository) Get(ctx context.Context, userID int64) (*models.Wallet, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.q().QueryRowContext(ctx, query, userID))
}

// EntryByKey returns the entry recorded under key.
func (r *WalletRepository) EntryByKey(ctx context.Context, key string) (*models.Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM wallet_entries WHERE idempotency_key = $1`
	return scanEntry(r.q().QueryRowContext(ctx, query, key))
}

// Entries returns latest entries of the user's wallet.
func (r *WalletRepository) Entries(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + entryColumns + `
		FROM wallet_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.q().QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// WithWallet locks the wallet row and runs fn in the same transaction. A bound repository
// uses a savepoint inside the enclosing transaction; the row lock is held until it commits.
func (r *WalletRepository) WithWallet(ctx context.Context, userID int64, fn func(tx WalletTx) error) error {
	if r.tx != nil {
		return libdb.WithSavepoint(ctx, r.tx, "wallet_mutation", func() error {
			return lockWallet(ctx, r.tx, userID, fn)
		})
	}
	return libdb.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return lockWallet(ctx, tx, userID, fn)
	})
}

func lockWallet(ctx context.Context, tx *sql.Tx, userID int64, fn func(tx WalletTx) error) error {
	const query = `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	w, err := scanWallet(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		return err
	}
	return fn(&pgWalletTx{tx: tx, wallet: w})
}

type pgWalletTx struct {
	tx     *sql.Tx
	wallet *models.Wallet
}

func (t *pgWalletTx) Wallet() *models.Wallet { return t.wallet }

func (t *pgWalletTx) EntryByKey(ctx context.Context, key string) (*models.Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM wallet_entries WHERE idempotency_key = $1`
	return scanEntry(t.tx.QueryRowContext(ctx, query, key))
}

func (t *pgWalletTx) Apply(ctx context.Context, e *models.Entry) error {
	const insert = `
		INSERT INTO wallet_entries (id, wallet_id, user_id, kind, amount, balance_after, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	err := t.tx.QueryRowContext(ctx, insert,
		e.ID, t.wallet.ID, t.wallet.UserID, e.Kind, e.Amount, e.BalanceAfter, e.IdempotencyKey,
	).Scan(&e.CreatedAt)
	if err != nil {
		if libdb.IsUniqueViolation(err) {
			return fmt.Errorf("key %q: %w", e.IdempotencyKey, contracts.ErrIdempotencyConflict)
		}
		return err
	}

	const update = `UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, update, t.wallet.ID, e.BalanceAfter); err != nil {
		return err
	}
	e.WalletID = t.wallet.ID
	e.UserID = t.wallet.UserID
	t.wallet.Balance = e.BalanceAfter
	return nil
}
