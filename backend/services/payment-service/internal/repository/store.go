package repository

import (
	"context"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/payment-service/internal/models"
)

// WalletStore persists wallets and their ledger entries.
type WalletStore interface {
	// Create inserts w unless the user already has a wallet; the stored wallet is returned.
	Create(ctx context.Context, w *models.Wallet) (*models.Wallet, bool, error)
	Get(ctx context.Context, userID int64) (*models.Wallet, error)
	EntryByKey(ctx context.Context, key string) (*models.Entry, error)
	Entries(ctx context.Context, userID int64, limit int) ([]models.Entry, error)
	// WithWallet runs fn with exclusive access to the user's wallet. Nothing fn wrote is kept
	// when it returns an error.
	WithWallet(ctx context.Context, userID int64, fn func(tx WalletTx) error) error
}

// TxBinder is implemented by wallet stores that can join the transaction of a PaymentTx.
type TxBinder interface {
	BindTx(tx PaymentTx) WalletStore
}

// WalletTx is the unit of work over one locked wallet.
type WalletTx interface {
	Wallet() *models.Wallet
	EntryByKey(ctx context.Context, key string) (*models.Entry, error)
	// Apply stores entry and sets the wallet balance to entry.BalanceAfter.
	Apply(ctx context.Context, entry *models.Entry) error
}

// PaymentStore persists payment records.
type PaymentStore interface {
	GetBySession(ctx context.Context, sessionID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Payment, error)
	// WithSession serializes fn with every other WithSession call for sessionID.
	WithSession(ctx context.Context, sessionID string, fn func(tx PaymentTx) error) error
}

// PaymentTx reads and writes the payment of the locked session.
type PaymentTx interface {
	Get(ctx context.Context) (*models.Payment, error)
	Insert(ctx context.Context, p *models.Payment) error
	Update(ctx context.Context, p *models.Payment) error
}

func notFound(what string) error {
	return notFoundError{what: what}
}

type notFoundError struct{ what string }

func (e notFoundError) Error() string { return e.what + " not found" }

func (e notFoundError) Unwrap() error { return contracts.ErrNotFound }
