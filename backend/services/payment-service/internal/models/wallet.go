package models

import (
	"time"

	"evcharge/backend/libs/contracts"
)

// EntryKind distinguishes ledger mutations.
type EntryKind string

const (
	EntryDebit  EntryKind = "debit"
	EntryCredit EntryKind = "credit"
)

// Wallet is the single prepaid balance of a user.
type Wallet struct {
	ID        string          `db:"id" json:"walletId"`
	UserID    int64           `db:"user_id" json:"userId"`
	Balance   contracts.Money `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Entry is one committed debit or credit. IdempotencyKey is unique across all wallets.
type Entry struct {
	ID             string          `db:"id" json:"id"`
	WalletID       string          `db:"wallet_id" json:"walletId"`
	UserID         int64           `db:"user_id" json:"userId"`
	Kind           EntryKind       `db:"kind" json:"kind"`
	Amount         contracts.Money `db:"amount" json:"amount"`
	BalanceAfter   contracts.Money `db:"balance_after" json:"balanceAfter"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotencyKey"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// Matches reports whether a replayed request describes the same mutation.
func (e *Entry) Matches(userID int64, kind EntryKind, amount contracts.Money) bool {
	return e.UserID == userID && e.Kind == kind && e.Amount.Equal(amount)
}
