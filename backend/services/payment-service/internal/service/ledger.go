package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/services/payment-service/internal/models"
	"evcharge/backend/services/payment-service/internal/repository"
)

// ErrKeyRequired rejects mutations without an idempotency key.
var ErrKeyRequired = errors.New("idempotency key required")

// Idempotency keys share one namespace in wallet_entries. Each writer gets its own prefix
// so a caller-chosen key can never occupy the key of a settlement or a refund.
const (
	settleKeyPrefix = "settle:"
	refundKeyPrefix = "refund:"
	clientKeyPrefix = "client:"
)

// SettleKey is the key of the debit that pays for a session.
func SettleKey(sessionID string) string { return settleKeyPrefix + sessionID }

// RefundKey is the key of the credit that compensates a session's debit.
func RefundKey(sessionID string) string { return refundKeyPrefix + sessionID }

// ClientKey scopes a key supplied over the wallet API to its user. A blank key stays blank
// so the mutation is rejected with ErrKeyRequired.
func ClientKey(userID int64, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s%d:%s", clientKeyPrefix, userID, key)
}

// Ledger owns wallet balances. Every mutation is serialized per user and applied at most
// once per idempotency key.
type Ledger struct {
	store  repository.WalletStore
	logger *zap.Logger
}

// NewLedger builds ledger.
func NewLedger(store repository.WalletStore, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// within returns a ledger whose wallet work joins the transaction of tx when the store
// supports it.
func (l *Ledger) within(tx repository.PaymentTx) *Ledger {
	binder, ok := l.store.(repository.TxBinder)
	if !ok {
		return l
	}
	return &Ledger{store: binder.BindTx(tx), logger: l.logger}
}

// Provision creates the user's wallet with a zero balance. Calling it again returns the
// existing wallet.
func (l *Ledger) Provision(ctx context.Context, userID int64) (*models.Wallet, bool, error) {
	if userID <= 0 {
		return nil, false, errors.New("ledger: user id required")
	}
	w, created, err := l.store.Create(ctx, &models.Wallet{
		ID:      uuid.NewString(),
		UserID:  userID,
		Balance: contracts.ZeroMoney(),
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		l.logger.Info("wallet provisioned", zap.Int64("user_id", userID), zap.String("wallet_id", w.ID))
	}
	return w, created, nil
}

// GetBalance reads the current balance.
func (l *Ledger) GetBalance(ctx context.Context, userID int64) (contracts.Money, error) {
	w, err := l.store.Get(ctx, userID)
	if err != nil {
		return contracts.Money{}, err
	}
	return w.Balance, nil
}

// Debit takes amount from the wallet. A replayed key returns the stored entry together
// with contracts.ErrAlreadyApplied; a shortfall returns *contracts.InsufficientFundsError.
func (l *Ledger) Debit(ctx context.Context, userID int64, amount contracts.Money, key string) (*models.Entry, error) {
	return l.apply(ctx, userID, models.EntryDebit, amount, key)
}

// Credit adds amount to the wallet with the same idempotency contract as Debit.
func (l *Ledger) Credit(ctx context.Context, userID int64, amount contracts.Money, key string) (*models.Entry, error) {
	return l.apply(ctx, userID, models.EntryCredit, amount, key)
}

// EntryByKey returns the committed entry for key.
func (l *Ledger) EntryByKey(ctx context.Context, key string) (*models.Entry, error) {
	return l.store.EntryByKey(ctx, key)
}

// Entries lists the latest ledger entries of a user.
func (l *Ledger) Entries(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	return l.store.Entries(ctx, userID, limit)
}

func (l *Ledger) apply(ctx context.Context, userID int64, kind models.EntryKind, amount contracts.Money, key string) (*models.Entry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrKeyRequired
	}
	if !amount.IsPositive() {
		return nil, contracts.ErrInvalidAmount
	}

	var (
		result   *models.Entry
		replayed bool
	)
	err := l.store.WithWallet(ctx, userID, func(tx repository.WalletTx) error {
		existing, err := tx.EntryByKey(ctx, key)
		switch {
		case err == nil:
			if !existing.Matches(userID, kind, amount) {
				return contracts.ErrIdempotencyConflict
			}
			result, replayed = existing, true
			return nil
		case !errors.Is(err, contracts.ErrNotFound):
			return err
		}

		w := tx.Wallet()
		balance := w.Balance.Add(amount)
		if kind == models.EntryDebit {
			if w.Balance.LessThan(amount) {
				return &contracts.InsufficientFundsError{UserID: userID, Available: w.Balance, Requested: amount}
			}
			balance = w.Balance.Sub(amount)
		}

		entry := &models.Entry{
			ID:             uuid.NewString(),
			Kind:           kind,
			Amount:         amount,
			BalanceAfter:   balance,
			IdempotencyKey: key,
		}
		if err := tx.Apply(ctx, entry); err != nil {
			return err
		}
		result = entry
		return nil
	})

	log := l.logger.With(
		zap.String("kind", string(kind)),
		zap.Int64("user_id", userID),
		zap.String("idempotency_key", key),
		zap.String("amount", amount.String()),
	)
	switch {
	case err != nil:
		metrics.CountLedger(string(kind), ledgerResult(err))
		log.Info("ledger mutation rejected", zap.Error(err))
		return nil, err
	case replayed:
		metrics.CountLedger(string(kind), "already_applied")
		log.Debug("ledger mutation replayed")
		return result, contracts.ErrAlreadyApplied
	default:
		metrics.CountLedger(string(kind), "applied")
		log.Info("ledger mutation applied", zap.String("balance", result.BalanceAfter.String()))
		return result, nil
	}
}

func ledgerResult(err error) string {
	switch {
	case errors.Is(err, contracts.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, contracts.ErrIdempotencyConflict):
		return "conflict"
	case errors.Is(err, contracts.ErrNotFound):
		return "no_wallet"
	default:
		return "error"
	}
}
