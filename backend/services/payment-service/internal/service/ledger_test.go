package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/payment-service/internal/repository"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(repository.NewMemoryWalletStore(), zap.NewNop())
}

func fund(t *testing.T, l *Ledger, userID int64, amount string) {
	t.Helper()
	ctx := context.Background()
	_, _, err := l.Provision(ctx, userID)
	require.NoError(t, err)
	if m := contracts.MustMoney(amount); m.IsPositive() {
		_, err = l.Credit(ctx, userID, m, fmt.Sprintf("seed:%d", userID))
		require.NoError(t, err)
	}
}

func balanceOf(t *testing.T, l *Ledger, userID int64) string {
	t.Helper()
	b, err := l.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b.String()
}

func TestProvisionIsIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first, created, err := l.Provision(ctx, 7)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := l.Provision(ctx, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "0.00", balanceOf(t, l, 7))
}

func TestDebitReplayDoesNotChargeTwice(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 1, "50.00")
	ctx := context.Background()

	first, err := l.Debit(ctx, 1, contracts.MustMoney("30"), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", first.BalanceAfter.String())

	replay, err := l.Debit(ctx, 1, contracts.MustMoney("30"), "session-1")
	assert.ErrorIs(t, err, contracts.ErrAlreadyApplied)
	require.NotNil(t, replay)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, "20.00", replay.BalanceAfter.String())
	assert.Equal(t, "20.00", balanceOf(t, l, 1))
}

func TestDebitInsufficientFundsLeavesBalance(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 2, "10.00")

	_, err := l.Debit(context.Background(), 2, contracts.MustMoney("30"), "session-2")
	var insufficient *contracts.InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "10.00", insufficient.Available.String())
	assert.Equal(t, "30.00", insufficient.Requested.String())
	assert.Equal(t, "10.00", balanceOf(t, l, 2))

	// the key was not consumed
	_, err = l.EntryByKey(context.Background(), "session-2")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestDebitKeyReuseWithDifferentAmountConflicts(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 3, "50.00")
	ctx := context.Background()

	_, err := l.Debit(ctx, 3, contracts.MustMoney("5"), "k")
	require.NoError(t, err)
	_, err = l.Debit(ctx, 3, contracts.MustMoney("6"), "k")
	assert.ErrorIs(t, err, contracts.ErrIdempotencyConflict)
	_, err = l.Credit(ctx, 3, contracts.MustMoney("5"), "k")
	assert.ErrorIs(t, err, contracts.ErrIdempotencyConflict)
	assert.Equal(t, "45.00", balanceOf(t, l, 3))
}

func TestLedgerValidation(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 4, "1.00")
	ctx := context.Background()

	_, err := l.Debit(ctx, 4, contracts.MustMoney("0"), "k")
	assert.ErrorIs(t, err, contracts.ErrInvalidAmount)
	_, err = l.Credit(ctx, 4, contracts.MustMoney("-1"), "k")
	assert.ErrorIs(t, err, contracts.ErrInvalidAmount)
	_, err = l.Debit(ctx, 4, contracts.MustMoney("1"), "  ")
	assert.ErrorIs(t, err, ErrKeyRequired)
	_, err = l.Debit(ctx, 99, contracts.MustMoney("1"), "k")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 5, "20.00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		applied   int
		rejected  int
		ctx       = context.Background()
		oneEuro   = contracts.MustMoney("1.00")
		attempted = 50
	)
	for i := 0; i < attempted; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Debit(ctx, 5, oneEuro, fmt.Sprintf("debit-%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				applied++
			} else if errors.Is(err, contracts.ErrInsufficientFunds) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, applied)
	assert.Equal(t, 30, rejected)
	assert.Equal(t, "0.00", balanceOf(t, l, 5))

	entries, err := l.Entries(ctx, 5, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 21)
}

func TestConcurrentReplaysApplyOnce(t *testing.T) {
	l := newTestLedger(t)
	fund(t, l, 6, "50.00")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Debit(context.Background(), 6, contracts.MustMoney("30"), "same-key")
		}()
	}
	wg.Wait()
	assert.Equal(t, "20.00", balanceOf(t, l, 6))
}
