package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/contracts"
)

func TestSettleDebitsWallet(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(1, "50.00")
	f.stoppedSession(t, "s-1", 1, "120")

	s, err := f.settler.Settle(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.Equal(t, "30.00", s.Amount.String())
	assert.Equal(t, "0.25", s.RatePerKWh.String())
	assert.Equal(t, "pay-s-1", s.PaymentID)
	assert.Equal(t, "20.00", f.payments.balance(1))

	updates := f.stations.statusUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "st-1-1", updates[0].chargerID)
	assert.Equal(t, contracts.ChargerAvailable, updates[0].update.Status)
	assert.Equal(t, contracts.SourceSettlement, updates[0].update.Source)
	assert.Equal(t, []string{contracts.NotificationPaymentSucceeded}, f.notifier.types())

	stored, err := f.store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, stored.Status)
}

func TestSettleInsufficientFunds(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(2, "10.00")
	f.stoppedSession(t, "s-2", 2, "120")

	s, err := f.settler.Settle(context.Background(), "s-2")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionFailedPayment, s.Status)
	assert.Equal(t, contracts.ReasonInsufficientFunds, s.FailureReason)
	assert.Equal(t, "10.00", f.payments.balance(2))

	updates := f.stations.statusUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, contracts.ChargerReserved, updates[0].update.Status)
	assert.Equal(t, []string{contracts.NotificationLowBalance}, f.notifier.types())
	assert.False(t, s.NeedsCompensation())
}

func TestSettleRetriesUntilPaymentSucceeds(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(3, "50.00")
	f.payments.failures = 4
	f.payments.commitThenFail = true
	f.stoppedSession(t, "s-3", 3, "120")

	s, err := f.settler.Settle(context.Background(), "s-3")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.Equal(t, 5, f.payments.callCount())
	assert.Equal(t, 1, f.payments.debitCount("s-3"))
	assert.Equal(t, "20.00", f.payments.balance(3))
}

func TestSettleExhaustedRetriesCompensates(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(4, "50.00")
	f.payments.failures = 5
	f.payments.commitThenFail = true
	f.stoppedSession(t, "s-4", 4, "120")

	s, err := f.settler.Settle(context.Background(), "s-4")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionFailedPayment, s.Status)
	assert.Equal(t, contracts.ReasonRetriesExhausted, s.FailureReason)
	require.NotNil(t, s.CompensatedAt)
	assert.Equal(t, 5, f.payments.callCount())

	// the debit that landed behind the timeouts was credited back
	assert.Equal(t, "50.00", f.payments.balance(4))
	require.Len(t, f.payments.cancels, 1)
	assert.Equal(t, "30.00", f.payments.cancels[0].Amount.String())

	updates := f.stations.statusUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, contracts.ChargerReserved, updates[0].update.Status)
}

func TestSettleExhaustedFencesLatePayment(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(5, "50.00")
	f.payments.failures = 5
	f.stoppedSession(t, "s-5", 5, "120")

	s, err := f.settler.Settle(context.Background(), "s-5")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionFailedPayment, s.Status)

	// a delayed processPayment arriving after compensation finds the voided record
	resp, err := f.payments.ProcessPayment(context.Background(), contracts.ProcessPaymentRequest{
		SessionID: "s-5", UserID: 5, Amount: contracts.MustMoney("30.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.PaymentFailed, resp.Status)
	assert.Equal(t, contracts.ReasonVoided, resp.Reason)
	assert.Equal(t, "50.00", f.payments.balance(5))
}

func TestSettleDuplicateIsNoop(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(6, "50.00")
	f.stoppedSession(t, "s-6", 6, "120")

	first, err := f.settler.Settle(context.Background(), "s-6")
	require.NoError(t, err)
	second, err := f.settler.Settle(context.Background(), "s-6")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, 1, f.payments.callCount())
	assert.Equal(t, "20.00", f.payments.balance(6))
}

func TestSettleTerminalSessionNeverRegresses(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(7, "10.00")
	f.stoppedSession(t, "s-7", 7, "120")

	s, err := f.settler.Settle(context.Background(), "s-7")
	require.NoError(t, err)
	require.Equal(t, contracts.SessionFailedPayment, s.Status)

	// topping up afterwards does not turn a failed settlement into a paid one
	f.payments.fund(7, "100.00")
	s, err = f.settler.Settle(context.Background(), "s-7")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionFailedPayment, s.Status)
	assert.Equal(t, "100.00", f.payments.balance(7))
}

func TestSettleConcurrentRunIsRejected(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(8, "50.00")
	f.stoppedSession(t, "s-8", 8, "120")

	release, err := f.lock.Acquire(context.Background(), "s-8")
	require.NoError(t, err)
	_, err = f.settler.Settle(context.Background(), "s-8")
	assert.ErrorIs(t, err, contracts.ErrSettlementInProgress)
	release()

	_, err = f.settler.Settle(context.Background(), "s-8")
	require.NoError(t, err)
}

func TestSettleParallelCallsDebitOnce(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(9, "50.00")
	f.stoppedSession(t, "s-9", 9, "120")

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.settler.Settle(context.Background(), "s-9")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, contracts.ErrSettlementInProgress)
		}
	}
	assert.Equal(t, 1, f.payments.debitCount("s-9"))
	assert.Equal(t, "20.00", f.payments.balance(9))
}

func TestSettleWithoutRateKeepsSessionStopped(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(10, "50.00")
	f.stoppedSession(t, "s-10", 10, "120")
	delete(f.stations.rates, "st-1")

	_, err := f.settler.Settle(context.Background(), "s-10")
	assert.ErrorIs(t, err, contracts.ErrRateUnavailable)
	assert.Zero(t, f.payments.callCount())

	stored, err := f.store.Get(context.Background(), "s-10")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionStopped, stored.Status)
	assert.Nil(t, stored.Amount)
}

func TestSettleRejectsExpiredRate(t *testing.T) {
	f := newSettlerFixture(t)
	f.stoppedSession(t, "s-11", 11, "120")
	expired := time.Now().Add(-time.Hour)
	f.stations.rates["st-1"].ValidUntil = &expired

	_, err := f.settler.Settle(context.Background(), "s-11")
	assert.ErrorIs(t, err, contracts.ErrRateUnavailable)
	assert.Zero(t, f.payments.callCount())
}

func TestSettleActiveSessionIsInvalid(t *testing.T) {
	f := newSettlerFixture(t)
	_, _, err := f.store.Create(context.Background(), activeSession("s-13", 12))
	require.NoError(t, err)

	_, err = f.settler.Settle(context.Background(), "s-13")
	assert.ErrorIs(t, err, contracts.ErrInvalidState)
}

func TestSettleResumesWithRecordedAmount(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(14, "50.00")
	s := f.stoppedSession(t, "s-14", 14, "120")
	require.NoError(t, s.BeginSettlement(contracts.MustMoney("30.00"), contracts.MustMoney("0.25")))
	require.NoError(t, f.store.Update(context.Background(), s))

	// the tariff changed while the session was stuck in settling
	f.stations.rates["st-1"].PricePerKWh = contracts.MustMoney("1.00")

	s, err := f.settler.Settle(context.Background(), "s-14")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.Equal(t, "20.00", f.payments.balance(14))
}

func TestSettlePermanentErrorLeavesSettling(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(15, "50.00")
	f.payments.permanentErr = errors.New("payment rejected: malformed request")
	f.stoppedSession(t, "s-15", 15, "120")

	_, err := f.settler.Settle(context.Background(), "s-15")
	require.Error(t, err)
	assert.Equal(t, 1, f.payments.callCount())

	stored, err := f.store.Get(context.Background(), "s-15")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettling, stored.Status)
	assert.Empty(t, f.stations.statusUpdates())
}

func TestSettleZeroEnergy(t *testing.T) {
	f := newSettlerFixture(t)
	f.stoppedSession(t, "s-16", 16, "0")

	s, err := f.settler.Settle(context.Background(), "s-16")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.True(t, s.Amount.IsZero())
}
