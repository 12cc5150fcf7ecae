package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
)

func TestSweepSettlesStaleSessions(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(1, "100.00")

	old := time.Now().Add(-time.Hour)
	f.store.SetClock(func() time.Time { return old })
	f.stoppedSession(t, "stale-stopped", 1, "40")
	stuck := f.stoppedSession(t, "stale-settling", 1, "40")
	require.NoError(t, stuck.BeginSettlement(contracts.MustMoney("10.00"), contracts.MustMoney("0.25")))
	require.NoError(t, f.store.Update(context.Background(), stuck))

	f.store.SetClock(time.Now)
	f.stoppedSession(t, "fresh", 1, "40")

	r := NewReconciler(f.store, f.settler, ReconcilerOptions{MaxAge: 10 * time.Minute, Batch: 10}, zap.NewNop())
	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Settled)
	assert.Zero(t, res.Failed)

	for id, want := range map[string]contracts.SessionStatus{
		"stale-stopped":  contracts.SessionSettled,
		"stale-settling": contracts.SessionSettled,
		"fresh":          contracts.SessionStopped,
	} {
		s, err := f.store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, s.Status, id)
	}
	assert.Equal(t, "80.00", f.payments.balance(1))
}

func TestSweepRetriesPendingCompensation(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(2, "50.00")
	f.payments.failures = 5
	f.payments.commitThenFail = true
	f.payments.cancelFailures = 5
	f.stoppedSession(t, "s-comp", 2, "120")

	s, err := f.settler.Settle(context.Background(), "s-comp")
	require.NoError(t, err)
	require.Equal(t, contracts.SessionFailedPayment, s.Status)
	require.True(t, s.NeedsCompensation())
	assert.Equal(t, "20.00", f.payments.balance(2))

	r := NewReconciler(f.store, f.settler, ReconcilerOptions{MaxAge: time.Hour}, zap.NewNop())
	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Compensated)

	stored, err := f.store.Get(context.Background(), "s-comp")
	require.NoError(t, err)
	assert.NotNil(t, stored.CompensatedAt)
	assert.Equal(t, contracts.SessionFailedPayment, stored.Status)
	assert.Equal(t, "50.00", f.payments.balance(2))

	res, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Compensated)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	f := newSettlerFixture(t)
	r := NewReconciler(f.store, f.settler, ReconcilerOptions{Interval: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
