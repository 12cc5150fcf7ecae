package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/events"
)

func stoppedEvent(t *testing.T, sessionID string) contracts.Envelope {
	t.Helper()
	env, err := contracts.NewEnvelope(contracts.SessionStoppedEvent{
		SessionID:      sessionID,
		EndTime:        time.Now().UTC(),
		EnergyConsumed: decimal.RequireFromString("120"),
	})
	require.NoError(t, err)
	return env
}

func TestSettlementHandlerSettlesOnce(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(1, "50.00")
	f.stoppedSession(t, "s-ev", 1, "120")

	h := SettlementHandler(f.settler, events.NewMemoryDeduplicator(), zap.NewNop())
	env := stoppedEvent(t, "s-ev")

	require.NoError(t, h(context.Background(), env))
	require.NoError(t, h(context.Background(), env))

	s, err := f.store.Get(context.Background(), "s-ev")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.Equal(t, 1, f.payments.callCount())
	assert.Equal(t, "20.00", f.payments.balance(1))
}

func TestSettlementHandlerAcksInProgress(t *testing.T) {
	f := newSettlerFixture(t)
	f.stoppedSession(t, "s-busy", 1, "120")
	release, err := f.lock.Acquire(context.Background(), "s-busy")
	require.NoError(t, err)
	defer release()

	h := SettlementHandler(f.settler, events.NewMemoryDeduplicator(), zap.NewNop())
	assert.NoError(t, h(context.Background(), stoppedEvent(t, "s-busy")))
	assert.Zero(t, f.payments.callCount())
}

func TestSettlementHandlerAcksPermanentFailure(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.permanentErr = contracts.ErrIdempotencyConflict
	f.stoppedSession(t, "s-err", 1, "120")

	dedup := events.NewMemoryDeduplicator()
	h := SettlementHandler(f.settler, dedup, zap.NewNop())
	env := stoppedEvent(t, "s-err")
	assert.NoError(t, h(context.Background(), env))

	// acked but not marked: the session stays with the sweep and a redelivery still settles
	seen, err := dedup.Seen(context.Background(), env.DedupKey())
	require.NoError(t, err)
	assert.False(t, seen)
	s, err := f.store.Get(context.Background(), "s-err")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettling, s.Status)

	f.payments.permanentErr = nil
	f.payments.fund(1, "50.00")
	require.NoError(t, h(context.Background(), env))
	s, err = f.store.Get(context.Background(), "s-err")
	require.NoError(t, err)
	assert.Equal(t, contracts.SessionSettled, s.Status)
}

func TestSettlementHandlerRedeliversTransientFailure(t *testing.T) {
	f := newSettlerFixture(t)
	f.stations.rateErr = &contracts.RemoteCallError{Op: "rate", StatusCode: 503, Err: errors.New("down")}
	f.stoppedSession(t, "s-down", 1, "120")

	h := SettlementHandler(f.settler, events.NewMemoryDeduplicator(), zap.NewNop())
	err := h(context.Background(), stoppedEvent(t, "s-down"))
	assert.True(t, contracts.IsRemoteCallError(err))
}

func TestSettlementConsumerOverMemoryBus(t *testing.T) {
	f := newSettlerFixture(t)
	f.payments.fund(1, "50.00")
	f.stoppedSession(t, "s-bus", 1, "120")

	bus := events.NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = bus.Subscribe(ctx, "settlement", "c1", SettlementHandler(f.settler, events.NewMemoryDeduplicator(), zap.NewNop()))
	}()

	started, err := contracts.NewEnvelope(contracts.SessionStartedEvent{SessionID: "s-bus", UserID: 1})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, started))
	require.NoError(t, bus.Publish(ctx, stoppedEvent(t, "s-bus")))
	require.NoError(t, bus.Publish(ctx, stoppedEvent(t, "s-bus")))

	require.Eventually(t, func() bool {
		s, err := f.store.Get(context.Background(), "s-bus")
		return err == nil && s.Status == contracts.SessionSettled
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.payments.debitCount("s-bus"))
}
