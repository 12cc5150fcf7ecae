package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/contracts"
)

func activeSession() *Session {
	return &Session{ID: "s-1", UserID: 1, Status: contracts.SessionActive, StartTime: time.Now().Add(-time.Hour)}
}

func TestSessionHappyPath(t *testing.T) {
	s := activeSession()
	require.NoError(t, s.Stop(time.Now(), decimal.NewFromInt(50)))
	assert.Equal(t, contracts.SessionStopped, s.Status)
	require.NotNil(t, s.EndTime)

	require.NoError(t, s.BeginSettlement(contracts.MustMoney("30"), contracts.MustMoney("0.60")))
	assert.Equal(t, contracts.SessionSettling, s.Status)
	assert.Equal(t, "30.00", s.Amount.String())

	require.NoError(t, s.MarkSettled("p-1"))
	assert.Equal(t, contracts.SessionSettled, s.Status)
	assert.Equal(t, "p-1", s.PaymentID)
}

func TestStopRejectedUnlessActive(t *testing.T) {
	s := activeSession()
	require.NoError(t, s.Stop(time.Now(), decimal.NewFromInt(1)))
	firstEnd := *s.EndTime

	err := s.Stop(time.Now().Add(time.Minute), decimal.NewFromInt(2))
	var invalid *contracts.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, contracts.SessionStopped, invalid.From)
	assert.ErrorIs(t, err, contracts.ErrInvalidState)
	assert.Equal(t, firstEnd, *s.EndTime)
	assert.True(t, s.EnergyKWh.Equal(decimal.NewFromInt(1)))
}

func TestStopRejectsNegativeEnergy(t *testing.T) {
	s := activeSession()
	assert.ErrorIs(t, s.Stop(time.Now(), decimal.NewFromInt(-1)), ErrNegativeEnergy)
	assert.Equal(t, contracts.SessionActive, s.Status)
	assert.Nil(t, s.EndTime)
}

func TestNoTransitionLeavesTerminalState(t *testing.T) {
	for _, terminal := range []contracts.SessionStatus{contracts.SessionSettled, contracts.SessionFailedPayment} {
		s := &Session{ID: "s-2", Status: terminal}
		assert.ErrorIs(t, s.Stop(time.Now(), decimal.Zero), contracts.ErrInvalidState)
		assert.ErrorIs(t, s.BeginSettlement(contracts.MustMoney("1"), contracts.MustMoney("1")), contracts.ErrInvalidState)
		assert.ErrorIs(t, s.MarkSettled("p"), contracts.ErrInvalidState)
		assert.ErrorIs(t, s.MarkFailed("p", "x"), contracts.ErrInvalidState)
		assert.Equal(t, terminal, s.Status)
	}
}

func TestBeginSettlementOnlyFromStopped(t *testing.T) {
	s := activeSession()
	assert.ErrorIs(t, s.BeginSettlement(contracts.MustMoney("1"), contracts.MustMoney("1")), contracts.ErrInvalidState)
	assert.ErrorIs(t, s.MarkSettled("p"), contracts.ErrInvalidState)
}

func TestNeedsCompensation(t *testing.T) {
	s := &Session{Status: contracts.SessionSettling}
	require.NoError(t, s.MarkFailed("", contracts.ReasonRetriesExhausted))
	assert.True(t, s.NeedsCompensation())
	now := time.Now()
	s.CompensatedAt = &now
	assert.False(t, s.NeedsCompensation())

	declined := &Session{Status: contracts.SessionSettling}
	require.NoError(t, declined.MarkFailed("p", contracts.ReasonInsufficientFunds))
	assert.False(t, declined.NeedsCompensation())
}
