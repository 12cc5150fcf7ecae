package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
)

func TestMemorySetChargerStatusCreatesUnknownCharger(t *testing.T) {
	s := NewMemoryStationStore()
	ctx := context.Background()

	c, changed, err := s.SetChargerStatus(ctx, "CP-1", 1, contracts.ChargerAvailable, contracts.SourceOCPP)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "CP-1-1", c.ID)
	assert.Equal(t, contracts.ChargerAvailable, c.Status)

	c, changed, err = s.SetChargerStatus(ctx, "CP-1", 1, contracts.ChargerReserved, contracts.SourceSettlement)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, contracts.ChargerReserved, c.Status)

	c, changed, err = s.SetChargerStatus(ctx, "CP-1", 1, contracts.ChargerAvailable, contracts.SourceOCPP)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, contracts.ChargerReserved, c.Status)
}

func TestMemoryTariffFallback(t *testing.T) {
	s := NewMemoryTariffStore()
	ctx := context.Background()

	_, err := s.ForStation(ctx, "CP-1")
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	require.NoError(t, s.Create(ctx, &models.Tariff{Name: "default", PricePerKWh: contracts.MustMoney("0.3"), IsActive: true}))
	require.NoError(t, s.Create(ctx, &models.Tariff{Name: "old", StationID: "CP-1", PricePerKWh: contracts.MustMoney("0.2"), IsActive: false}))

	tariff, err := s.ForStation(ctx, "CP-1")
	require.NoError(t, err)
	assert.Equal(t, "default", tariff.Name)
}

func TestMemoryTransactionStopKeepsFirstValues(t *testing.T) {
	s := NewMemoryTransactionStore()
	ctx := context.Background()
	tx := &models.Transaction{SessionID: "s-1", StationID: "CP-1", ConnectorID: 1, MeterStart: 100}
	require.NoError(t, s.Create(ctx, tx))

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	stopped, err := s.Stop(ctx, tx.ID, 900, first)
	require.NoError(t, err)
	stopped, err = s.Stop(ctx, tx.ID, 5000, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(900), *stopped.MeterStop)
	assert.Equal(t, first, *stopped.StoppedAt)

	require.NoError(t, s.RecordMeter(ctx, tx.ID, 1200))
	got, err := s.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MeterLast)

	err = s.Create(ctx, &models.Transaction{SessionID: "s-1"})
	assert.ErrorIs(t, err, contracts.ErrIdempotencyConflict)
}
