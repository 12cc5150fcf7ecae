package contracts

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmeticIsExact(t *testing.T) {
	a := MustMoney("0.10")
	b := MustMoney("0.20")
	assert.True(t, a.Add(b).Equal(MustMoney("0.30")))
	assert.Equal(t, "20.00", MustMoney("50").Sub(MustMoney("30")).String())
	assert.True(t, MustMoney("10").LessThan(MustMoney("30")))
	assert.True(t, MoneyFromCents(-1).IsNegative())
}

func TestChargeRoundsHalfAwayFromZero(t *testing.T) {
	rate := MustMoney("0.45")
	assert.Equal(t, "5.63", Charge(rate, decimal.RequireFromString("12.5")).String())
	assert.Equal(t, "30.00", Charge(MustMoney("0.60"), decimal.NewFromInt(50)).String())
	assert.True(t, Charge(rate, decimal.Zero).IsZero())
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: MustMoney("30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"30.00"}`, string(data))

	var fromNumber struct {
		Amount Money `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.345}`), &fromNumber))
	assert.Equal(t, "12.35", fromNumber.Amount.String())

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("42.10"))
	assert.Equal(t, "42.10", m.String())
	require.NoError(t, m.Scan([]byte("7")))
	assert.Equal(t, "7.00", m.String())
}

func TestEnergyFromWh(t *testing.T) {
	assert.True(t, EnergyFromWh(12500).Equal(decimal.RequireFromString("12.5")))
	assert.True(t, EnergyFromWh(-10).IsZero())
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.True(t, SessionSettled.IsTerminal())
	assert.True(t, SessionFailedPayment.IsTerminal())
	assert.False(t, SessionSettling.IsTerminal())
	assert.False(t, SessionStatus("bogus").Valid())
}

func TestEnvelopeDedupKey(t *testing.T) {
	env, err := NewEnvelope(SessionStoppedEvent{SessionID: "s-1", EnergyConsumed: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, "SessionStopped:s-1", env.DedupKey())

	stopped, err := env.DecodeStopped()
	require.NoError(t, err)
	assert.True(t, stopped.EnergyConsumed.Equal(decimal.NewFromInt(3)))

	_, err = env.DecodeStarted()
	assert.Error(t, err)
}
