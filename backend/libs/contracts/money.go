package contracts

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyPlaces is the number of fractional digits kept for every monetary amount.
const moneyPlaces = 2

// Money is a fixed-point amount in the wallet currency, rounded to cents.
// The zero value is 0.00.
type Money struct {
	value decimal.Decimal
}

// ZeroMoney returns 0.00.
func ZeroMoney() Money {
	return Money{}
}

// NewMoney parses a decimal string such as "30.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

// MustMoney is NewMoney for constants and tests.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromCents builds an amount from minor units.
func MoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -moneyPlaces)}
}

// MoneyFromDecimal rounds d half away from zero to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{value: d.Round(moneyPlaces)}
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{value: m.value.Add(o.value)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{value: m.value.Sub(o.value)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{value: m.value.Neg()} }

// Cmp compares m and o (-1, 0, +1).
func (m Money) Cmp(o Money) int { return m.value.Cmp(o.value) }

// Equal reports numeric equality.
func (m Money) Equal(o Money) bool { return m.value.Equal(o.value) }

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool { return m.value.LessThan(o.value) }

// IsPositive reports m > 0.
func (m Money) IsPositive() bool { return m.value.IsPositive() }

// IsNegative reports m < 0.
func (m Money) IsNegative() bool { return m.value.IsNegative() }

// IsZero reports m == 0.
func (m Money) IsZero() bool { return m.value.IsZero() }

// String renders the amount with exactly two fractional digits.
func (m Money) String() string { return m.value.StringFixed(moneyPlaces) }

// MarshalJSON encodes the amount as a quoted fixed-point string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "30.00" and 30.00.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = Money{}
		return nil
	}
	raw = strings.Trim(raw, `"`)
	parsed, err := NewMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan: %w", err)
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Charge prices energy (kWh) at rate per kWh and rounds to cents.
func Charge(ratePerKWh Money, energyKWh decimal.Decimal) Money {
	return MoneyFromDecimal(ratePerKWh.value.Mul(energyKWh))
}

// EnergyFromWh converts a watt-hour meter delta to kWh without rounding.
// Negative deltas (meter reset) count as zero.
func EnergyFromWh(wh int64) decimal.Decimal {
	if wh <= 0 {
		return decimal.Zero
	}
	return decimal.New(wh, -3)
}
