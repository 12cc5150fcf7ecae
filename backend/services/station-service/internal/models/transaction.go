package models

import (
	"time"

	"github.com/shopspring/decimal"

	"evcharge/backend/libs/contracts"
)

// Transaction links an OCPP transaction id to the charging session it started.
type Transaction struct {
	ID          int64      `db:"transaction_id"`
	SessionID   string     `db:"session_id"`
	StationID   string     `db:"station_id"`
	ConnectorID int        `db:"connector_id"`
	UserID      int64      `db:"user_id"`
	IDTag       string     `db:"id_tag"`
	MeterStart  int64      `db:"meter_start"`
	MeterLast   *int64     `db:"meter_last"`
	MeterStop   *int64     `db:"meter_stop"`
	StartedAt   time.Time  `db:"started_at"`
	StoppedAt   *time.Time `db:"stopped_at"`
}

// ChargerID of the connector the transaction runs on.
func (t *Transaction) ChargerID() string {
	return ChargerID(t.StationID, t.ConnectorID)
}

// Energy returns kWh delivered between meterStart and meterStop.
func (t *Transaction) Energy(meterStop int64) decimal.Decimal {
	return contracts.EnergyFromWh(meterStop - t.MeterStart)
}
