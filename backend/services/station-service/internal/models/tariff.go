package models

import (
	"time"

	"evcharge/backend/libs/contracts"
)

// Tariff describes price per kWh. A tariff without StationID is a default for every station.
type Tariff struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	StationID   string          `db:"station_id" json:"stationId,omitempty"`
	PricePerKWh contracts.Money `db:"price_per_kwh" json:"pricePerKwh"`
	IsActive    bool            `db:"is_active" json:"isActive"`
	ValidUntil  *time.Time      `db:"valid_until" json:"validUntil,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Rate converts the tariff into the rate quoted for stationID.
func (t *Tariff) Rate(stationID string) contracts.RateResponse {
	return contracts.RateResponse{
		StationID:   stationID,
		TariffID:    t.ID,
		PricePerKWh: t.PricePerKWh,
		ValidUntil:  t.ValidUntil,
	}
}
