package models

import (
	"fmt"
	"time"

	"evcharge/backend/libs/contracts"
)

// Station represents a charge point connected over OCPP.
type Station struct {
	ID              string    `db:"id" json:"id"`
	Vendor          string    `db:"vendor" json:"vendor"`
	Model           string    `db:"model" json:"model"`
	FirmwareVersion string    `db:"firmware_version" json:"firmwareVersion"`
	LastHeartbeat   time.Time `db:"last_heartbeat" json:"lastHeartbeat"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Charger is one connector of a station. Its id is "<stationId>-<connectorId>".
type Charger struct {
	ID          string                  `db:"charger_id" json:"chargerId"`
	StationID   string                  `db:"station_id" json:"stationId"`
	ConnectorID int                     `db:"connector_id" json:"connectorId"`
	Status      contracts.ChargerStatus `db:"status" json:"status"`
	UpdatedAt   time.Time               `db:"updated_at" json:"updatedAt"`
}

// ChargerID builds the charger id of a connector.
func ChargerID(stationID string, connectorID int) string {
	return fmt.Sprintf("%s-%d", stationID, connectorID)
}

// Response converts the charger to its wire form.
func (c *Charger) Response() contracts.ChargerResponse {
	return contracts.ChargerResponse{
		ChargerID:   c.ID,
		StationID:   c.StationID,
		ConnectorID: c.ConnectorID,
		Status:      c.Status,
		UpdatedAt:   c.UpdatedAt,
	}
}

// NextStatus decides the status a charger ends up in when source asks for next.
// Settlement and operators always win. Charger reports never leave reserved and never
// release an in_use charger; release happens after the session is paid for.
func NextStatus(current, next contracts.ChargerStatus, source contracts.StatusSource) (contracts.ChargerStatus, bool) {
	if current == next {
		return current, false
	}
	if source != contracts.SourceOCPP {
		return next, true
	}
	switch {
	case current == contracts.ChargerReserved:
		return current, false
	case current == contracts.ChargerInUse && next == contracts.ChargerAvailable:
		return current, false
	}
	return next, true
}

// StationSnapshot is a station with its chargers.
type StationSnapshot struct {
	Station
	Chargers []Charger `json:"chargers"`
}
