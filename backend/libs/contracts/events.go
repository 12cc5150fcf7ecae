package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a session-lifecycle event.
type EventType string

const (
	EventSessionStarted EventType = "SessionStarted"
	EventSessionStopped EventType = "SessionStopped"
)

// SessionStartedEvent is published when a session record is created.
type SessionStartedEvent struct {
	SessionID string    `json:"sessionId"`
	UserID    int64     `json:"userId"`
	ChargerID string    `json:"chargerId"`
	StationID string    `json:"stationId"`
	StartTime time.Time `json:"startTime"`
}

// SessionStoppedEvent is published when a session leaves the active state.
type SessionStoppedEvent struct {
	SessionID      string          `json:"sessionId"`
	EndTime        time.Time       `json:"endTime"`
	EnergyConsumed decimal.Decimal `json:"energyConsumed"`
}

// Envelope carries one event over the bus.
type Envelope struct {
	Type       EventType       `json:"type"`
	SessionID  string          `json:"sessionId"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// DedupKey identifies an event for consumer-side deduplication.
func (e Envelope) DedupKey() string {
	return string(e.Type) + ":" + e.SessionID
}

// NewEnvelope wraps a SessionStartedEvent or SessionStoppedEvent payload.
func NewEnvelope(event interface{}) (Envelope, error) {
	var (
		typ       EventType
		sessionID string
	)
	switch ev := event.(type) {
	case SessionStartedEvent:
		typ, sessionID = EventSessionStarted, ev.SessionID
	case SessionStoppedEvent:
		typ, sessionID = EventSessionStopped, ev.SessionID
	default:
		return Envelope{}, fmt.Errorf("events: unsupported event %T", event)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:       typ,
		SessionID:  sessionID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// DecodeStopped returns the SessionStopped payload of the envelope.
func (e Envelope) DecodeStopped() (SessionStoppedEvent, error) {
	var ev SessionStoppedEvent
	if e.Type != EventSessionStopped {
		return ev, fmt.Errorf("events: envelope is %s, not %s", e.Type, EventSessionStopped)
	}
	err := json.Unmarshal(e.Payload, &ev)
	return ev, err
}

// DecodeStarted returns the SessionStarted payload of the envelope.
func (e Envelope) DecodeStarted() (SessionStartedEvent, error) {
	var ev SessionStartedEvent
	if e.Type != EventSessionStarted {
		return ev, fmt.Errorf("events: envelope is %s, not %s", e.Type, EventSessionStarted)
	}
	err := json.Unmarshal(e.Payload, &ev)
	return ev, err
}
