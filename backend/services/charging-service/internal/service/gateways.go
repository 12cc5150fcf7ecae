package service

import (
	"context"

	"evcharge/backend/libs/contracts"
	redisstore "evcharge/backend/services/charging-service/internal/redis"
)

// PaymentGateway is the payment subsystem as seen by settlement.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req contracts.ProcessPaymentRequest) (*contracts.PaymentResponse, error)
	CancelPayment(ctx context.Context, req contracts.CancelPaymentRequest) (*contracts.PaymentResponse, error)
}

// StationGateway exposes chargers and rates owned by the station subsystem.
type StationGateway interface {
	GetCharger(ctx context.Context, chargerID string) (*contracts.ChargerResponse, error)
	Rate(ctx context.Context, stationID string) (*contracts.RateResponse, error)
	UpdateChargerStatus(ctx context.Context, chargerID string, update contracts.ChargerStatusUpdate) error
}

// UserDirectory resolves users.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (*contracts.UserDTO, error)
}

// Notifier delivers user notifications.
type Notifier interface {
	Notify(ctx context.Context, req contracts.NotificationRequest) error
}

// ActiveCache mirrors active sessions for fast lookups. It is never the source of truth.
type ActiveCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Delete(ctx context.Context, sessionID, chargerID string) error
}
