package repository

import (
	"context"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/charging-service/internal/models"
)

// SessionStore persists charging sessions.
type SessionStore interface {
	// Create inserts s unless a session with the same id exists; the stored session is
	// returned together with whether it was created.
	Create(ctx context.Context, s *models.Session) (*models.Session, bool, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	// Update writes s if its Version still matches the stored one and bumps Version.
	// A stale version fails with contracts.ErrVersionConflict.
	Update(ctx context.Context, s *models.Session) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ListActive(ctx context.Context, limit int) ([]models.Session, error)
	// ListStale returns sessions in one of statuses not updated since before.
	ListStale(ctx context.Context, statuses []contracts.SessionStatus, before time.Time, limit int) ([]models.Session, error)
	// ListUncompensated returns failed settlements that still need a CancelPayment.
	ListUncompensated(ctx context.Context, limit int) ([]models.Session, error)
}
