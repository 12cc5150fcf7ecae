package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/events"
	"evcharge/backend/services/charging-service/internal/models"
	redisstore "evcharge/backend/services/charging-service/internal/redis"
	"evcharge/backend/services/charging-service/internal/repository"
)

// ErrInvalidRequest marks a start or stop request with missing fields.
var ErrInvalidRequest = errors.New("invalid session request")

// SessionService starts and stops sessions and serves reads.
type SessionService struct {
	store     repository.SessionStore
	users     UserDirectory
	stations  StationGateway
	cache     ActiveCache
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService builds service. cache may be nil.
func NewSessionService(
	store repository.SessionStore,
	users UserDirectory,
	stations StationGateway,
	cache ActiveCache,
	publisher events.Publisher,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		store:     store,
		users:     users,
		stations:  stations,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Start opens a session. Repeating a start with the same session id returns the stored
// session; reusing the id for another user or charger fails with ErrIdempotencyConflict.
func (s *SessionService) Start(ctx context.Context, req contracts.StartSessionRequest) (*models.Session, bool, error) {
	if req.UserID <= 0 || strings.TrimSpace(req.ChargerID) == "" {
		return nil, false, fmt.Errorf("%w: userId and chargerId required", ErrInvalidRequest)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	} else if _, err := uuid.Parse(req.SessionID); err != nil {
		return nil, false, fmt.Errorf("%w: sessionId must be a uuid", ErrInvalidRequest)
	}

	existing, err := s.store.Get(ctx, req.SessionID)
	if err == nil {
		if existing.UserID != req.UserID || existing.ChargerID != req.ChargerID {
			return nil, false, fmt.Errorf("session %s: %w", req.SessionID, contracts.ErrIdempotencyConflict)
		}
		return existing, false, nil
	}
	if !errors.Is(err, contracts.ErrNotFound) {
		return nil, false, err
	}

	if _, err := s.users.GetUser(ctx, req.UserID); err != nil {
		return nil, false, fmt.Errorf("get user %d: %w", req.UserID, err)
	}
	charger, err := s.stations.GetCharger(ctx, req.ChargerID)
	if err != nil {
		return nil, false, fmt.Errorf("get charger %s: %w", req.ChargerID, err)
	}
	stationID := req.StationID
	if stationID == "" {
		stationID = charger.StationID
	}

	start := req.StartTime
	if start.IsZero() {
		start = s.now()
	}
	session, created, err := s.store.Create(ctx, &models.Session{
		ID:        req.SessionID,
		UserID:    req.UserID,
		ChargerID: req.ChargerID,
		StationID: stationID,
		Status:    contracts.SessionActive,
		StartTime: start.UTC(),
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		if session.UserID != req.UserID || session.ChargerID != req.ChargerID {
			return nil, false, fmt.Errorf("session %s: %w", req.SessionID, contracts.ErrIdempotencyConflict)
		}
		return session, false, nil
	}

	log := s.logger.With(zap.String("session_id", session.ID))
	log.Info("session started",
		zap.Int64("user_id", session.UserID),
		zap.String("charger_id", session.ChargerID),
	)
	if s.cache != nil {
		if err := s.cache.Save(ctx, redisstore.ActiveSession{
			SessionID: session.ID,
			UserID:    session.UserID,
			ChargerID: session.ChargerID,
			StationID: session.StationID,
			StartTime: session.StartTime,
		}); err != nil {
			log.Warn("failed to cache active session", zap.Error(err))
		}
	}
	s.publish(ctx, contracts.SessionStartedEvent{
		SessionID: session.ID,
		UserID:    session.UserID,
		ChargerID: session.ChargerID,
		StationID: session.StationID,
		StartTime: session.StartTime,
	}, log)
	return session, true, nil
}

// Stop records the end of charging and announces SessionStopped. A repeated stop with the
// same energy reading returns the session unchanged.
func (s *SessionService) Stop(ctx context.Context, req contracts.StopSessionRequest) (*models.Session, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId required", ErrInvalidRequest)
	}
	session, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("session_id", session.ID))

	if session.Status != contracts.SessionActive && session.EnergyKWh.Equal(req.EnergyConsumed) {
		log.Debug("repeated stop ignored", zap.String("status", string(session.Status)))
		return session, nil
	}

	end := req.EndTime
	if end.IsZero() {
		end = s.now()
	}
	if err := session.Stop(end, req.EnergyConsumed); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, session); err != nil {
		return nil, err
	}
	log.Info("session stopped", zap.String("energy_kwh", session.EnergyKWh.String()))

	if s.cache != nil {
		if err := s.cache.Delete(ctx, session.ID, session.ChargerID); err != nil {
			log.Warn("failed to delete active session cache", zap.Error(err))
		}
	}
	s.publish(ctx, contracts.SessionStoppedEvent{
		SessionID:      session.ID,
		EndTime:        *session.EndTime,
		EnergyConsumed: session.EnergyKWh,
	}, log)
	return session, nil
}

// publish is best-effort: the reconciliation sweep picks up stopped sessions whose event was lost.
func (s *SessionService) publish(ctx context.Context, event interface{}, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	env, err := contracts.NewEnvelope(event)
	if err != nil {
		log.Error("failed to build event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		log.Warn("failed to publish event", zap.String("type", string(env.Type)), zap.Error(err))
	}
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.store.Get(ctx, sessionID)
}

// ListByUser returns user's session history, newest first.
func (s *SessionService) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// ListActive returns currently running sessions.
func (s *SessionService) ListActive(ctx context.Context, limit int) ([]models.Session, error) {
	return s.store.ListActive(ctx, limit)
}
