package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/station-service/internal/models"
	"evcharge/backend/services/station-service/internal/repository"
)

var (
	// ErrUnknownTag is an idTag no user owns.
	ErrUnknownTag = errors.New("unknown id tag")
	// ErrChargerUnavailable is a start on a reserved or maintenance charger.
	ErrChargerUnavailable = errors.New("charger unavailable")
	// ErrUnknownTransaction is a transaction id this station never started.
	ErrUnknownTransaction = errors.New("unknown transaction")
	// ErrInvalidConnector rejects transactions on connector 0.
	ErrInvalidConnector = errors.New("invalid connector")
)

// UserDirectory resolves idTags.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*contracts.UserDTO, error)
}

// SessionGateway opens and closes charging sessions.
type SessionGateway interface {
	StartSession(ctx context.Context, req contracts.StartSessionRequest) (*contracts.SessionResponse, error)
	StopSession(ctx context.Context, req contracts.StopSessionRequest) (*contracts.SessionResponse, error)
}

// StartRequest is a StartTransaction received from a station.
type StartRequest struct {
	StationID   string
	ConnectorID int
	IDTag       string
	MeterStart  int64
	Timestamp   time.Time
}

// StopRequest is a StopTransaction received from a station.
type StopRequest struct {
	StationID     string
	TransactionID int64
	MeterStop     int64
	Timestamp     time.Time
	Reason        string
}

// TransactionService turns OCPP transactions into charging sessions.
type TransactionService struct {
	transactions repository.TransactionStore
	stations     repository.StationStore
	chargers     *ChargerService
	users        UserDirectory
	sessions     SessionGateway
	policy       retry.Policy
	logger       *zap.Logger
	now          func() time.Time
}

// NewTransactionService builds service.
func NewTransactionService(
	transactions repository.TransactionStore,
	stations repository.StationStore,
	chargers *ChargerService,
	users UserDirectory,
	sessions SessionGateway,
	policy retry.Policy,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		stations:     stations,
		chargers:     chargers,
		users:        users,
		sessions:     sessions,
		policy:       policy,
		logger:       logger,
		now:          time.Now,
	}
}

// Authorize resolves idTag to a user.
func (s *TransactionService) Authorize(ctx context.Context, idTag string) (*contracts.UserDTO, error) {
	idTag = strings.TrimSpace(idTag)
	if idTag == "" {
		return nil, ErrUnknownTag
	}
	user, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*contracts.UserDTO, error) {
		return s.users.GetUserByEmail(ctx, idTag)
	}, nil)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTag, idTag)
		}
		return nil, fmt.Errorf("resolve id tag: %w", err)
	}
	return user, nil
}

// Start allocates a session id, marks the charger in use and opens the session. When the
// session cannot be opened the transaction is discarded and the charger restored.
func (s *TransactionService) Start(ctx context.Context, req StartRequest) (*models.Transaction, error) {
	if req.ConnectorID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConnector, req.ConnectorID)
	}
	user, err := s.Authorize(ctx, req.IDTag)
	if err != nil {
		return nil, err
	}

	chargerID := models.ChargerID(req.StationID, req.ConnectorID)
	previous := contracts.ChargerAvailable
	current, err := s.stations.Charger(ctx, chargerID)
	switch {
	case err == nil:
		if current.Status == contracts.ChargerReserved || current.Status == contracts.ChargerMaintenance {
			return nil, fmt.Errorf("%w: %s is %s", ErrChargerUnavailable, chargerID, current.Status)
		}
		previous = current.Status
	case !errors.Is(err, contracts.ErrNotFound):
		return nil, err
	}
	if _, err := s.chargers.ReportConnector(ctx, req.StationID, req.ConnectorID, contracts.ChargerInUse); err != nil {
		return nil, err
	}

	startedAt := req.Timestamp
	if startedAt.IsZero() {
		startedAt = s.now()
	}
	tx := &models.Transaction{
		SessionID:   uuid.NewString(),
		StationID:   req.StationID,
		ConnectorID: req.ConnectorID,
		UserID:      user.ID,
		IDTag:       req.IDTag,
		MeterStart:  req.MeterStart,
		StartedAt:   startedAt.UTC(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		s.restoreCharger(ctx, chargerID, previous)
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	log := s.logger.With(
		zap.Int64("transaction_id", tx.ID),
		zap.String("session_id", tx.SessionID),
		zap.String("charger_id", chargerID),
	)
	_, err = retry.Do(ctx, s.policy, func(ctx context.Context) (*contracts.SessionResponse, error) {
		return s.sessions.StartSession(ctx, contracts.StartSessionRequest{
			SessionID: tx.SessionID,
			UserID:    tx.UserID,
			ChargerID: chargerID,
			StationID: tx.StationID,
			StartTime: tx.StartedAt,
		})
	}, func(attempt uint, err error, next time.Duration) {
		log.Warn("startSession failed, retrying", zap.Uint("attempt", attempt), zap.Duration("next", next), zap.Error(err))
	})
	if err != nil {
		log.Error("failed to open session, discarding transaction", zap.Error(err))
		if delErr := s.transactions.Delete(ctx, tx.ID); delErr != nil {
			log.Warn("failed to delete transaction", zap.Error(delErr))
		}
		s.restoreCharger(ctx, chargerID, previous)
		return nil, fmt.Errorf("start session: %w", err)
	}

	log.Info("transaction started", zap.Int64("user_id", tx.UserID), zap.Int64("meter_start", tx.MeterStart))
	return tx, nil
}

func (s *TransactionService) restoreCharger(ctx context.Context, chargerID string, status contracts.ChargerStatus) {
	if _, err := s.chargers.UpdateStatus(ctx, chargerID, contracts.ChargerStatusUpdate{Status: status, Source: contracts.SourceOperator}); err != nil {
		s.logger.Warn("failed to restore charger status", zap.String("charger_id", chargerID), zap.Error(err))
	}
}

// Stop records the final meter reading and closes the session. A repeated stop reuses the
// first reading, so the delivered energy never changes.
func (s *TransactionService) Stop(ctx context.Context, req StopRequest) (*models.Transaction, decimal.Decimal, error) {
	tx, err := s.owned(ctx, req.StationID, req.TransactionID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	stoppedAt := req.Timestamp
	if stoppedAt.IsZero() {
		stoppedAt = s.now()
	}
	tx, err = s.transactions.Stop(ctx, tx.ID, req.MeterStop, stoppedAt.UTC())
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("stop transaction: %w", err)
	}
	energy := tx.Energy(*tx.MeterStop)

	log := s.logger.With(zap.Int64("transaction_id", tx.ID), zap.String("session_id", tx.SessionID))
	_, err = retry.Do(ctx, s.policy, func(ctx context.Context) (*contracts.SessionResponse, error) {
		return s.sessions.StopSession(ctx, contracts.StopSessionRequest{
			SessionID:      tx.SessionID,
			EndTime:        *tx.StoppedAt,
			EnergyConsumed: energy,
		})
	}, func(attempt uint, err error, next time.Duration) {
		log.Warn("stopSession failed, retrying", zap.Uint("attempt", attempt), zap.Duration("next", next), zap.Error(err))
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("stop session: %w", err)
	}

	log.Info("transaction stopped",
		zap.String("energy_kwh", energy.String()),
		zap.String("reason", req.Reason),
	)
	return tx, energy, nil
}

// RecordMeter stores an intermediate energy reading in Wh.
func (s *TransactionService) RecordMeter(ctx context.Context, stationID string, transactionID int64, wh int64) error {
	tx, err := s.owned(ctx, stationID, transactionID)
	if err != nil {
		return err
	}
	return s.transactions.RecordMeter(ctx, tx.ID, wh)
}

func (s *TransactionService) owned(ctx context.Context, stationID string, transactionID int64) (*models.Transaction, error) {
	tx, err := s.transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTransaction, transactionID)
		}
		return nil, err
	}
	if tx.StationID != stationID {
		return nil, fmt.Errorf("%w: %d belongs to %s", ErrUnknownTransaction, transactionID, tx.StationID)
	}
	return tx, nil
}
