package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/station-service/internal/repository"
)

func unavailable(op string) error {
	return &contracts.RemoteCallError{Op: op, StatusCode: 503, Err: fmt.Errorf("unavailable")}
}

type fakeUsers struct {
	byEmail map[string]contracts.UserDTO
	err     error
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*contracts.UserDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("getUserByEmail: %w", contracts.ErrNotFound)
	}
	return &u, nil
}

// fakeSessions records calls; startFailures/stopFailures make the next calls fail transiently.
type fakeSessions struct {
	mu            sync.Mutex
	starts        []contracts.StartSessionRequest
	stops         []contracts.StopSessionRequest
	startFailures int
	stopFailures  int
	startErr      error
}

func (f *fakeSessions) StartSession(_ context.Context, req contracts.StartSessionRequest) (*contracts.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.startFailures > 0 {
		f.startFailures--
		return nil, unavailable("startSession")
	}
	return &contracts.SessionResponse{SessionID: req.SessionID, Status: contracts.SessionActive}, nil
}

func (f *fakeSessions) StopSession(_ context.Context, req contracts.StopSessionRequest) (*contracts.SessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, req)
	if f.stopFailures > 0 {
		f.stopFailures--
		return nil, unavailable("stopSession")
	}
	return &contracts.SessionResponse{SessionID: req.SessionID, Status: contracts.SessionStopped, EnergyConsumed: req.EnergyConsumed}, nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

type fixture struct {
	stations     *repository.MemoryStationStore
	transactions *repository.MemoryTransactionStore
	users        *fakeUsers
	sessions     *fakeSessions
	chargers     *ChargerService
	svc          *TransactionService
}

func newFixture() *fixture {
	f := &fixture{
		stations:     repository.NewMemoryStationStore(),
		transactions: repository.NewMemoryTransactionStore(),
		users: &fakeUsers{byEmail: map[string]contracts.UserDTO{
			"driver@example.com": {ID: 7, Email: "driver@example.com", Role: "user"},
		}},
		sessions: &fakeSessions{},
	}
	f.chargers = NewChargerService(f.stations, zap.NewNop())
	f.svc = NewTransactionService(f.transactions, f.stations, f.chargers, f.users, f.sessions, fastPolicy(), zap.NewNop())
	return f
}
