package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/retry"
	"evcharge/backend/services/charging-service/internal/models"
	redisstore "evcharge/backend/services/charging-service/internal/redis"
	"evcharge/backend/services/charging-service/internal/repository"
)

func timeoutErr(op string) error {
	return &contracts.RemoteCallError{Op: op, Err: context.DeadlineExceeded}
}

// fakePayments behaves like payment-service: one debit per session id, terminal records
// returned as is.
type fakePayments struct {
	mu       sync.Mutex
	balances map[int64]contracts.Money
	records  map[string]*contracts.PaymentResponse
	debits   map[string]int
	calls    int
	cancels  []contracts.CancelPaymentRequest

	// failures makes the next N processPayment calls time out.
	failures int
	// commitThenFail applies the debit before reporting the timeout.
	commitThenFail bool
	cancelFailures int
	permanentErr   error
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		balances: make(map[int64]contracts.Money),
		records:  make(map[string]*contracts.PaymentResponse),
		debits:   make(map[string]int),
	}
}

func (f *fakePayments) fund(userID int64, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = contracts.MustMoney(amount)
}

func (f *fakePayments) balance(userID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID].String()
}

func (f *fakePayments) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakePayments) debitCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.debits[sessionID]
}

func (f *fakePayments) ProcessPayment(_ context.Context, req contracts.ProcessPaymentRequest) (*contracts.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.permanentErr != nil {
		return nil, f.permanentErr
	}
	fail := f.failures > 0
	if fail {
		f.failures--
		if !f.commitThenFail {
			return nil, timeoutErr("processPayment")
		}
	}
	resp := f.apply(req)
	if fail {
		return nil, timeoutErr("processPayment")
	}
	return resp, nil
}

func (f *fakePayments) apply(req contracts.ProcessPaymentRequest) *contracts.PaymentResponse {
	if rec, ok := f.records[req.SessionID]; ok {
		out := *rec
		return &out
	}
	rec := &contracts.PaymentResponse{
		PaymentID: "pay-" + req.SessionID,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		CreatedAt: time.Now().UTC(),
	}
	bal := f.balances[req.UserID]
	if bal.LessThan(req.Amount) {
		rec.Status = contracts.PaymentFailed
		rec.Reason = contracts.ReasonInsufficientFunds
	} else {
		bal = bal.Sub(req.Amount)
		f.balances[req.UserID] = bal
		f.debits[req.SessionID]++
		rec.Status = contracts.PaymentSucceeded
		rec.NewBalance = &bal
	}
	f.records[req.SessionID] = rec
	out := *rec
	return &out
}

func (f *fakePayments) CancelPayment(_ context.Context, req contracts.CancelPaymentRequest) (*contracts.PaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelFailures > 0 {
		f.cancelFailures--
		return nil, timeoutErr("cancelPayment")
	}
	f.cancels = append(f.cancels, req)
	rec, ok := f.records[req.SessionID]
	switch {
	case !ok:
		rec = &contracts.PaymentResponse{
			PaymentID: "pay-" + req.SessionID,
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Amount:    req.Amount,
			Status:    contracts.PaymentFailed,
			Reason:    contracts.ReasonVoided,
		}
		f.records[req.SessionID] = rec
	case rec.Status == contracts.PaymentSucceeded:
		f.balances[rec.UserID] = f.balances[rec.UserID].Add(rec.Amount)
		rec.Status = contracts.PaymentRefunded
	}
	out := *rec
	return &out, nil
}

type statusChange struct {
	chargerID string
	update    contracts.ChargerStatusUpdate
}

type fakeStations struct {
	mu       sync.Mutex
	rates    map[string]*contracts.RateResponse
	chargers map[string]*contracts.ChargerResponse
	updates  []statusChange
	rateErr  error
}

func newFakeStations() *fakeStations {
	return &fakeStations{
		rates: map[string]*contracts.RateResponse{
			"st-1": {StationID: "st-1", TariffID: 1, PricePerKWh: contracts.MustMoney("0.25")},
		},
		chargers: map[string]*contracts.ChargerResponse{
			"st-1-1": {ChargerID: "st-1-1", StationID: "st-1", ConnectorID: 1, Status: contracts.ChargerInUse},
		},
	}
}

func (f *fakeStations) GetCharger(_ context.Context, chargerID string) (*contracts.ChargerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chargers[chargerID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeStations) Rate(_ context.Context, stationID string) (*contracts.RateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	r, ok := f.rates[stationID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (f *fakeStations) UpdateChargerStatus(_ context.Context, chargerID string, update contracts.ChargerStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusChange{chargerID: chargerID, update: update})
	return nil
}

func (f *fakeStations) statusUpdates() []statusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusChange(nil), f.updates...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []contracts.NotificationRequest
}

func (f *fakeNotifier) Notify(_ context.Context, req contracts.NotificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeNotifier) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.sent {
		out = append(out, n.Type)
	}
	return out
}

type fakeUsers struct{}

func (fakeUsers) GetUser(_ context.Context, userID int64) (*contracts.UserDTO, error) {
	if userID == 404 {
		return nil, contracts.ErrNotFound
	}
	return &contracts.UserDTO{ID: userID, Email: "driver@example.com", Role: "user"}, nil
}

type fakeCache struct {
	mu     sync.Mutex
	active map[string]redisstore.ActiveSession
}

func (c *fakeCache) Save(_ context.Context, s redisstore.ActiveSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		c.active = make(map[string]redisstore.ActiveSession)
	}
	c.active[s.SessionID] = s
	return nil
}

func (c *fakeCache) Delete(_ context.Context, sessionID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, sessionID)
	return nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

type settlerFixture struct {
	store    *repository.MemorySessionStore
	payments *fakePayments
	stations *fakeStations
	notifier *fakeNotifier
	lock     *LocalLock
	settler  *Settler
}

func newSettlerFixture(t *testing.T) *settlerFixture {
	t.Helper()
	f := &settlerFixture{
		store:    repository.NewMemorySessionStore(),
		payments: newFakePayments(),
		stations: newFakeStations(),
		notifier: &fakeNotifier{},
		lock:     NewLocalLock(),
	}
	f.settler = NewSettler(f.store, f.payments, f.stations, f.notifier, f.lock,
		SettlerOptions{Payment: fastPolicy(), Release: fastPolicy()}, zap.NewNop())
	return f
}

// stoppedSession stores a session that ran on charger st-1-1 and stopped with energy kWh.
func (f *settlerFixture) stoppedSession(t *testing.T, id string, userID int64, energy string) *models.Session {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s, created, err := f.store.Create(ctx, &models.Session{
		ID:        id,
		UserID:    userID,
		ChargerID: "st-1-1",
		StationID: "st-1",
		Status:    contracts.SessionActive,
		StartTime: start,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, s.Stop(start.Add(time.Hour), decimal.RequireFromString(energy)))
	require.NoError(t, f.store.Update(ctx, s))
	return s
}

func activeSession(id string, userID int64) *models.Session {
	return &models.Session{
		ID:        id,
		UserID:    userID,
		ChargerID: "st-1-1",
		StationID: "st-1",
		Status:    contracts.SessionActive,
		StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}
