package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/payment-service/internal/models"
)

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// MemoryWalletStore keeps wallets in memory; a per-user mutex serializes mutations.
type MemoryWalletStore struct {
	locks keyedMutex

	mu      sync.RWMutex
	wallets map[int64]models.Wallet
	entries map[string]models.Entry
	order   []string
}

// NewMemoryWalletStore builds an empty store.
func NewMemoryWalletStore() *MemoryWalletStore {
	return &MemoryWalletStore{
		wallets: make(map[int64]models.Wallet),
		entries: make(map[string]models.Entry),
	}
}

func (s *MemoryWalletStore) Create(_ context.Context, w *models.Wallet) (*models.Wallet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.wallets[w.UserID]; ok {
		return &existing, false, nil
	}
	now := time.Now().UTC()
	stored := *w
	stored.CreatedAt, stored.UpdatedAt = now, now
	s.wallets[w.UserID] = stored
	return &stored, true, nil
}

func (s *MemoryWalletStore) Get(_ context.Context, userID int64) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, notFound("wallet")
	}
	return &w, nil
}

func (s *MemoryWalletStore) EntryByKey(_ context.Context, key string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, notFound("ledger entry")
	}
	return &e, nil
}

func (s *MemoryWalletStore) Entries(_ context.Context, userID int64, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Entry
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.entries[s.order[i]]; e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryWalletStore) WithWallet(ctx context.Context, userID int64, fn func(tx WalletTx) error) error {
	unlock := s.locks.lock(fmt.Sprint(userID))
	defer unlock()

	w, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	tx := &memWalletTx{store: s, wallet: w}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type memWalletTx struct {
	store   *MemoryWalletStore
	wallet  *models.Wallet
	pending []models.Entry
}

func (t *memWalletTx) Wallet() *models.Wallet { return t.wallet }

func (t *memWalletTx) EntryByKey(ctx context.Context, key string) (*models.Entry, error) {
	for i := range t.pending {
		if t.pending[i].IdempotencyKey == key {
			e := t.pending[i]
			return &e, nil
		}
	}
	return t.store.EntryByKey(ctx, key)
}

func (t *memWalletTx) Apply(_ context.Context, e *models.Entry) error {
	e.WalletID = t.wallet.ID
	e.UserID = t.wallet.UserID
	e.CreatedAt = time.Now().UTC()
	t.pending = append(t.pending, *e)
	t.wallet.Balance = e.BalanceAfter
	return nil
}

func (t *memWalletTx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range t.pending {
		if _, dup := s.entries[e.IdempotencyKey]; dup {
			return fmt.Errorf("key %q: %w", e.IdempotencyKey, contracts.ErrIdempotencyConflict)
		}
	}
	for _, e := range t.pending {
		s.entries[e.IdempotencyKey] = e
		s.order = append(s.order, e.IdempotencyKey)
	}
	w := *t.wallet
	w.UpdatedAt = time.Now().UTC()
	s.wallets[w.UserID] = w
	return nil
}

// MemoryPaymentStore keeps payment records in memory.
type MemoryPaymentStore struct {
	locks keyedMutex

	mu       sync.RWMutex
	payments map[string]models.Payment
}

// NewMemoryPaymentStore builds an empty store.
func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{payments: make(map[string]models.Payment)}
}

func (s *MemoryPaymentStore) GetBySession(_ context.Context, sessionID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[sessionID]
	if !ok {
		return nil, notFound("payment")
	}
	return &p, nil
}

func (s *MemoryPaymentStore) ListByUser(_ context.Context, userID int64, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPaymentStore) WithSession(_ context.Context, sessionID string, fn func(tx PaymentTx) error) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	tx := &memPaymentTx{store: s, sessionID: sessionID}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.dirty != nil {
		s.mu.Lock()
		s.payments[sessionID] = *tx.dirty
		s.mu.Unlock()
	}
	return nil
}

type memPaymentTx struct {
	store     *MemoryPaymentStore
	sessionID string
	dirty     *models.Payment
}

func (t *memPaymentTx) Get(ctx context.Context) (*models.Payment, error) {
	if t.dirty != nil {
		p := *t.dirty
		return &p, nil
	}
	return t.store.GetBySession(ctx, t.sessionID)
}

func (t *memPaymentTx) Insert(ctx context.Context, p *models.Payment) error {
	if _, err := t.Get(ctx); err == nil {
		return contracts.ErrIdempotencyConflict
	}
	now := time.Now().UTC()
	p.SessionID = t.sessionID
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	t.dirty = &stored
	return nil
}

func (t *memPaymentTx) Update(ctx context.Context, p *models.Payment) error {
	if _, err := t.Get(ctx); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	stored := *p
	t.dirty = &stored
	return nil
}
