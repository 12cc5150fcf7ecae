package service

import (
	"context"
	"sync"

	"evcharge/backend/libs/contracts"
)

// SettlementLock serializes settlement per session. Acquire fails fast with
// contracts.ErrSettlementInProgress instead of waiting.
type SettlementLock interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// LocalLock is a SettlementLock for a single process.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLock builds lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]struct{})}
}

func (l *LocalLock) Acquire(_ context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[sessionID]; ok {
		return nil, contracts.ErrSettlementInProgress
	}
	l.held[sessionID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, sessionID)
			l.mu.Unlock()
		})
	}, nil
}
