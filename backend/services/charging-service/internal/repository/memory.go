package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/charging-service/internal/models"
)

// MemorySessionStore keeps sessions in memory with the same version check as Postgres.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

// NewMemorySessionStore builds an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Session), now: time.Now}
}

// SetClock overrides the time source used for updated_at.
func (m *MemorySessionStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemorySessionStore) Create(_ context.Context, s *models.Session) (*models.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[s.ID]; ok {
		return &existing, false, nil
	}
	stored := *s
	stored.Version = 1
	stored.CreatedAt = m.now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	m.sessions[s.ID] = stored
	return &stored, true, nil
}

func (m *MemorySessionStore) Get(_ context.Context, sessionID string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session: %w", contracts.ErrNotFound)
	}
	return &s, nil
}

func (m *MemorySessionStore) Update(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[s.ID]
	if !ok || current.Version != s.Version {
		return fmt.Errorf("session %s at version %d: %w", s.ID, s.Version, contracts.ErrVersionConflict)
	}
	s.Version++
	s.UpdatedAt = m.now().UTC()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemorySessionStore) filter(limit int, keep func(models.Session) bool, less func(a, b models.Session) bool) []models.Session {
	m.mu.RLock()
	var out []models.Session
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newestFirst(a, b models.Session) bool { return a.StartTime.After(b.StartTime) }

func oldestUpdateFirst(a, b models.Session) bool { return a.UpdatedAt.Before(b.UpdatedAt) }

func (m *MemorySessionStore) ListByUser(_ context.Context, userID int64, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool { return s.UserID == userID }, newestFirst), nil
}

func (m *MemorySessionStore) ListActive(_ context.Context, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool { return s.Status == contracts.SessionActive }, newestFirst), nil
}

func (m *MemorySessionStore) ListStale(_ context.Context, statuses []contracts.SessionStatus, before time.Time, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool {
		if !s.UpdatedAt.Before(before) {
			return false
		}
		for _, st := range statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}, oldestUpdateFirst), nil
}

func (m *MemorySessionStore) ListUncompensated(_ context.Context, limit int) ([]models.Session, error) {
	return m.filter(limit, func(s models.Session) bool { return s.NeedsCompensation() }, oldestUpdateFirst), nil
}
