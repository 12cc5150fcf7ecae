package repository

import (
	"context"
	"sync"
	"time"

	"evcharge/backend/services/user-service/internal/models"
)

// MemoryUserStore is an in-process UserStore for tests and local runs.
type MemoryUserStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]models.User
	byEmail map[string]int64
}

// NewMemoryUserStore returns an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byID: map[int64]models.User{}, byEmail: map[string]int64{}}
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	if _, ok := s.byEmail[user.Email]; ok {
		return ErrEmailTaken
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	s.byID[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := s.byID[id]
	return &user, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
