package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"evcharge/backend/libs/contracts"
)

// ActiveSession stored in redis for quick access.
type ActiveSession struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	ChargerID string    `json:"charger_id"`
	StationID string    `json:"station_id"`
	StartTime time.Time `json:"start_time"`
}

// Store manages active session cache. Each session is also indexed by charger.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("sessions:active:%s", sessionID)
}

func (s *Store) chargerKey(chargerID string) string {
	return fmt.Sprintf("sessions:charger:%s", chargerID)
}

// Save caches session.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(session.SessionID), data, s.ttl)
	pipe.Set(ctx, s.chargerKey(session.ChargerID), session.SessionID, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Get returns cached session.
func (s *Store) Get(ctx context.Context, sessionID string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ByCharger returns the active session id on chargerID.
func (s *Store) ByCharger(ctx context.Context, chargerID string) (string, error) {
	id, err := s.client.Get(ctx, s.chargerKey(chargerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", contracts.ErrNotFound
	}
	return id, err
}

// Delete removes cached session.
func (s *Store) Delete(ctx context.Context, sessionID, chargerID string) error {
	return s.client.Del(ctx, s.key(sessionID), s.chargerKey(chargerID)).Err()
}
