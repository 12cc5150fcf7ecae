package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SettlementLock is a per-session exclusive lock shared by every charging-service instance.
// The TTL must outlive one settlement run including all retries.
type SettlementLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSettlementLock builds lock.
func NewSettlementLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SettlementLock {
	return &SettlementLock{client: client, ttl: ttl, logger: logger}
}

func (l *SettlementLock) key(sessionID string) string {
	return fmt.Sprintf("sessions:settle-lock:%s", sessionID)
}

// Acquire takes the lock or fails with contracts.ErrSettlementInProgress.
func (l *SettlementLock) Acquire(ctx context.Context, sessionID string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(sessionID), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("settlement lock: %w", err)
	}
	if !ok {
		return nil, contracts.ErrSettlementInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key(sessionID)}, token).Err(); err != nil {
			l.logger.Warn("failed to release settlement lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}, nil
}
