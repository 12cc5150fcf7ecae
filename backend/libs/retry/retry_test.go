package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/contracts"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func transient() error {
	return &contracts.RemoteCallError{Op: "test", Err: context.DeadlineExceeded}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var notified []uint
	got, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 5 {
			return "", transient()
		}
		return "ok", nil
	}, func(attempt uint, err error, next time.Duration) {
		notified = append(notified, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []uint{1, 2, 3, 4}, notified)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, contracts.ErrInsufficientFunds
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientFunds))
	assert.Equal(t, 1, calls)
}

func TestDoReturnsRemoteCallErrorWhenExhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, transient()
	}, nil)
	require.Error(t, err)
	assert.True(t, contracts.IsRemoteCallError(err))
	assert.Equal(t, 5, calls)
}

func TestDoAppliesAttemptTimeout(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 1
	p.AttemptTimeout = 5 * time.Millisecond
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, &contracts.RemoteCallError{Op: "slow", Err: ctx.Err()}
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPolicyBudget(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 150 * time.Millisecond, AttemptTimeout: time.Second}
	assert.Equal(t, 3*time.Second+250*time.Millisecond, p.Budget())

	p.Jitter = 0.5
	assert.Equal(t, 3*time.Second+375*time.Millisecond, p.Budget())

	single := Policy{MaxAttempts: 1, BaseDelay: time.Second, AttemptTimeout: 2 * time.Second}
	assert.Equal(t, 2*time.Second, single.Budget())
}
