// Package retry runs remote operations under a bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"evcharge/backend/libs/contracts"
)

// Policy bounds a retry loop. Delays double from BaseDelay up to MaxDelay.
type Policy struct {
	MaxAttempts    uint          `yaml:"maxAttempts"`
	BaseDelay      time.Duration `yaml:"baseDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
	Jitter         float64       `yaml:"jitter"`
}

// DefaultPolicy is 5 attempts, 200ms doubling, capped at 5s, 3s per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      200 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		AttemptTimeout: 3 * time.Second,
		Jitter:         0.2,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = 0
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	return b
}

// Budget is the longest time Do can take under p: every attempt running into
// AttemptTimeout plus the largest wait between attempts. Attempts are not counted when
// AttemptTimeout is zero.
func (p Policy) Budget() time.Duration {
	p = p.normalized()
	var (
		total time.Duration
		delay = p.BaseDelay
	)
	for i := uint(0); i < p.MaxAttempts; i++ {
		total += p.AttemptTimeout
		if i+1 == p.MaxAttempts {
			break
		}
		total += time.Duration(float64(delay) * (1 + p.Jitter))
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return total
}

// Notify is called after each failed attempt that will be retried.
type Notify func(attempt uint, err error, next time.Duration)

// Do runs op until it succeeds, returns a non-transient error, or the attempts are used up.
// Only *contracts.RemoteCallError is treated as transient. After exhaustion the last
// RemoteCallError is returned, so callers detect exhaustion with contracts.IsRemoteCallError.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify Notify) (T, error) {
	p = p.normalized()
	var attempt uint

	operation := func() (T, error) {
		attempt++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}
		if !contracts.IsRemoteCallError(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(p.MaxAttempts),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, next time.Duration) {
			notify(attempt, err, next)
		}))
	}
	return backoff.Retry(ctx, operation, opts...)
}
