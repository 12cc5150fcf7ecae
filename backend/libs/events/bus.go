// Package events carries session-lifecycle envelopes between services with
// at-least-once delivery. Consumers deduplicate with a Deduplicator.
package events

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/metrics"
)

// DefaultStream is the stream all session events are appended to.
const DefaultStream = "evcharge:sessions"

// DefaultMaxDeliveries caps how often one envelope is handed to a failing handler before
// it is dead-lettered.
const DefaultMaxDeliveries = 10

// ErrSkip tells the consumer loop to ack an envelope without marking it handled.
var ErrSkip = errors.New("events: skip")

// Publisher appends an envelope to the bus.
type Publisher interface {
	Publish(ctx context.Context, env contracts.Envelope) error
}

// Handler processes one envelope. A nil error acks the delivery; any other error leaves it
// for redelivery.
type Handler func(ctx context.Context, env contracts.Envelope) error

// Subscriber runs a consumer group until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, group, consumer string, h Handler) error
}

// Deduplicator remembers handled dedup keys.
type Deduplicator interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Deduplicated wraps h so that an envelope whose DedupKey was already handled is acked
// without calling h again. The key is marked only after h succeeds.
func Deduplicated(d Deduplicator, h Handler, logger *zap.Logger) Handler {
	return func(ctx context.Context, env contracts.Envelope) error {
		key := env.DedupKey()
		seen, err := d.Seen(ctx, key)
		if err != nil {
			logger.Warn("dedup lookup failed, handling anyway", zap.String("key", key), zap.Error(err))
		}
		if seen {
			metrics.CountEvent(string(env.Type), "duplicate")
			logger.Debug("duplicate event skipped", zap.String("key", key))
			return nil
		}

		if err := h(ctx, env); err != nil {
			if errors.Is(err, ErrSkip) {
				metrics.CountEvent(string(env.Type), "skipped")
				return nil
			}
			metrics.CountEvent(string(env.Type), "error")
			return err
		}

		metrics.CountEvent(string(env.Type), "ok")
		if err := d.Mark(ctx, key); err != nil {
			logger.Warn("dedup mark failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

// Only filters envelopes by type; others are acked untouched.
func Only(t contracts.EventType, h Handler) Handler {
	return func(ctx context.Context, env contracts.Envelope) error {
		if env.Type != t {
			return ErrSkip
		}
		return h(ctx, env)
	}
}
