package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/metrics"
)

const (
	fieldType       = "type"
	fieldEnvelope   = "envelope"
	fieldGroup      = "group"
	fieldDeliveries = "deliveries"
	fieldSourceID   = "source_id"
)

// StreamOptions tune the redis streams consumer.
type StreamOptions struct {
	Stream      string        `yaml:"stream"`
	Block       time.Duration `yaml:"block"`
	Count       int64         `yaml:"count"`
	ClaimIdle   time.Duration `yaml:"claimIdle"`
	MaxLen      int64         `yaml:"maxLen"`
	DedupWindow time.Duration `yaml:"dedupWindow"`
	// MaxDeliveries bounds redelivery of a pending message; beyond it the message is copied
	// to DeadLetterStream and acked.
	MaxDeliveries    int64  `yaml:"maxDeliveries"`
	DeadLetterStream string `yaml:"deadLetterStream"`
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.Stream == "" {
		o.Stream = DefaultStream
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
	if o.Count <= 0 {
		o.Count = 16
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = 30 * time.Second
	}
	if o.MaxLen <= 0 {
		o.MaxLen = 100000
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 24 * time.Hour
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = DefaultMaxDeliveries
	}
	if o.DeadLetterStream == "" {
		o.DeadLetterStream = o.Stream + ":dead"
	}
	return o
}

// StreamBus publishes and consumes envelopes on a redis stream with consumer groups.
type StreamBus struct {
	client *redis.Client
	opts   StreamOptions
	logger *zap.Logger
}

// NewStreamBus builds the bus.
func NewStreamBus(client *redis.Client, opts StreamOptions, logger *zap.Logger) *StreamBus {
	return &StreamBus{client: client, opts: opts.withDefaults(), logger: logger}
}

// Publish appends env to the stream.
func (b *StreamBus) Publish(ctx context.Context, env contracts.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: encode envelope: %w", err)
	}
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.opts.Stream,
		MaxLen: b.opts.MaxLen,
		Approx: true,
		Values: map[string]interface{}{
			fieldType:     string(env.Type),
			fieldEnvelope: string(data),
		},
	}).Err()
}

// Subscribe consumes the stream as a member of group until ctx is done. Messages left
// pending by a failed handler or a crashed consumer are reclaimed after ClaimIdle, at most
// MaxDeliveries times.
func (b *StreamBus) Subscribe(ctx context.Context, group, consumer string, h Handler) error {
	err := b.client.XGroupCreateMkStream(ctx, b.opts.Stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("events: create group %s: %w", group, err)
	}

	log := b.logger.With(zap.String("stream", b.opts.Stream), zap.String("group", group), zap.String("consumer", consumer))
	log.Info("event consumer started")

	claimTicker := time.NewTicker(b.opts.ClaimIdle)
	defer claimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("event consumer stopped")
			return nil
		case <-claimTicker.C:
			b.reclaim(ctx, group, consumer, h, log)
		default:
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{b.opts.Stream, ">"},
			Count:    b.opts.Count,
			Block:    b.opts.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("xreadgroup failed", zap.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				b.handle(ctx, group, msg, h, log)
			}
		}
	}
}

func (b *StreamBus) reclaim(ctx context.Context, group, consumer string, h Handler, log *zap.Logger) {
	start := "0-0"
	for {
		msgs, next, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   b.opts.Stream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  b.opts.ClaimIdle,
			Start:    start,
			Count:    b.opts.Count,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("xautoclaim failed", zap.Error(err))
			}
			return
		}
		for _, msg := range msgs {
			if n := b.deliveries(ctx, group, msg.ID); n > b.opts.MaxDeliveries {
				b.deadLetter(ctx, group, msg, n, log)
				continue
			}
			b.handle(ctx, group, msg, h, log)
		}
		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}

func (b *StreamBus) handle(ctx context.Context, group string, msg redis.XMessage, h Handler, log *zap.Logger) {
	raw, _ := msg.Values[fieldEnvelope].(string)
	var env contracts.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Error("dropping undecodable event", zap.String("id", msg.ID), zap.Error(err))
		b.ack(ctx, group, msg.ID, log)
		return
	}

	if err := h(ctx, env); err != nil && !errors.Is(err, ErrSkip) {
		log.Warn("event handler failed, left pending",
			zap.String("id", msg.ID),
			zap.String("type", string(env.Type)),
			zap.String("session_id", env.SessionID),
			zap.Error(err),
		)
		return
	}
	b.ack(ctx, group, msg.ID, log)
}

// deliveries returns the delivery count of a pending message, or 0 when it is unknown.
func (b *StreamBus) deliveries(ctx context.Context, group, id string) int64 {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: b.opts.Stream,
		Group:  group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return pending[0].RetryCount
}

func (b *StreamBus) deadLetter(ctx context.Context, group string, msg redis.XMessage, deliveries int64, log *zap.Logger) {
	values := map[string]interface{}{
		fieldGroup:      group,
		fieldDeliveries: deliveries,
		fieldSourceID:   msg.ID,
	}
	for k, v := range msg.Values {
		values[k] = v
	}
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.opts.DeadLetterStream,
		MaxLen: b.opts.MaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		log.Warn("dead-letter failed, message stays pending", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	metrics.CountEvent(fmt.Sprint(msg.Values[fieldType]), "dead_letter")
	log.Error("event dead-lettered",
		zap.String("id", msg.ID),
		zap.Int64("deliveries", deliveries),
		zap.String("dead_letter_stream", b.opts.DeadLetterStream),
	)
	b.ack(ctx, group, msg.ID, log)
}

func (b *StreamBus) ack(ctx context.Context, group, id string, log *zap.Logger) {
	if err := b.client.XAck(ctx, b.opts.Stream, group, id).Err(); err != nil {
		log.Warn("xack failed", zap.String("id", id), zap.Error(err))
	}
}

// RedisDeduplicator stores handled keys with SETNX and a TTL.
type RedisDeduplicator struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDeduplicator builds a deduplicator scoped by prefix (usually the consumer group).
func NewRedisDeduplicator(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduplicator{client: client, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduplicator) key(k string) string {
	return fmt.Sprintf("events:dedup:%s:%s", d.prefix, k)
}

// Seen reports whether key was marked.
func (d *RedisDeduplicator) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records key as handled.
func (d *RedisDeduplicator) Mark(ctx context.Context, key string) error {
	return d.client.SetNX(ctx, d.key(key), time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
