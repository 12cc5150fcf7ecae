package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"evcharge/backend/libs/contracts"
)

// MemoryBus is an in-process bus with the same at-least-once contract as StreamBus:
// every group sees every envelope, a failed delivery is retried, and an envelope that
// fails maxDeliveries times is moved to the dead letters.
type MemoryBus struct {
	mu            sync.Mutex
	groups        map[string]chan delivery
	published     []contracts.Envelope
	dead          []contracts.Envelope
	retryDelay    time.Duration
	maxDeliveries int
}

type delivery struct {
	env      contracts.Envelope
	attempts int
}

// NewMemoryBus builds an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		groups:        make(map[string]chan delivery),
		retryDelay:    10 * time.Millisecond,
		maxDeliveries: DefaultMaxDeliveries,
	}
}

func (b *MemoryBus) group(name string) chan delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.groups[name]
	if !ok {
		ch = make(chan delivery, 1024)
		b.groups[name] = ch
		for _, env := range b.published {
			ch <- delivery{env: env}
		}
	}
	return ch
}

// Publish delivers env to every known group and remembers it for groups created later.
func (b *MemoryBus) Publish(ctx context.Context, env contracts.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, env)
	for _, ch := range b.groups {
		select {
		case ch <- delivery{env: env}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Published returns a copy of everything published so far.
func (b *MemoryBus) Published() []contracts.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contracts.Envelope, len(b.published))
	copy(out, b.published)
	return out
}

// DeadLetters returns the envelopes that ran out of deliveries.
func (b *MemoryBus) DeadLetters() []contracts.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]contracts.Envelope, len(b.dead))
	copy(out, b.dead)
	return out
}

// Subscribe handles envelopes of group until ctx is done. Consumers of one group share
// the queue.
func (b *MemoryBus) Subscribe(ctx context.Context, group, _ string, h Handler) error {
	ch := b.group(group)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-ch:
			err := h(ctx, d.env)
			if err == nil || errors.Is(err, ErrSkip) {
				continue
			}
			d.attempts++
			if d.attempts >= b.maxDeliveries {
				b.mu.Lock()
				b.dead = append(b.dead, d.env)
				b.mu.Unlock()
				continue
			}
			go func(d delivery) {
				sleepCtx(ctx, b.retryDelay)
				if ctx.Err() == nil {
					ch <- d
				}
			}(d)
		}
	}
}

// MemoryDeduplicator is a Deduplicator backed by a map.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryDeduplicator builds an empty deduplicator.
func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{keys: make(map[string]struct{})}
}

func (d *MemoryDeduplicator) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.keys[key]
	return ok, nil
}

func (d *MemoryDeduplicator) Mark(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[key] = struct{}{}
	return nil
}
