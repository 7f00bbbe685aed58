package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Subscription is a live feed of contract events.
type Subscription interface {
	ID() string
	Events() <-chan Event
	Cancel()
}

type subscription struct {
	id     string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) ID() string           { return s.id }
func (s *subscription) Events() <-chan Event { return s.events }
func (s *subscription) Cancel()              { s.cancel() }

// Broadcaster is an in-process Sink that fans events out to
// subscribers. Delivery is best-effort: a subscriber whose buffer is
// full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]*subscription)}
}

// Subscribe registers a new subscriber. The subscription ends when ctx
// is cancelled or Cancel is called.
func (b *Broadcaster) Subscribe(ctx context.Context) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:     uuid.NewString(),
		events: make(chan Event, defaultBufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub.id)
		remaining := len(b.subs)
		b.mu.Unlock()
		close(sub.events)
		close(sub.done)
		slog.Debug("event subscription removed",
			"subscription_id", sub.id, "remaining_subscriptions", remaining)
	}()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return sub
	}
	b.subs[sub.id] = sub
	active := len(b.subs)
	b.mu.Unlock()

	slog.Debug("event subscription registered",
		"subscription_id", sub.id, "active_subscriptions", active)
	return sub
}

// Emit fans the event out to every subscriber without blocking.
func (b *Broadcaster) Emit(_ context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			slog.Warn("event subscriber buffer full, event dropped",
				"subscription_id", sub.id, "type", string(ev.Type))
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
