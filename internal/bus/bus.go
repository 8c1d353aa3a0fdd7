// Package bus implements the in-memory publish/subscribe event bus.
//
// The bus routes events by discriminator key. Dispatch is asynchronous:
// Publish snapshots the handler list under the lock, releases it, and hands
// the snapshot to a dispatch goroutine, so a slow or failing handler never
// blocks the publisher or the registry. Handlers registered for the same key
// run in registration order within one publish; distinct publishes are
// unordered relative to each other.
package bus

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/socket-link/kore/internal/domain/event"
)

// Handler processes a delivered event. An error return is logged and
// isolated; it never affects sibling handlers or the publisher.
type Handler func(ctx context.Context, ev event.Event) error

// Metrics records bus activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordPublish(key event.Key, handlers int)
	RecordHandlerError(key event.Key)
}

type noopMetrics struct{}

func (noopMetrics) RecordPublish(event.Key, int) {}
func (noopMetrics) RecordHandlerError(event.Key) {}

type registration struct {
	agentID string
	handler Handler
}

// Bus is a thread-safe in-memory event router. Construct one at startup and
// pass it to every component that needs it.
type Bus struct {
	mu       sync.Mutex
	handlers map[event.Key][]registration
	subs     map[event.Key]event.Subscription
	metrics  Metrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithMetrics attaches a metrics recorder to the bus.
func WithMetrics(m Metrics) Option {
	return func(b *Bus) {
		if m != nil {
			b.metrics = m
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[event.Key][]registration),
		subs:     make(map[event.Key]event.Subscription),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish fans the event out to every handler registered for its key.
// It returns once the handler list has been snapshotted; handler execution
// happens on a dispatch goroutine and is never awaited by the caller.
// No registered handlers is a silent no-op.
func (b *Bus) Publish(ctx context.Context, ev event.Event) {
	key := ev.Key()

	b.mu.Lock()
	snapshot := slices.Clone(b.handlers[key])
	b.mu.Unlock()

	head := ev.Head()
	if len(snapshot) == 0 {
		slog.Debug("event published with no subscribers", "key", key.String(), "event_id", head.ID)
		return
	}

	b.metrics.RecordPublish(key, len(snapshot))
	slog.Debug("event published", "key", key.String(), "event_id", head.ID, "handlers", len(snapshot))

	// Dispatch outlives the publisher's request context.
	dispatchCtx := context.WithoutCancel(ctx)
	go func() {
		for _, reg := range snapshot {
			b.invoke(dispatchCtx, key, reg, ev)
		}
	}()
}

// invoke runs one handler with a recover boundary so a panicking or failing
// subscriber cannot take down the dispatch loop.
func (b *Bus) invoke(ctx context.Context, key event.Key, reg registration, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordHandlerError(key)
			slog.Error("event handler panicked",
				"key", key.String(),
				"event_id", ev.Head().ID,
				"agent_id", reg.agentID,
				"panic", r,
			)
		}
	}()

	if err := reg.handler(ctx, ev); err != nil {
		b.metrics.RecordHandlerError(key)
		slog.Error("event handler failed",
			"key", key.String(),
			"event_id", ev.Head().ID,
			"agent_id", reg.agentID,
			"error", err,
		)
	}
}

// Subscribe registers handler for the given key on behalf of agentID and
// returns the resulting Subscription value. Registration appends: duplicate
// subscriptions for the same key each receive the event.
func (b *Bus) Subscribe(agentID string, key event.Key, handler Handler) event.Subscription {
	sub := event.NewSubscription(agentID, key)

	b.mu.Lock()
	b.handlers[key] = append(b.handlers[key], registration{agentID: agentID, handler: handler})
	b.subs[key] = sub
	b.mu.Unlock()

	slog.Debug("subscribed", "key", key.String(), "agent_id", agentID)
	return sub
}

// Unsubscribe removes all handlers and the subscription mapping for key.
// Unknown keys are a no-op.
func (b *Bus) Unsubscribe(key event.Key) {
	b.mu.Lock()
	delete(b.handlers, key)
	delete(b.subs, key)
	b.mu.Unlock()

	slog.Debug("unsubscribed", "key", key.String())
}

// Subscription returns the recorded subscription for key, if any.
func (b *Bus) Subscription(key event.Key) (event.Subscription, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[key]
	return sub, ok
}

// SubscriberCount returns the number of handlers registered for key.
func (b *Bus) SubscriberCount(key event.Key) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[key])
}
