// Package eventbus implements the in-process, publish/subscribe event bus:
// multiple handlers per event type, per-subscriber error isolation, and
// fan-out that completes only once every handler has settled. Nothing
// here serializes handlers the way a Kafka consumer group's partition
// assignment would — that serialization is instead an explicit per-sku
// lock elsewhere (internal/locking).
package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/domain/events"
)

// Handler processes one published event. A returned error is logged and
// swallowed — it never reaches the publisher and never blocks sibling
// handlers.
type Handler func(ctx context.Context, event events.Event) error

// Bus is the process-wide event bus. The zero value is not usable; use New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[events.Type][]Handler
	logger      *zap.Logger
}

// New builds an empty Bus. Passing it through construction rather than a
// package-level singleton keeps tests isolated.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subscribers: make(map[events.Type][]Handler),
		logger:      logger,
	}
}

// Subscribe registers handler for eventType. Multiple handlers per type are
// allowed; invocation order across handlers of the same type is not
// guaranteed.
func (b *Bus) Subscribe(eventType events.Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish fans out event to every handler subscribed to its type and
// returns once all of them have either returned or failed. A handler
// panic is recovered and treated the same as a returned error: logged and
// swallowed.
func (b *Bus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.EventType()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						zap.String("eventType", string(event.EventType())),
						zap.Any("panic", r))
				}
			}()
			if err := h(ctx, event); err != nil {
				b.logger.Warn("event handler failed",
					zap.String("eventType", string(event.EventType())),
					zap.Error(err))
			}
		}(h)
	}
	wg.Wait()
	return nil
}

// Clear removes every subscription. Test-only.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[events.Type][]Handler)
}

// SubscriberCount reports how many handlers are registered for eventType,
// for use in tests asserting wiring.
func (b *Bus) SubscriberCount(eventType events.Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
