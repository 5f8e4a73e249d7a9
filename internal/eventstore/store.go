// Package eventstore implements the append-only event log: idempotent
// save-by-id, and lookups by id, aggregate, and event type.
package eventstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
)

// Store is the event store contract every adapter (in-memory, Postgres)
// implements.
type Store interface {
	Save(ctx context.Context, event events.Envelope) error
	FindByID(ctx context.Context, eventID string) (events.Envelope, error)
	FindByAggregateID(ctx context.Context, aggregateID string) ([]events.Envelope, error)
	FindByEventType(ctx context.Context, eventType events.Type) ([]events.Envelope, error)
	FindAll(ctx context.Context) ([]events.Envelope, error)
}

// MemoryStore is the default in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]events.Envelope
	order  []string // insertion order of distinct event ids, for stable iteration
}

// NewMemoryStore builds an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]events.Envelope)}
}

// Save appends event, or is a no-op if eventID was already saved — the
// store never holds two rows for the same eventID.
func (s *MemoryStore) Save(_ context.Context, event events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[event.EventID]; exists {
		return nil
	}
	s.byID[event.EventID] = event
	s.order = append(s.order, event.EventID)
	return nil
}

// FindByID returns the event with the given id, or a NotFoundError.
func (s *MemoryStore) FindByID(_ context.Context, eventID string) (events.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[eventID]
	if !ok {
		return events.Envelope{}, apperr.NewNotFound("event", eventID)
	}
	return e, nil
}

// FindByAggregateID returns events for aggregateID ordered ascending by
// OccurredAt.
func (s *MemoryStore) FindByAggregateID(_ context.Context, aggregateID string) ([]events.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Envelope
	for _, id := range s.order {
		e := s.byID[id]
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// FindByEventType returns events of eventType ordered descending by
// OccurredAt.
func (s *MemoryStore) FindByEventType(_ context.Context, eventType events.Type) ([]events.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Envelope
	for _, id := range s.order {
		e := s.byID[id]
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

// FindAll returns every event ordered descending by OccurredAt.
func (s *MemoryStore) FindAll(_ context.Context) ([]events.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.Envelope, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}
