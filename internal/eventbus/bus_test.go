package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/common/logger"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
)

type fakeEvent struct{}

func (fakeEvent) EventType() events.Type  { return events.OrderPlaced }
func (fakeEvent) Envelope() events.Envelope { return events.Envelope{EventType: events.OrderPlaced} }

func TestPublishFansOutToEveryHandler(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	var calls int32

	for i := 0; i < 3; i++ {
		bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}

	require.NoError(t, bus.Publish(context.Background(), fakeEvent{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishWaitsForAllHandlers(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	var wg sync.WaitGroup
	wg.Add(1)
	var ran bool

	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		defer wg.Done()
		ran = true
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), fakeEvent{}))
	assert.True(t, ran, "Publish must return only after every handler settles")
	wg.Wait()
}

func TestHandlerErrorIsIsolated(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	var secondRan bool

	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		return errors.New("handler one failed")
	})
	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(context.Background(), fakeEvent{})
	require.NoError(t, err, "a handler error must never propagate to the publisher")
	assert.True(t, secondRan, "a sibling handler must still run")
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	var secondRan bool

	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		panic("boom")
	})
	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		secondRan = true
		return nil
	})

	assert.NotPanics(t, func() {
		err := bus.Publish(context.Background(), fakeEvent{})
		require.NoError(t, err)
	})
	assert.True(t, secondRan)
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	require.NoError(t, bus.Publish(context.Background(), fakeEvent{}))
}

func TestSubscriberCount(t *testing.T) {
	bus := eventbus.New(logger.NewTest())
	assert.Equal(t, 0, bus.SubscriberCount(events.OrderPlaced))

	bus.Subscribe(events.OrderPlaced, func(context.Context, events.Event) error { return nil })
	assert.Equal(t, 1, bus.SubscriberCount(events.OrderPlaced))

	bus.Clear()
	assert.Equal(t, 0, bus.SubscriberCount(events.OrderPlaced))
}
