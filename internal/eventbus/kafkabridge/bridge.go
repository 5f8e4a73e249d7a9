// Package kafkabridge is an optional audit sink: it subscribes to every
// saga event type on the in-process bus and forwards each one to a Kafka
// topic for external/offline consumers. It never participates in saga
// causality — publish failures here are logged and otherwise ignored, the
// same "logged and swallowed" contract every other bus handler gets.
//
// A thin adapter over a Kafka sync producer,
// repurposed from the saga's own transport to an optional side-channel.
package kafkabridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
)

// allEventTypes lists every event type the saga emits; the
// bridge subscribes to each one individually since the bus has no
// wildcard subscription.
var allEventTypes = []events.Type{
	events.OrderPlaced,
	events.InventoryReserved,
	events.InventoryReservationFailed,
	events.OrderConfirmed,
	events.OrderRejected,
	events.PaymentProcessed,
	events.PaymentFailed,
	events.OrderPaid,
	events.OrderPaymentFailed,
	events.ShipmentCreated,
	events.OrderShipped,
	events.OrderCancelled,
	events.InventoryReleased,
}

// Bridge forwards bus events to a Kafka topic via a sync producer.
type Bridge struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// New connects to brokers and returns a ready Bridge, configured as an
// idempotent producer.
func New(brokers []string, topic string, logger *zap.Logger) (*Bridge, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafkabridge: create producer: %w", err)
	}

	return &Bridge{producer: producer, topic: topic, logger: logger}, nil
}

// Attach subscribes the bridge to every saga event type on bus.
func (b *Bridge) Attach(bus *eventbus.Bus) {
	for _, t := range allEventTypes {
		bus.Subscribe(t, b.forward)
	}
}

func (b *Bridge) forward(_ context.Context, event events.Event) error {
	envelope := event.Envelope()
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("kafkabridge: marshal envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(envelope.AggregateID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := b.producer.SendMessage(msg)
	if err != nil {
		b.logger.Error("kafka bridge send failed",
			zap.String("eventType", string(envelope.EventType)),
			zap.Error(err))
		return err
	}

	b.logger.Debug("kafka bridge forwarded event",
		zap.String("eventType", string(envelope.EventType)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close releases the underlying producer.
func (b *Bridge) Close() error { return b.producer.Close() }
