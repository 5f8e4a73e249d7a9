package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/common/money"
	"github.com/kyungseok/orderflow-saga/internal/common/retry"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
)

// DefaultMethod is used when the saga does not carry a payment method of
// its own; the Order aggregate does not model one, and the OrderConfirmed
// trigger only supplies the order total.
const DefaultMethod = "CARD"

// ProcessPaymentService is the OrderConfirmed subscriber: it processes
// payment for the order and publishes PaymentProcessed or PaymentFailed.
type ProcessPaymentService struct {
	repo    Repository
	gateway Gateway
	bus     *eventbus.Bus
	logger  *zap.Logger
}

// NewProcessPaymentService builds a ProcessPaymentService.
func NewProcessPaymentService(repo Repository, gateway Gateway, bus *eventbus.Bus, logger *zap.Logger) *ProcessPaymentService {
	return &ProcessPaymentService{repo: repo, gateway: gateway, bus: bus, logger: logger}
}

// Process creates a Payment for orderID/amount, drives it through the
// gateway, and emits PaymentProcessed or PaymentFailed.
func (s *ProcessPaymentService) Process(ctx context.Context, orderID string, amount money.Money) error {
	now := time.Now()
	p, err := New(uuid.New().String(), orderID, amount, DefaultMethod, now)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	if err := p.BeginProcessing(time.Now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	// The gateway call is the one infrastructure hop in this path, and
	// retrying it is safe: a PROCESSING payment has not yet settled, so a
	// transient gateway error can be retried without double-charging.
	result, err := retry.DoWithResult(ctx, retry.DefaultConfig(), s.logger, func() (GatewayResult, error) {
		return s.gateway.Process(ctx, amount, p.Method)
	})
	if err != nil {
		return s.fail(ctx, p, err.Error())
	}
	if !result.Success {
		return s.fail(ctx, p, result.Error)
	}

	if err := p.MarkSucceeded(result.TransactionID, time.Now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	s.logger.Info("payment processed", zap.String("paymentId", p.ID), zap.String("orderId", orderID))
	return s.bus.Publish(ctx, events.PaymentProcessedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: p.ID, AggregateType: "Payment",
			OccurredAt: time.Now(), Version: p.Version,
		},
		PaymentID:     p.ID,
		OrderID:       orderID,
		Amount:        amount.Amount(),
		Currency:      amount.Currency(),
		PaymentMethod: p.Method,
	})
}

func (s *ProcessPaymentService) fail(ctx context.Context, p *Payment, reason string) error {
	if err := p.MarkFailed(reason, time.Now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	s.logger.Warn("payment failed", zap.String("paymentId", p.ID), zap.String("orderId", p.OrderID), zap.String("reason", reason))
	return s.bus.Publish(ctx, events.PaymentFailedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: p.ID, AggregateType: "Payment",
			OccurredAt: time.Now(), Version: p.Version,
		},
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Reason:    reason,
	})
}
