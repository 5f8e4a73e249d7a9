// Package payment implements the Payment bounded context: the Payment
// aggregate's PENDING/PROCESSING/SUCCEEDED/FAILED state
// machine, the PaymentGateway port, and ProcessPaymentService.
package payment

import (
	"time"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/common/money"
)

// MaxRetryAttempts bounds FAILED -> PENDING retry().
const MaxRetryAttempts = 3

// Status is one of the four payment states.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

// Payment is the payment aggregate.
type Payment struct {
	ID                  string
	OrderID             string
	Amount              money.Money
	Method              string
	Status              Status
	TransactionID       string
	FailureReason       string
	ProcessingAttempts  int
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// New constructs a PENDING payment for orderID.
func New(id, orderID string, amount money.Money, method string, now time.Time) (*Payment, error) {
	if orderID == "" {
		return nil, apperr.NewValidation("orderId", "must not be empty")
	}
	if method == "" {
		return nil, apperr.NewValidation("method", "must not be empty")
	}
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Payment) transitionError(method string, to Status) error {
	return apperr.NewBusinessRule("payment.transition",
		method+": cannot transition from "+string(p.Status)+" to "+string(to))
}

// BeginProcessing transitions PENDING -> PROCESSING ahead of a gateway call.
func (p *Payment) BeginProcessing(now time.Time) error {
	if p.Status != StatusPending {
		return p.transitionError("beginProcessing", StatusProcessing)
	}
	p.Status = StatusProcessing
	p.ProcessingAttempts++
	p.Version++
	p.UpdatedAt = now
	return nil
}

// MarkSucceeded transitions PROCESSING -> SUCCEEDED.
func (p *Payment) MarkSucceeded(transactionID string, now time.Time) error {
	if p.Status != StatusProcessing {
		return p.transitionError("markSucceeded", StatusSucceeded)
	}
	p.TransactionID = transactionID
	p.Status = StatusSucceeded
	p.Version++
	p.UpdatedAt = now
	return nil
}

// MarkFailed transitions PROCESSING -> FAILED.
func (p *Payment) MarkFailed(reason string, now time.Time) error {
	if p.Status != StatusProcessing {
		return p.transitionError("markFailed", StatusFailed)
	}
	p.FailureReason = reason
	p.Status = StatusFailed
	p.Version++
	p.UpdatedAt = now
	return nil
}

// Retry transitions FAILED -> PENDING, failing once ProcessingAttempts has
// reached MaxRetryAttempts.
func (p *Payment) Retry(now time.Time) error {
	if p.Status != StatusFailed {
		return p.transitionError("retry", StatusPending)
	}
	if p.ProcessingAttempts >= MaxRetryAttempts {
		return apperr.NewBusinessRule("payment.retry", "max retry attempts exceeded")
	}
	p.Status = StatusPending
	p.Version++
	p.UpdatedAt = now
	return nil
}
