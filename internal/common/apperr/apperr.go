// Package apperr defines the typed error taxonomy used across the saga:
// validation, not-found, business-rule, and infrastructure errors. Domain
// code returns these directly; the one transport adapter maps them to
// status codes via Status.
package apperr

import "fmt"

// ValidationError signals malformed caller input (negative amount, empty
// sku, bad currency code, empty items, ...).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}

// NewValidation builds a ValidationError.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError signals a missing aggregate by id or natural key.
type NotFoundError struct {
	Kind string // e.g. "product", "order", "payment", "shipment", "event"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// BusinessRuleError signals a forbidden state transition, over-reservation,
// over-release, or other domain-invariant violation.
type BusinessRuleError struct {
	Rule    string // e.g. "order.transition", "inventory.over-reserve"
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violated (%s): %s", e.Rule, e.Message)
}

// NewBusinessRule builds a BusinessRuleError.
func NewBusinessRule(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

// InfrastructureError wraps a store/gateway failure. Cause is always set.
type InfrastructureError struct {
	Op    string // e.g. "eventstore.save", "paymentgateway.process"
	Cause error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure in %s: %v", e.Op, e.Cause)
}

func (e *InfrastructureError) Unwrap() error { return e.Cause }

// NewInfrastructure builds an InfrastructureError.
func NewInfrastructure(op string, cause error) *InfrastructureError {
	return &InfrastructureError{Op: op, Cause: cause}
}

// Retryable reports whether err is an InfrastructureError — the only
// taxonomy member the handler boundary should retry.
func Retryable(err error) bool {
	_, ok := err.(*InfrastructureError)
	return ok
}

// HTTP status codes.
const (
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusUnprocessableEntity = 422
	StatusInternalServerError = 500
)

// Status maps an error to the transport-layer status code it implies.
// Unrecognized errors map to 500.
func Status(err error) int {
	switch err.(type) {
	case *ValidationError:
		return StatusBadRequest
	case *NotFoundError:
		return StatusNotFound
	case *BusinessRuleError:
		return StatusUnprocessableEntity
	case *InfrastructureError:
		return StatusInternalServerError
	default:
		return StatusInternalServerError
	}
}
