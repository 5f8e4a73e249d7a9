package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kyungseok/orderflow-saga/internal/common/money"
)

// GatewayResult is the outcome of one PaymentGateway.Process call.
type GatewayResult struct {
	Success       bool
	TransactionID string
	Error         string
}

// Gateway is the external payment capability: process an amount for a
// method, asynchronously, possibly suspending.
type Gateway interface {
	Process(ctx context.Context, amount money.Money, method string) (GatewayResult, error)
}

// MockGateway is the reference Gateway: succeeds with a configurable
// probability after a fixed simulated network delay (a rand.Float64 roll
// against SuccessRate, after waiting Delay or until ctx is done).
type MockGateway struct {
	SuccessRate float64 // in [0, 1]; 0.9 means ~90% succeed
	Delay       time.Duration
	rand        *rand.Rand
}

// NewMockGateway builds a MockGateway with the given success rate and
// simulated delay.
func NewMockGateway(successRate float64, delay time.Duration) *MockGateway {
	return &MockGateway{
		SuccessRate: successRate,
		Delay:       delay,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Process simulates a gateway round trip.
func (g *MockGateway) Process(ctx context.Context, amount money.Money, method string) (GatewayResult, error) {
	select {
	case <-time.After(g.Delay):
	case <-ctx.Done():
		return GatewayResult{}, ctx.Err()
	}

	if g.rand.Float64() < g.SuccessRate {
		return GatewayResult{
			Success:       true,
			TransactionID: fmt.Sprintf("PG-TXN-%d", time.Now().UnixNano()),
		}, nil
	}
	return GatewayResult{Success: false, Error: "payment declined by gateway"}, nil
}
