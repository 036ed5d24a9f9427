package reconcile

import (
	"context"
	"fmt"

	"github.com/primadev/licensehub/internal/payment"
)

// StatusSource reports the gateway's authoritative state of an order.
type StatusSource interface {
	Status(ctx context.Context, orderID string) (*payment.Status, error)
}

// Verifier is the pull entry point: it asks the gateway for the order's
// status and feeds the answer through the same engine the webhook uses.
type Verifier struct {
	gateway StatusSource
	engine  *Engine
}

func NewVerifier(gateway StatusSource, engine *Engine) *Verifier {
	return &Verifier{gateway: gateway, engine: engine}
}

func (v *Verifier) Verify(ctx context.Context, orderID string) (*Result, error) {
	st, err := v.gateway.Status(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying gateway status: %w", err)
	}

	if st.OrderID == "" {
		st.OrderID = orderID
	}

	return v.engine.Process(ctx, st)
}
