package payment

import (
	"context"

	"storefront/internal/domain"
)

// Repository records the payment intents checkout created with the gateway.
// An intent absent here was not created by this service.
type Repository interface {
	// Create stores p. ErrAlreadyExists on a duplicate id or idempotency key.
	Create(ctx context.Context, p *domain.PaymentIntent) error
	Get(ctx context.Context, id string) (*domain.PaymentIntent, error)
	// ListByCart returns the cart's intents ordered by attempt.
	ListByCart(ctx context.Context, cartID string) ([]*domain.PaymentIntent, error)
	// UpdateStatus stores the status last reported by the gateway.
	UpdateStatus(ctx context.Context, id string, status domain.IntentStatus, lastError string) error
}
