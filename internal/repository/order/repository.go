package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists orders. Create assigns the id and order number.
type Repository interface {
	// Create stores o. ErrAlreadyExists when an order for the same payment
	// reference was stored first.
	Create(ctx context.Context, o *domain.Order) error
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
}
