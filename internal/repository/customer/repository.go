package customer

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Repository persists and fetches customers.
type Repository interface {
	// FindOrCreate returns the customer with c.Email, inserting c when none
	// exists. The flag reports whether a record was created.
	FindOrCreate(ctx context.Context, c domain.Customer) (*domain.Customer, bool, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// SaveAddresses replaces the customer's saved addresses.
	SaveAddresses(ctx context.Context, id string, addresses []domain.Address) error
	// RecordOrder increments order count and total spent.
	RecordOrder(ctx context.Context, id string, total decimal.Decimal) error
}
