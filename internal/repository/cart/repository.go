package cart

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Repository persists carts. Writes are guarded by the cart version: Save only
// succeeds when the stored version equals c.Version and bumps it on success.
type Repository interface {
	// FindActive returns every active cart held by owner, newest first. More than
	// one result means the one-active-cart rule was broken upstream.
	FindActive(ctx context.Context, owner domain.Owner) ([]*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	// Create inserts a new cart. ErrAlreadyExists when the owner already holds an active cart.
	Create(ctx context.Context, c *domain.Cart) error
	// Save writes c when its version is current. ErrConcurrentModification otherwise.
	Save(ctx context.Context, c *domain.Cart) error
	// SetStatus moves the cart from one status to another atomically and reports
	// whether this caller performed the transition.
	SetStatus(ctx context.Context, id string, from, to domain.CartStatus) (bool, error)
	// ListExpired returns active carts whose expiry is at or before now, oldest
	// expiry first.
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Cart, error)
}
