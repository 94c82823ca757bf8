package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads the catalog and adjusts stock.
type Repository interface {
	// GetByID returns the product with its variants.
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// Upsert inserts or updates a product and its variants, keyed by SKU.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
	// DecrementStock lowers stock for a product, or for one of its variants when
	// variantID is set, and returns what remains. Untracked products return
	// ErrNotFound and are left untouched.
	DecrementStock(ctx context.Context, productID, variantID string, qty int) (int, error)
}
