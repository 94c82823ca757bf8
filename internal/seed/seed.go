package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ProductWriter is the part of the product repository the seeder needs.
type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func variantPrice(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

// Catalog is the demo catalog used for manual testing.
func Catalog() []domain.Product {
	return []domain.Product{
		{
			Title:          "Demo T-Shirt",
			SKU:            "SKU-DEMO-TSHIRT",
			Price:          price("19.99"),
			Currency:       "USD",
			TrackInventory: true,
			Variants: []domain.Variant{
				{Title: "Small", SKU: "SKU-DEMO-TSHIRT-S", Stock: 20},
				{Title: "Medium", SKU: "SKU-DEMO-TSHIRT-M", Stock: 20},
				{Title: "XXL", SKU: "SKU-DEMO-TSHIRT-XXL", Price: variantPrice("21.99"), Stock: 4},
			},
		},
		{
			Title:          "Demo Mug",
			SKU:            "SKU-DEMO-MUG",
			Price:          price("12.99"),
			Currency:       "USD",
			TrackInventory: true,
			Stock:          50,
		},
		{
			Title:          "Enamel Pin",
			SKU:            "SKU-DEMO-PIN",
			Price:          price("4.50"),
			Currency:       "USD",
			TrackInventory: true,
			AllowBackorder: true,
			Stock:          2,
		},
		{
			Title:    "Gift Card",
			SKU:      "SKU-DEMO-GIFT",
			Price:    price("25.00"),
			Currency: "USD",
		},
		{
			Title:    "Retired Poster",
			SKU:      "SKU-DEMO-POSTER",
			Price:    price("8.00"),
			Currency: "USD",
			Status:   domain.ProductArchived,
		},
	}
}

// Apply upserts the demo catalog. It is idempotent: products are keyed by SKU.
func Apply(ctx context.Context, products ProductWriter) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(Catalog()))
	for _, p := range Catalog() {
		saved, err := products.Upsert(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
		out = append(out, saved)
	}
	return out, nil
}
