package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

type Product struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	SKU            string          `json:"sku"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	Status         ProductStatus   `json:"status"`
	TrackInventory bool            `json:"trackInventory"`
	AllowBackorder bool            `json:"allowBackorder"`
	Stock          int             `json:"stock"`
	Variants       []Variant       `json:"variants,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Variant struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	Title     string           `json:"title"`
	SKU       string           `json:"sku"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Status    ProductStatus    `json:"status"`
	Stock     int              `json:"stock"`
}

func (p Product) Orderable() bool { return p.Status == ProductActive }

func (v Variant) Orderable() bool { return v.Status == ProductActive }

// Variant returns the variant with id.
func (p Product) Variant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// EnforcesStock reports whether adding beyond available stock must be refused.
func (p Product) EnforcesStock() bool {
	return p.TrackInventory && !p.AllowBackorder
}
