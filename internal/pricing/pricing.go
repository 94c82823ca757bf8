// Package pricing computes shipping and tax for a checkout.
package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type QuoteInput struct {
	Subtotal        decimal.Decimal
	Currency        string
	ShippingMethod  string
	ShippingAddress domain.Address
}

type Quote struct {
	Currency string
	Shipping decimal.Decimal
	Tax      decimal.Decimal
}

// Total returns subtotal + shipping + tax.
func (q Quote) Total(subtotal decimal.Decimal) decimal.Decimal {
	return domain.RoundMoney(subtotal, q.Currency).Add(q.Shipping).Add(q.Tax)
}

// Strategy prices shipping and tax for a subtotal.
type Strategy interface {
	Quote(ctx context.Context, in QuoteInput) (Quote, error)
}

// Percentage charges shipping and tax as fractions of the subtotal. Shipping is
// free when FreeShippingOver is positive and the subtotal reaches it.
type Percentage struct {
	ShippingRate     decimal.Decimal
	TaxRate          decimal.Decimal
	FreeShippingOver decimal.Decimal
}

// Default is 10% shipping and 10% tax.
func Default() Percentage {
	return Percentage{
		ShippingRate: decimal.RequireFromString("0.10"),
		TaxRate:      decimal.RequireFromString("0.10"),
	}
}

func (p Percentage) Quote(_ context.Context, in QuoteInput) (Quote, error) {
	if in.Subtotal.IsNegative() {
		return Quote{}, fmt.Errorf("pricing: negative subtotal %s", in.Subtotal)
	}
	shipping := domain.RoundMoney(in.Subtotal.Mul(p.ShippingRate), in.Currency)
	if p.FreeShippingOver.IsPositive() && in.Subtotal.GreaterThanOrEqual(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	return Quote{
		Currency: in.Currency,
		Shipping: shipping,
		Tax:      domain.RoundMoney(in.Subtotal.Mul(p.TaxRate), in.Currency),
	}, nil
}

// Flat charges a fixed fee per shipping method and a tax rate on the subtotal.
type Flat struct {
	Shipping map[string]decimal.Decimal
	TaxRate  decimal.Decimal
}

func (f Flat) Quote(_ context.Context, in QuoteInput) (Quote, error) {
	method := strings.ToLower(strings.TrimSpace(in.ShippingMethod))
	fee, ok := f.Shipping[method]
	if !ok {
		return Quote{}, domain.Invalid("shippingMethod", fmt.Sprintf("unsupported shipping method %q", in.ShippingMethod))
	}
	return Quote{
		Currency: in.Currency,
		Shipping: domain.RoundMoney(fee, in.Currency),
		Tax:      domain.RoundMoney(in.Subtotal.Mul(f.TaxRate), in.Currency),
	}, nil
}
