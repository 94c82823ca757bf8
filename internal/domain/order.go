package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// OrderItem is a snapshot of the purchased line, never a live product reference.
type OrderItem struct {
	ProductID  string          `json:"productId"`
	VariantID  *string         `json:"variantId,omitempty"`
	Title      string          `json:"title"`
	SKU        string          `json:"sku,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type Order struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	Customer         Ref[Customer]   `json:"customer"`
	CartID           string          `json:"cartId"`
	Items            []OrderItem     `json:"items"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	Total            decimal.Decimal `json:"total"`
	Status           OrderStatus     `json:"status"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	PaymentReference string          `json:"paymentReference"`
	ShippingAddress  Address         `json:"shippingAddress"`
	BillingAddress   Address         `json:"billingAddress"`
	ShippingMethod   string          `json:"shippingMethod"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// OrderItemsFromCart snapshots cart lines into order lines.
func OrderItemsFromCart(items []CartItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		var variant *string
		if v := NormalizeVariant(it.VariantID); v != "" {
			variant = &v
		}
		out = append(out, OrderItem{
			ProductID: it.ProductID,
			VariantID: variant,
			Title:     it.Title,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

// Recalculate derives line totals, subtotal and total from items, shipping and tax.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].TotalPrice = RoundMoney(o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity))), o.Currency)
		subtotal = subtotal.Add(o.Items[i].TotalPrice)
	}
	o.Subtotal = RoundMoney(subtotal, o.Currency)
	o.ShippingCost = RoundMoney(o.ShippingCost, o.Currency)
	o.TaxAmount = RoundMoney(o.TaxAmount, o.Currency)
	o.Total = o.Subtotal.Add(o.ShippingCost).Add(o.TaxAmount)
}

// VerifyTotals checks total = subtotal + shipping + tax against the items.
func (o Order) VerifyTotals() error {
	check := o
	check.Items = append([]OrderItem(nil), o.Items...)
	check.Recalculate()
	if !check.Subtotal.Equal(o.Subtotal) || !check.Total.Equal(o.Total) {
		return &IntegrityError{Op: "order totals", Err: fmt.Errorf("%w: stored total=%s computed=%s", ErrTotalMismatch, o.Total, check.Total)}
	}
	return nil
}

// FormatOrderNumber renders the order number for a sequence value allocated on day t.
func FormatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%06d", t.UTC().Format("20060102"), seq)
}
