package httpserver

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/service/checkout"
)

type cartLine struct {
	ProductID  string  `json:"productId"`
	VariantID  *string `json:"variantId,omitempty"`
	Title      string  `json:"title"`
	SKU        string  `json:"sku,omitempty"`
	Quantity   int     `json:"quantity"`
	UnitPrice  string  `json:"unitPrice"`
	TotalPrice string  `json:"totalPrice"`
}

type cartResponse struct {
	ID        string       `json:"id,omitempty"`
	Owner     domain.Owner `json:"owner"`
	Status    string       `json:"status"`
	Currency  string       `json:"currency"`
	Items     []cartLine   `json:"items"`
	ItemCount int          `json:"itemCount"`
	Subtotal  string       `json:"subtotal"`
	Version   int          `json:"version"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

func toCartResponse(c *domain.Cart) cartResponse {
	out := cartResponse{
		ID:        c.ID,
		Owner:     c.Owner,
		Status:    string(c.Status),
		Currency:  c.Currency,
		Items:     make([]cartLine, 0, len(c.Items)),
		ItemCount: c.ItemCount,
		Subtotal:  domain.FormatMoney(c.Subtotal, c.Currency),
		Version:   c.Version,
	}
	if !c.ExpiresAt.IsZero() {
		exp := c.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, cartLine{
			ProductID:  it.ProductID,
			VariantID:  it.VariantID,
			Title:      it.Title,
			SKU:        it.SKU,
			Quantity:   it.Quantity,
			UnitPrice:  domain.FormatMoney(it.UnitPrice, c.Currency),
			TotalPrice: domain.FormatMoney(it.TotalPrice, c.Currency),
		})
	}
	return out
}

type intentResponse struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
	CustomerID   string `json:"customerId"`
	CartID       string `json:"cartId"`
	Attempt      int    `json:"attempt"`
}

func toIntentResponse(r *checkout.BeginResult) intentResponse {
	return intentResponse{
		IntentID:     r.IntentID,
		ClientSecret: r.ClientSecret,
		Amount:       r.Amount,
		Total:        domain.FormatMoney(r.Total, r.Currency),
		Currency:     r.Currency,
		CustomerID:   r.CustomerID,
		CartID:       r.CartID,
		Attempt:      r.Attempt,
	}
}

type orderSummary struct {
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Total         string          `json:"total"`
	Currency      string          `json:"currency"`
	Steps         []checkout.Step `json:"steps,omitempty"`
}

func toOrderSummary(r *checkout.Result) orderSummary {
	o := r.Order
	return orderSummary{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         domain.FormatMoney(o.Total, o.Currency),
		Currency:      o.Currency,
		Steps:         r.Steps,
	}
}
