package domain

import (
	"fmt"
	"time"
)

type IntentStatus string

const (
	IntentRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentSucceeded            IntentStatus = "succeeded"
	IntentFailed               IntentStatus = "failed"
)

// CheckoutDetails is what the shopper submitted when the intent was created.
// Resuming a checkout reuses it instead of asking again.
type CheckoutDetails struct {
	ShippingAddress Address `json:"shippingAddress"`
	BillingAddress  Address `json:"billingAddress"`
	ShippingMethod  string  `json:"shippingMethod"`
}

// PaymentIntent mirrors a gateway intent created by this service. Status only
// ever reflects what the gateway reported.
type PaymentIntent struct {
	ID             string          `json:"id"`
	ClientSecret   string          `json:"-"`
	Status         IntentStatus    `json:"status"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	CartID         string          `json:"cartId"`
	CustomerID     string          `json:"customerId"`
	Attempt        int             `json:"attempt"`
	IdempotencyKey string          `json:"-"`
	Details        CheckoutDetails `json:"details"`
	LastError      string          `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (p PaymentIntent) Open() bool {
	return p.Status == IntentRequiresConfirmation
}

// IdempotencyKey identifies one intent-creation attempt for a cart.
func IdempotencyKey(cartID string, attempt int) string {
	return fmt.Sprintf("checkout:%s:attempt:%d", cartID, attempt)
}
