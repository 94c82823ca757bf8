package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartAbandoned CartStatus = "abandoned"
	CartConverted CartStatus = "converted"
)

// ItemKey is the identity of a line within a cart. A missing variant and an
// empty variant id are the same key.
type ItemKey struct {
	ProductID string
	VariantID string
}

func NewItemKey(productID string, variantID *string) ItemKey {
	return ItemKey{ProductID: strings.TrimSpace(productID), VariantID: NormalizeVariant(variantID)}
}

// NormalizeVariant folds nil and blank variant ids into the null key "".
func NormalizeVariant(variantID *string) string {
	if variantID == nil {
		return ""
	}
	return strings.TrimSpace(*variantID)
}

type CartItem struct {
	ProductID  string          `json:"productId"`
	VariantID  *string         `json:"variantId"`
	Title      string          `json:"title"`
	SKU        string          `json:"sku,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	AddedAt    time.Time       `json:"addedAt"`
}

func (i CartItem) Key() ItemKey {
	return NewItemKey(i.ProductID, i.VariantID)
}

type Cart struct {
	ID        string          `json:"id"`
	Owner     Owner           `json:"owner"`
	Items     []CartItem      `json:"items"`
	Currency  string          `json:"currency"`
	Status    CartStatus      `json:"status"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"itemCount"`
	Version   int             `json:"version"`
	ExpiresAt time.Time       `json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewCart returns an empty active cart.
func NewCart(id string, owner Owner, currency string, now time.Time, ttl time.Duration) *Cart {
	c := &Cart{
		ID:        id,
		Owner:     owner,
		Items:     []CartItem{},
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Status:    CartActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Recompute()
	return c
}

// Find returns the index of the line with key.
func (c *Cart) Find(key ItemKey) (int, bool) {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i, true
		}
	}
	return -1, false
}

// Add merges item into the cart. An existing line keeps the unit price captured
// when it was first added.
func (c *Cart) Add(item CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if idx, ok := c.Find(item.Key()); ok {
		c.Items[idx].Quantity += item.Quantity
	} else {
		if v := NormalizeVariant(item.VariantID); v == "" {
			item.VariantID = nil
		} else {
			item.VariantID = &v
		}
		c.Items = append(c.Items, item)
	}
	c.Recompute()
	return nil
}

// SetQuantity changes the quantity of a line; zero removes it. Reports whether
// the line existed.
func (c *Cart) SetQuantity(key ItemKey, quantity int) (bool, error) {
	if quantity < 0 {
		return false, ErrInvalidQuantity
	}
	idx, ok := c.Find(key)
	if !ok {
		return false, nil
	}
	if quantity == 0 {
		c.removeAt(idx)
	} else {
		c.Items[idx].Quantity = quantity
	}
	c.Recompute()
	return true, nil
}

// Remove deletes the line with key; absent lines are a no-op.
func (c *Cart) Remove(key ItemKey) bool {
	idx, ok := c.Find(key)
	if !ok {
		return false
	}
	c.removeAt(idx)
	c.Recompute()
	return true
}

func (c *Cart) Empty() {
	c.Items = []CartItem{}
	c.Recompute()
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recompute derives line totals, subtotal and item count from the items.
func (c *Cart) Recompute() {
	subtotal := decimal.Zero
	count := 0
	for i := range c.Items {
		c.Items[i].TotalPrice = RoundMoney(c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity))), c.Currency)
		subtotal = subtotal.Add(c.Items[i].TotalPrice)
		count += c.Items[i].Quantity
	}
	c.Subtotal = RoundMoney(subtotal, c.Currency)
	c.ItemCount = count
}

// Touch records a mutation at now and pushes the expiry forward.
func (c *Cart) Touch(now time.Time, ttl time.Duration) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(ttl)
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		if item.VariantID != nil {
			v := *item.VariantID
			item.VariantID = &v
		}
		out.Items[i] = item
	}
	return &out
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}
