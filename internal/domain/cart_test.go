package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func newTestCart() *Cart {
	return NewCart("c1", SessionOwner("s1"), "usd", time.Unix(0, 0), time.Hour)
}

func line(product string, variant *string, qty int, price string) CartItem {
	return CartItem{ProductID: product, VariantID: variant, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestCartAdd_SameKeySumsQuantityAndKeepsFirstPrice(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("p1", nil, 2, "10.00")))
	require.NoError(t, c.Add(line("p1", nil, 3, "12.50")))
	require.NoError(t, c.Add(line("p1", strPtr(""), 1, "99.00")))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 6, c.Items[0].Quantity)
	assert.True(t, c.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, c.Items[0].TotalPrice.Equal(decimal.RequireFromString("60.00")))
	assert.Nil(t, c.Items[0].VariantID)
}

func TestCartAdd_RejectsNonPositiveQuantity(t *testing.T) {
	c := newTestCart()
	assert.ErrorIs(t, c.Add(line("p1", nil, 0, "1")), ErrInvalidQuantity)
	assert.Empty(t, c.Items)
}

func TestCartTotals_TwoLines(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", nil, 1, "10")))
	require.NoError(t, c.Add(line("b", strPtr("v1"), 3, "5")))
	require.NoError(t, c.Add(line("c", nil, 4, "1")))
	require.NoError(t, c.Add(line("a", nil, 1, "10")))
	c.Remove(NewItemKey("c", nil))

	assert.True(t, c.Subtotal.Equal(decimal.NewFromInt(35)), "subtotal %s", c.Subtotal)
	assert.Equal(t, 5, c.ItemCount)
}

func TestCartSetQuantity_ZeroRemoves(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", nil, 2, "10")))
	require.NoError(t, c.Add(line("b", nil, 3, "5")))

	found, err := c.SetQuantity(NewItemKey("a", nil), 0)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.ItemCount)
}

func TestCartSetQuantity_NilAndEmptyVariantMatch(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", strPtr(""), 2, "10")))

	found, err := c.SetQuantity(NewItemKey("a", nil), 5)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, c.Items[0].Quantity)

	found, err = c.SetQuantity(NewItemKey("a", strPtr("  ")), 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, c.ItemCount)
}

func TestCartSetQuantity_Negative(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", nil, 2, "10")))
	_, err := c.SetQuantity(NewItemKey("a", nil), -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 2, c.ItemCount)
}

func TestCartRemove_Absent(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", nil, 2, "10")))
	assert.False(t, c.Remove(NewItemKey("zzz", nil)))
	assert.Equal(t, 2, c.ItemCount)
}

func TestCartClone_IsDeep(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.Add(line("a", strPtr("v"), 1, "1")))
	cp := c.Clone()
	*cp.Items[0].VariantID = "other"
	cp.Items[0].Quantity = 9
	assert.Equal(t, "v", *c.Items[0].VariantID)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestOwnerValidate(t *testing.T) {
	assert.NoError(t, CustomerOwner("c").Validate())
	assert.NoError(t, SessionOwner("s").Validate())
	assert.ErrorIs(t, Owner{}.Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, Owner{CustomerID: "c", SessionID: "s"}.Validate(), ErrInvalidOwner)
	assert.Equal(t, "session:s", SessionOwner(" s ").Key())
}
