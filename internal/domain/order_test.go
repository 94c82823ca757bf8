package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRecalculate(t *testing.T) {
	o := Order{
		Items: OrderItemsFromCart([]CartItem{
			{ProductID: "a", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "b", VariantID: strPtr(""), Quantity: 3, UnitPrice: decimal.RequireFromString("5.00")},
		}),
		ShippingCost: decimal.RequireFromString("3.50"),
		TaxAmount:    decimal.RequireFromString("3.5"),
	}
	o.Recalculate()

	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(35)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(42)))
	assert.Nil(t, o.Items[1].VariantID)
	assert.NoError(t, o.VerifyTotals())
}

func TestOrderVerifyTotals_Mismatch(t *testing.T) {
	o := Order{Items: []OrderItem{{ProductID: "a", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}}}
	o.Recalculate()
	o.Total = decimal.NewFromInt(11)

	err := o.VerifyTotals()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTotalMismatch)
	assert.Equal(t, ClassIntegrity, Classify(err))
}

func TestFormatOrderNumber(t *testing.T) {
	ts := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20261018-000042", FormatOrderNumber(ts, 42))
}

func TestRefResolveAndJSON(t *testing.T) {
	ref := Reference[Customer]("cust-1")
	assert.False(t, ref.IsExpanded())

	raw, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"cust-1"}`, string(raw))

	calls := 0
	load := func(_ context.Context, id string) (*Customer, error) {
		calls++
		return &Customer{ID: id, Email: "a@example.com"}, nil
	}
	resolved, err := ref.Resolve(context.Background(), load)
	require.NoError(t, err)
	c, ok := resolved.Value()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", c.Email)

	raw, err = json.Marshal(resolved)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "cust-1", body["id"], "both forms carry the id under the same key")
	assert.Equal(t, "a@example.com", body["email"])

	_, err = resolved.Resolve(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, resolved.Reference().IsExpanded())
}

func TestRefResolve_LoaderError(t *testing.T) {
	ref := Reference[Customer]("x")
	_, err := ref.Resolve(context.Background(), func(context.Context, string) (*Customer, error) {
		return nil, ErrNotFound
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassValidation, Classify(Invalid("email", "is required")))
	assert.Equal(t, ClassAvailability, Classify(ErrInsufficientStock))
	assert.Equal(t, ClassConflict, Classify(ErrCartAlreadyConverted))
	assert.Equal(t, ClassIntegrity, Classify(&IntegrityError{Op: "x", Err: ErrDuplicateActiveCart}))
	assert.Equal(t, ClassIntegrity, Classify(&IntegrityError{Op: "checkout", Err: ErrCartNotActive}))
	assert.Equal(t, ClassValidation, Classify(ErrUnsupportedAmount))
	assert.Equal(t, ClassInternal, Classify(errors.New("boom")))
}
