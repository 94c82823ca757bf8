package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)

// fixture returns the customer and cart ids an order must reference.
type fixture func(t *testing.T) (customerID, cartID string)

func TestMemory(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) (Repository, fixture) {
		return NewMemory(), func(t *testing.T) (string, string) { return uuid.NewString(), uuid.NewString() }
	})
}

func TestPostgres(t *testing.T) {
	pool := pgtest.Pool(t)
	runRepositoryTests(t, func(t *testing.T) (Repository, fixture) {
		pgtest.Reset(t, pool)
		return NewPostgres(pool, nil), func(t *testing.T) (string, string) {
			ctx := context.Background()
			var customerID, cartID string
			require.NoError(t, pool.QueryRow(ctx, `INSERT INTO customers (email) VALUES ($1) RETURNING id::text`, uuid.NewString()+"@example.com").Scan(&customerID))
			cartID = uuid.NewString()
			_, err := pool.Exec(ctx, `INSERT INTO carts (id, owner_kind, owner_id, currency, status, expires_at) VALUES ($1, 'customer', $2, 'USD', 'converted', now())`, cartID, customerID)
			require.NoError(t, err)
			return customerID, cartID
		}
	})
}

func newOrder(customerID, cartID, reference string) *domain.Order {
	o := &domain.Order{
		Customer: domain.Reference[domain.Customer](customerID),
		CartID:   cartID,
		Items: []domain.OrderItem{
			{ProductID: "p1", Title: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "p2", Title: "Tee", Quantity: 1, UnitPrice: decimal.RequireFromString("15.00")},
		},
		Currency:         "USD",
		ShippingCost:     decimal.RequireFromString("3.50"),
		TaxAmount:        decimal.RequireFromString("3.50"),
		Status:           domain.OrderConfirmed,
		PaymentStatus:    domain.PaymentPaid,
		PaymentReference: reference,
		ShippingAddress:  domain.Address{Name: "Ada", Line1: "1 Main St", City: "Portland", PostalCode: "97201", Country: "US"},
		BillingAddress:   domain.Address{Name: "Ada", Line1: "1 Main St", City: "Portland", PostalCode: "97201", Country: "US"},
		ShippingMethod:   "standard",
		CreatedAt:        time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	o.Recalculate()
	return o
}

func runRepositoryTests(t *testing.T, setup func(t *testing.T) (Repository, fixture)) {
	t.Run("create assigns id and order number", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)

		o := newOrder(customerID, cartID, "pi_1")
		require.NoError(t, repo.Create(ctx, o))
		assert.NotEmpty(t, o.ID)
		assert.Regexp(t, orderNumberPattern, o.OrderNumber)
		assert.Equal(t, "ORD-20260314-", o.OrderNumber[:13])

		got, err := repo.GetByNumber(ctx, o.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, customerID, got.Customer.ID())
		assert.False(t, got.Customer.IsExpanded())
		assert.True(t, got.Total.Equal(decimal.RequireFromString("42")))
		require.Len(t, got.Items, 2)
		assert.NoError(t, got.VerifyTotals())
		assert.Equal(t, "Portland", got.ShippingAddress.City)
	})

	t.Run("order numbers are unique", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)
		first := newOrder(customerID, cartID, "pi_a")
		second := newOrder(customerID, cartID, "pi_b")
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))
		assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	})

	t.Run("one order per payment reference", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)
		require.NoError(t, repo.Create(ctx, newOrder(customerID, cartID, "pi_dup")))
		assert.ErrorIs(t, repo.Create(ctx, newOrder(customerID, cartID, "pi_dup")), domain.ErrAlreadyExists)

		got, err := repo.GetByPaymentReference(ctx, "pi_dup")
		require.NoError(t, err)
		assert.Equal(t, "pi_dup", got.PaymentReference)
	})

	t.Run("missing order", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.GetByNumber(context.Background(), "ORD-20260101-000999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
