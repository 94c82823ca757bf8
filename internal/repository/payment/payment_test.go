package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

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
			var customerID string
			require.NoError(t, pool.QueryRow(ctx, `INSERT INTO customers (email) VALUES ($1) RETURNING id::text`, uuid.NewString()+"@example.com").Scan(&customerID))
			cartID := uuid.NewString()
			_, err := pool.Exec(ctx, `INSERT INTO carts (id, owner_kind, owner_id, currency, expires_at) VALUES ($1, 'customer', $2, 'USD', now() + interval '1 hour')`, cartID, customerID)
			require.NoError(t, err)
			return customerID, cartID
		}
	})
}

func newIntent(customerID, cartID string, attempt int) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:             "pi_" + uuid.NewString(),
		ClientSecret:   "secret",
		Status:         domain.IntentRequiresConfirmation,
		Amount:         4200,
		Currency:       "USD",
		CartID:         cartID,
		CustomerID:     customerID,
		Attempt:        attempt,
		IdempotencyKey: domain.IdempotencyKey(cartID, attempt),
		Details:        domain.CheckoutDetails{ShippingMethod: "standard", ShippingAddress: domain.Address{City: "Oslo"}},
	}
}

func runRepositoryTests(t *testing.T, setup func(t *testing.T) (Repository, fixture)) {
	t.Run("create get and list", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)

		second := newIntent(customerID, cartID, 2)
		first := newIntent(customerID, cartID, 1)
		require.NoError(t, repo.Create(ctx, second))
		require.NoError(t, repo.Create(ctx, first))

		got, err := repo.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4200), got.Amount)
		assert.Equal(t, "Oslo", got.Details.ShippingAddress.City)
		assert.True(t, got.Open())

		list, err := repo.ListByCart(ctx, cartID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, 1, list[0].Attempt)
		assert.Equal(t, 2, list[1].Attempt)
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)
		require.NoError(t, repo.Create(ctx, newIntent(customerID, cartID, 1)))
		assert.ErrorIs(t, repo.Create(ctx, newIntent(customerID, cartID, 1)), domain.ErrAlreadyExists)
	})

	t.Run("update status", func(t *testing.T) {
		repo, fix := setup(t)
		ctx := context.Background()
		customerID, cartID := fix(t)
		p := newIntent(customerID, cartID, 1)
		require.NoError(t, repo.Create(ctx, p))

		require.NoError(t, repo.UpdateStatus(ctx, p.ID, domain.IntentFailed, "card_declined"))
		got, err := repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.IntentFailed, got.Status)
		assert.Equal(t, "card_declined", got.LastError)

		assert.ErrorIs(t, repo.UpdateStatus(ctx, "pi_missing", domain.IntentSucceeded, ""), domain.ErrNotFound)
	})

	t.Run("unknown intent", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Get(context.Background(), "pi_unknown")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
