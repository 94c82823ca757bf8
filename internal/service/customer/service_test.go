package customer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	custrepo "storefront/internal/repository/customer"
)

func address(line1 string) domain.Address {
	return domain.Address{Name: "Ada Lovelace", Line1: line1, City: "London", PostalCode: "N1 9GU", Country: "GB"}
}

func TestResolve_IsIdempotentPerEmail(t *testing.T) {
	svc := New(custrepo.NewMemory(), nil)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, ContactInput{Email: "Ada@Example.com", FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Equal(t, "Ada Lovelace", first.FullName())

	again, err := svc.Resolve(ctx, ContactInput{Email: " ada@example.com ", FirstName: "Someone"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ada", again.FirstName)
}

func TestResolve_RejectsBadEmail(t *testing.T) {
	svc := New(custrepo.NewMemory(), nil)
	for _, email := range []string{"", "   ", "not-an-email", "Ada <ada@example.com>"} {
		_, err := svc.Resolve(context.Background(), ContactInput{Email: email})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "email %q", email)
		assert.Equal(t, "email", verr.Field)
	}
}

func TestMergeDefault(t *testing.T) {
	home := address("1 Main St")
	home.ID, home.Tag, home.Default = "home", domain.AddressShipping, true
	work := address("9 Office Rd")
	work.ID, work.Tag = "work", domain.AddressShipping
	bill := address("1 Main St")
	bill.ID, bill.Tag, bill.Default = "bill", domain.AddressBilling, true

	saved := []domain.Address{home, work, bill}

	t.Run("promotes same location", func(t *testing.T) {
		got := MergeDefault(saved, domain.AddressShipping, address(" 9 office rd "))
		require.Len(t, got, 3)
		assert.False(t, got[0].Default)
		assert.True(t, got[1].Default)
		assert.True(t, got[2].Default, "billing default untouched")
	})

	t.Run("appends new location", func(t *testing.T) {
		got := MergeDefault(saved, domain.AddressShipping, address("5 New Lane"))
		require.Len(t, got, 4)
		assert.False(t, got[0].Default)
		assert.False(t, got[1].Default)
		added := got[3]
		assert.NotEmpty(t, added.ID)
		assert.Equal(t, domain.AddressShipping, added.Tag)
		assert.True(t, added.Default)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		_ = MergeDefault(saved, domain.AddressShipping, address("5 New Lane"))
		assert.True(t, saved[0].Default)
	})
}

func TestRememberAddresses_OneDefaultPerTag(t *testing.T) {
	repo := custrepo.NewMemory()
	svc := New(repo, nil)
	ctx := context.Background()

	c, err := svc.Resolve(ctx, ContactInput{Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.RememberAddresses(ctx, c.ID, address("1 Main St"), address("1 Main St")))
	require.NoError(t, svc.RememberAddresses(ctx, c.ID, address("2 Side St"), address("1 main st")))

	stored, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Addresses, 3)

	defaults := map[domain.AddressTag]int{}
	for _, a := range stored.Addresses {
		if a.Default {
			defaults[a.Tag]++
		}
	}
	assert.Equal(t, map[domain.AddressTag]int{domain.AddressShipping: 1, domain.AddressBilling: 1}, defaults)

	ship, ok := stored.DefaultAddress(domain.AddressShipping)
	require.True(t, ok)
	assert.Equal(t, "2 Side St", ship.Line1)
}

func TestRecordOrder(t *testing.T) {
	repo := custrepo.NewMemory()
	svc := New(repo, nil)
	ctx := context.Background()

	c, err := svc.Resolve(ctx, ContactInput{Email: "ada@example.com"})
	require.NoError(t, err)

	o := &domain.Order{OrderNumber: "ORD-1", Customer: domain.Reference[domain.Customer](c.ID), Total: decimal.RequireFromString("42")}
	require.NoError(t, svc.RecordOrder(ctx, o))
	require.NoError(t, svc.RecordOrder(ctx, o))

	stored, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.OrderCount)
	assert.True(t, decimal.RequireFromString("84").Equal(stored.TotalSpent))

	o.Customer = domain.Reference[domain.Customer]("missing")
	assert.ErrorIs(t, svc.RecordOrder(ctx, o), domain.ErrNotFound)
}
