package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func sampleCart(owner domain.Owner) *domain.Cart {
	now := time.Now().UTC()
	c := domain.NewCart("cart-1", owner, "USD", now, time.Hour)
	_ = c.Add(domain.CartItem{ProductID: "p1", Title: "Mug", Quantity: 3, UnitPrice: decimal.RequireFromString("2.50"), AddedAt: now})
	return c
}

func TestSetAndGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.SessionOwner("sess-1")

	require.NoError(t, c.Set(ctx, sampleCart(owner), 0))
	assert.True(t, mr.Exists("cart:session:sess-1"))

	ttl := mr.TTL("cart:session:sess-1")
	assert.GreaterOrEqual(t, ttl, defaultTTL)
	assert.Less(t, ttl, defaultTTL+5*time.Minute)

	got, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "cart-1", got.ID)
	assert.Equal(t, owner, got.Owner)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("7.5")))
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)
	got, err := c.Get(context.Background(), domain.CustomerOwner("nobody"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:customer:c1", "{not json"))

	_, err := c.Get(context.Background(), domain.CustomerOwner("c1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_NonActiveCartEvicts(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.CustomerOwner("c1")
	cart := sampleCart(owner)
	require.NoError(t, c.Set(ctx, cart, 0))

	cart.Status = domain.CartConverted
	require.NoError(t, c.Set(ctx, cart, 0))
	assert.False(t, mr.Exists("cart:customer:c1"))
}

func TestSet_SkipsSnapshotReadBeforeDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.SessionOwner("s1")

	gen, err := c.Generation(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	// a write lands and invalidates while the reader holds its snapshot
	require.NoError(t, c.Delete(ctx, owner))
	require.NoError(t, c.Set(ctx, sampleCart(owner), gen))
	assert.False(t, mr.Exists("cart:session:s1"))

	gen, err = c.Generation(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Greater(t, mr.TTL("cartgen:session:s1"), time.Duration(0))

	require.NoError(t, c.Set(ctx, sampleCart(owner), gen))
	assert.True(t, mr.Exists("cart:session:s1"))
}

func TestSet_KeepsNewerVersion(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.SessionOwner("s1")

	newer := sampleCart(owner)
	newer.Version = 3
	newer.ItemCount = 9
	require.NoError(t, c.Set(ctx, newer, 0))

	older := sampleCart(owner)
	older.Version = 2
	require.NoError(t, c.Set(ctx, older, 0))

	got, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, 9, got.ItemCount)

	other := sampleCart(owner)
	other.ID = "cart-2"
	other.Version = 1
	require.NoError(t, c.Set(ctx, other, 0))
	got, err = c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "cart-2", got.ID, "a different cart for the owner replaces the entry")
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	owner := domain.SessionOwner("s1")
	require.NoError(t, c.Set(ctx, sampleCart(owner), 0))
	require.NoError(t, c.Delete(ctx, owner))
	assert.False(t, mr.Exists("cart:session:s1"))
}

func TestRedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()
	_, err := c.Get(context.Background(), domain.SessionOwner("s1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNop(t *testing.T) {
	var n Nop
	_, err := n.Get(context.Background(), domain.SessionOwner("s1"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, n.Set(context.Background(), sampleCart(domain.SessionOwner("s1")), 0))
}
