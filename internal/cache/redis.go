package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const (
	defaultTTL = 15 * time.Minute
	// generations outlive any read that could still be in flight
	generationTTL = 24 * time.Hour
)

// setScript writes KEYS[1] only while the generation in KEYS[2] still equals
// ARGV[2] and no newer version of the same cart is cached.
//
// ARGV: payload, generation, cart id, cart version, ttl in milliseconds.
var setScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[2] then
	return 0
end
local held = redis.call('GET', KEYS[1])
if held then
	local ok, cart = pcall(cjson.decode, held)
	if ok and cart.id == ARGV[3] and tonumber(cart.version) > tonumber(ARGV[4]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[5])
return 1
`)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: defaultTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Generation(ctx context.Context, owner domain.Owner) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(owner)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set stores an active cart read at generation gen. Carts in any other status
// are evicted instead.
func (r *RedisCache) Set(ctx context.Context, cart *domain.Cart, gen int64) error {
	if cart.Status != domain.CartActive {
		return r.Delete(ctx, cart.Owner)
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expiry of carts cached in the same burst
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	err = setScript.Run(ctx, r.client,
		[]string{cacheKey(cart.Owner), generationKey(cart.Owner)},
		data, strconv.FormatInt(gen, 10), cart.ID, cart.Version, ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete evicts the owner's cart and bumps its generation.
func (r *RedisCache) Delete(ctx context.Context, owner domain.Owner) error {
	genKey := generationKey(owner)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, cacheKey(owner))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(owner domain.Owner) string {
	return fmt.Sprintf("cart:%s", owner.Key())
}

func generationKey(owner domain.Owner) string {
	return fmt.Sprintf("cartgen:%s", owner.Key())
}
