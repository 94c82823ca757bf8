// Package cache holds read-through copies of active carts keyed by owner.
// The cart store stays the source of truth; every write path invalidates.
//
// A reader takes the owner's Generation before it loads from the store and
// passes it to Set. Delete bumps the generation, so a snapshot loaded before a
// write can not be stored after that write invalidated the owner.
package cache

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)
	Generation(ctx context.Context, owner domain.Owner) (int64, error)
	// Set stores cart unless the owner was invalidated since gen was read or a
	// newer version of the same cart is already cached.
	Set(ctx context.Context, cart *domain.Cart, gen int64) error
	Delete(ctx context.Context, owner domain.Owner) error
}

// Nop is used when no Redis address is configured. Every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, domain.Owner) (*domain.Cart, error) { return nil, ErrCacheMiss }

func (Nop) Generation(context.Context, domain.Owner) (int64, error) { return 0, nil }

func (Nop) Set(context.Context, *domain.Cart, int64) error { return nil }

func (Nop) Delete(context.Context, domain.Owner) error { return nil }
