package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Memory implements Repository in process memory. It enforces the same
// one-active-cart-per-owner rule as the carts_one_active_per_owner index.
type Memory struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart // cartID -> cart
}

func NewMemory() *Memory {
	return &Memory{carts: make(map[string]*domain.Cart)}
}

// Put stores c as-is, skipping the uniqueness and version checks. Fixture use only.
func (m *Memory) Put(c *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c.Clone()
}

func (m *Memory) FindActive(_ context.Context, owner domain.Owner) ([]*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Cart
	for _, c := range m.carts {
		if c.Status == domain.CartActive && c.Owner.Key() == owner.Key() {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) Create(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[c.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if c.Status == domain.CartActive && m.activeHeldLocked(c.Owner, c.ID) {
		return domain.ErrAlreadyExists
	}
	c.Version = 1
	m.carts[c.ID] = c.Clone()
	return nil
}

func (m *Memory) Save(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.carts[c.ID]
	if !ok || stored.Version != c.Version {
		return domain.ErrConcurrentModification
	}
	if c.Status == domain.CartActive && m.activeHeldLocked(c.Owner, c.ID) {
		return domain.ErrAlreadyExists
	}
	next := c.Clone()
	next.Version = stored.Version + 1
	next.CreatedAt = stored.CreatedAt
	m.carts[c.ID] = next
	c.Version = next.Version
	return nil
}

func (m *Memory) SetStatus(_ context.Context, id string, from, to domain.CartStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.carts[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	if to == domain.CartActive && m.activeHeldLocked(stored.Owner, id) {
		return false, domain.ErrAlreadyExists
	}
	next := stored.Clone()
	next.Status = to
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	m.carts[id] = next
	return true, nil
}

func (m *Memory) ListExpired(_ context.Context, now time.Time) ([]*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Cart
	for _, c := range m.carts {
		if c.Status == domain.CartActive && !c.ExpiresAt.After(now) {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiresAt.Before(result[j].ExpiresAt) })
	return result, nil
}

// activeHeldLocked reports whether owner holds an active cart other than exceptID.
func (m *Memory) activeHeldLocked(owner domain.Owner, exceptID string) bool {
	for id, c := range m.carts {
		if id != exceptID && c.Status == domain.CartActive && c.Owner.Key() == owner.Key() {
			return true
		}
	}
	return false
}
