package product

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Memory implements Repository in process memory.
type Memory struct {
	mu       sync.RWMutex
	products map[string]*domain.Product // productID -> product
}

func NewMemory() *Memory {
	return &Memory{products: make(map[string]*domain.Product)}
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (m *Memory) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = *cloneProduct(&p)
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			break
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = domain.ProductActive
	}
	for i := range p.Variants {
		if p.Variants[i].ID == "" {
			p.Variants[i].ID = uuid.NewString()
		}
		if p.Variants[i].Status == "" {
			p.Variants[i].Status = domain.ProductActive
		}
		p.Variants[i].ProductID = p.ID
	}
	stored := cloneProduct(&p)
	m.products[p.ID] = stored
	return cloneProduct(stored), nil
}

func (m *Memory) DecrementStock(_ context.Context, productID, variantID string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok || !p.TrackInventory {
		return 0, domain.ErrNotFound
	}
	if variantID == "" {
		p.Stock -= qty
		return p.Stock, nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			p.Variants[i].Stock -= qty
			return p.Variants[i].Stock, nil
		}
	}
	return 0, domain.ErrNotFound
}

func cloneProduct(p *domain.Product) *domain.Product {
	out := *p
	out.Variants = make([]domain.Variant, len(p.Variants))
	for i, v := range p.Variants {
		if v.Price != nil {
			price := *v.Price
			v.Price = &price
		}
		out.Variants[i] = v
	}
	return &out
}
