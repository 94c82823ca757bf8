package customer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Memory implements Repository in process memory.
type Memory struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer // customerID -> customer
	byEmail   map[string]string           // normalized email -> customerID
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[string]*domain.Customer),
		byEmail:   make(map[string]string),
	}
}

func (m *Memory) FindOrCreate(_ context.Context, c domain.Customer) (*domain.Customer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := domain.NormalizeEmail(c.Email)
	if id, ok := m.byEmail[email]; ok {
		return cloneCustomer(m.customers[id]), false, nil
	}
	c.ID = uuid.NewString()
	c.Email = email
	c.CreatedAt = time.Now().UTC()
	c.OrderCount = 0
	c.TotalSpent = decimal.Zero
	stored := cloneCustomer(&c)
	m.customers[c.ID] = stored
	m.byEmail[email] = c.ID
	return cloneCustomer(stored), true, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCustomer(m.customers[id]), nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCustomer(c), nil
}

func (m *Memory) SaveAddresses(_ context.Context, id string, addresses []domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Addresses = append([]domain.Address{}, addresses...)
	return nil
}

func (m *Memory) RecordOrder(_ context.Context, id string, total decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.OrderCount++
	c.TotalSpent = c.TotalSpent.Add(total)
	return nil
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	out := *c
	out.Addresses = append([]domain.Address{}, c.Addresses...)
	return &out
}
