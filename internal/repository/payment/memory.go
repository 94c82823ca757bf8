package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Memory implements Repository in process memory.
type Memory struct {
	mu      sync.RWMutex
	intents map[string]*domain.PaymentIntent // intentID -> intent
	keys    map[string]string                // idempotency key -> intentID
}

func NewMemory() *Memory {
	return &Memory{
		intents: make(map[string]*domain.PaymentIntent),
		keys:    make(map[string]string),
	}
}

func (m *Memory) Create(_ context.Context, p *domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.intents[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := m.keys[p.IdempotencyKey]; ok {
		return domain.ErrAlreadyExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.intents[p.ID] = &stored
	m.keys[p.IdempotencyKey] = p.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) ListByCart(_ context.Context, cartID string) ([]*domain.PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.PaymentIntent
	for _, p := range m.intents {
		if p.CartID == cartID {
			out := *p
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Attempt < result[j].Attempt })
	return result, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status domain.IntentStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.intents[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	p.LastError = lastError
	p.UpdatedAt = time.Now().UTC()
	return nil
}
