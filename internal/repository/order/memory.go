package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// Memory implements Repository in process memory with a process-local order
// number counter.
type Memory struct {
	mu       sync.RWMutex
	seq      int64
	orders   map[string]*domain.Order // orderNumber -> order
	byRef    map[string]string        // paymentReference -> orderNumber
	failNext error
}

func NewMemory() *Memory {
	return &Memory{
		orders: make(map[string]*domain.Order),
		byRef:  make(map[string]string),
	}
}

// FailNextCreate makes the next Create return err without storing anything.
func (m *Memory) FailNextCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *Memory) Create(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	if _, ok := m.byRef[o.PaymentReference]; ok {
		return domain.ErrAlreadyExists
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	m.seq++
	o.ID = uuid.NewString()
	o.OrderNumber = domain.FormatOrderNumber(o.CreatedAt, m.seq)

	stored := cloneOrder(o)
	stored.Customer = stored.Customer.Reference()
	m.orders[o.OrderNumber] = stored
	m.byRef[o.PaymentReference] = o.OrderNumber
	return nil
}

func (m *Memory) GetByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[number]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *Memory) GetByPaymentReference(_ context.Context, reference string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	number, ok := m.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(m.orders[number]), nil
}

// Count reports how many orders are stored.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem{}, o.Items...)
	return &out
}
