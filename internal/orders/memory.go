package orders

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// MemoryStore keeps orders in process. Reads return copies, so callers never
// alias stored line items.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.Order
	insert []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]domain.Order),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := m.byID[order.ID]; !exists {
		m.insert = append(m.insert, order.ID)
	}
	m.byID[order.ID] = order.Clone()
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := o.Clone()
	return &cp, nil
}

// List returns every order in insertion order.
func (m *MemoryStore) List(ctx context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.insert))
	for _, id := range m.insert {
		out = append(out, m.byID[id].Clone())
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	upd.Apply(&o)
	m.byID[id] = o

	cp := o.Clone()
	return &cp, nil
}

func (m *MemoryStore) Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[id]
	if !ok {
		return nil, nil
	}

	working := stored.Clone()
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.ID = id
	m.byID[id] = working.Clone()
	return &working, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	m.insert = slices.DeleteFunc(m.insert, func(s string) bool { return s == id })
	return nil
}
