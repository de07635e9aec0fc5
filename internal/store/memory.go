// Package store persists tabs. Every implementation enforces optimistic
// concurrency: Save only succeeds when the stored version matches the
// version the caller loaded.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adisyon/api/internal/ledger"
	"github.com/google/uuid"
)

// Memory keeps orders in process memory. Orders are deep-copied on the way
// in and out so callers never share state with the store.
type Memory struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*ledger.Order
	items  map[uuid.UUID]uuid.UUID // item id -> order id
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		orders: make(map[uuid.UUID]*ledger.Order),
		items:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *Memory) Create(_ context.Context, o *ledger.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	o.Version = 1
	m.put(o.Clone())
	return nil
}

func (m *Memory) Load(_ context.Context, id uuid.UUID) (*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ledger.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *Memory) FindOrderIDByItem(_ context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.items[itemID]
	if !ok {
		return uuid.Nil, ledger.ErrItemNotFound
	}
	return id, nil
}

func (m *Memory) Save(_ context.Context, o *ledger.Order, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.orders[o.ID]
	if !ok {
		return ledger.ErrOrderNotFound
	}
	if current.Version != expectedVersion {
		return ledger.ErrStaleVersion
	}

	for _, it := range current.Items {
		delete(m.items, it.ID)
	}
	o.Version = expectedVersion + 1
	m.put(o.Clone())
	return nil
}

func (m *Memory) ListOpenOrders(_ context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Order
	for _, o := range m.orders {
		if o.RestaurantID == restaurantID && o.Status == ledger.StatusOpen {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// put stores o and indexes its items. Callers hold mu.
func (m *Memory) put(o *ledger.Order) {
	m.orders[o.ID] = o
	for _, it := range o.Items {
		m.items[it.ID] = o.ID
	}
}
