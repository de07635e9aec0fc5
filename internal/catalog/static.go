package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Static is an in-memory catalog. Safe for concurrent use.
type Static struct {
	mu         sync.RWMutex
	products   map[uuid.UUID]Product
	variations map[uuid.UUID]VariationOption
	tables     map[string]Table
}

// NewStatic creates an empty Static catalog.
func NewStatic() *Static {
	return &Static{
		products:   make(map[uuid.UUID]Product),
		variations: make(map[uuid.UUID]VariationOption),
		tables:     make(map[string]Table),
	}
}

// PutProduct adds or replaces a product.
func (s *Static) PutProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutVariation adds or replaces a variation option.
func (s *Static) PutVariation(v VariationOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variations[v.ID] = v
}

// PutTable adds or replaces a table, keyed by its identifier.
func (s *Static) PutTable(t Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Identifier] = t
}

func (s *Static) GetProduct(_ context.Context, restaurantID, productID uuid.UUID) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok || p.RestaurantID != restaurantID {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *Static) GetVariation(_ context.Context, productID, variationID uuid.UUID) (VariationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variations[variationID]
	if !ok {
		return VariationOption{}, ErrVariationNotFound
	}
	if v.ProductID != productID {
		return VariationOption{}, ErrVariationMismatch
	}
	return v, nil
}

func (s *Static) ResolveTable(_ context.Context, identifier string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[identifier]
	if !ok {
		return Table{}, ErrTableNotFound
	}
	return t, nil
}
