// Package catalog resolves products, variation options and tables owned by
// the menu CMS. It is read-only from the tab service's point of view.
package catalog

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found in restaurant")
	ErrVariationNotFound = errors.New("variation option not found")
	ErrVariationMismatch = errors.New("variation option does not belong to product")
	ErrTableNotFound     = errors.New("table not found")
)

// Product is the priced catalog entry an order item is snapshotted from.
type Product struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Price        decimal.Decimal
}

// VariationOption is a selectable option (size, extra) with a price delta.
type VariationOption struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Name       string
	PriceDelta decimal.Decimal
}

// Table is a physical table customers order from.
type Table struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Identifier   string
	Name         string
}
