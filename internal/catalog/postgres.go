package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Querier is the subset of pgx used for catalog reads.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres reads the catalog tables maintained by the menu CMS.
type Postgres struct {
	db Querier
}

// NewPostgres creates a Postgres catalog.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

const getProductSQL = `
SELECT id, restaurant_id, name, price::text
FROM products
WHERE id = $1 AND restaurant_id = $2 AND is_active`

func (p *Postgres) GetProduct(ctx context.Context, restaurantID, productID uuid.UUID) (Product, error) {
	var (
		prod  Product
		price string
	)
	err := p.db.QueryRow(ctx, getProductSQL, productID, restaurantID).
		Scan(&prod.ID, &prod.RestaurantID, &prod.Name, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if prod.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("parse product price %q: %w", price, err)
	}
	return prod, nil
}

const getVariationSQL = `
SELECT id, product_id, name, price_delta::text
FROM product_variation_options
WHERE id = $1`

func (p *Postgres) GetVariation(ctx context.Context, productID, variationID uuid.UUID) (VariationOption, error) {
	var (
		v     VariationOption
		delta string
	)
	err := p.db.QueryRow(ctx, getVariationSQL, variationID).
		Scan(&v.ID, &v.ProductID, &v.Name, &delta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VariationOption{}, ErrVariationNotFound
		}
		return VariationOption{}, fmt.Errorf("get variation: %w", err)
	}
	if v.ProductID != productID {
		return VariationOption{}, ErrVariationMismatch
	}
	if v.PriceDelta, err = decimal.NewFromString(delta); err != nil {
		return VariationOption{}, fmt.Errorf("parse price delta %q: %w", delta, err)
	}
	return v, nil
}

const resolveTableSQL = `
SELECT id, restaurant_id, identifier, name
FROM restaurant_tables
WHERE identifier = $1`

func (p *Postgres) ResolveTable(ctx context.Context, identifier string) (Table, error) {
	var t Table
	err := p.db.QueryRow(ctx, resolveTableSQL, identifier).
		Scan(&t.ID, &t.RestaurantID, &t.Identifier, &t.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Table{}, ErrTableNotFound
		}
		return Table{}, fmt.Errorf("resolve table: %w", err)
	}
	return t, nil
}
