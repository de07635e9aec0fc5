package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// snapshotTx gives every read a single consistent view across the order,
// item and payment tables.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// Postgres stores orders in PostgreSQL. The orders.version column backs the
// compare-and-swap in Save.
type Postgres struct {
	pool TxBeginner
}

// NewPostgres creates a Postgres store.
func NewPostgres(pool TxBeginner) *Postgres {
	return &Postgres{pool: pool}
}

const insertOrderSQL = `
INSERT INTO orders (id, restaurant_id, table_ref, status, discount_type, discount_value,
                    closed_payment_method, closed_at, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)`

func (p *Postgres) Create(ctx context.Context, o *ledger.Order) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	discountType, discountValue, err := discountToColumns(o.Discount)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.RestaurantID, o.TableRef, string(o.Status), discountType, discountValue,
		nullText(string(o.ClosedPaymentMethod)), nullTime(o.ClosedAt), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if err := writeChildren(ctx, tx, o, storedChildren{}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	o.Version = 1
	return nil
}

func (p *Postgres) Load(ctx context.Context, id uuid.UUID) (*ledger.Order, error) {
	tx, err := p.pool.BeginTx(ctx, snapshotTx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	orders, err := queryOrders(ctx, tx, selectOrderSQL+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ledger.ErrOrderNotFound
	}
	if err := loadChildren(ctx, tx, orders); err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (p *Postgres) FindOrderIDByItem(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var orderID uuid.UUID
	err := p.pool.QueryRow(ctx, `SELECT order_id FROM order_items WHERE id = $1`, itemID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ledger.ErrItemNotFound
		}
		return uuid.Nil, fmt.Errorf("find order by item: %w", err)
	}
	return orderID, nil
}

const updateOrderSQL = `
UPDATE orders
SET status = $3, discount_type = $4, discount_value = $5, closed_payment_method = $6,
    closed_at = $7, updated_at = $8, version = version + 1
WHERE id = $1 AND version = $2`

func (p *Postgres) Save(ctx context.Context, o *ledger.Order, expectedVersion int64) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	discountType, discountValue, err := discountToColumns(o.Discount)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updateOrderSQL,
		o.ID, expectedVersion, string(o.Status), discountType, discountValue,
		nullText(string(o.ClosedPaymentMethod)), nullTime(o.ClosedAt), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or someone else committed first.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return ledger.ErrOrderNotFound
		}
		return ledger.ErrStaleVersion
	}

	stored, err := loadStoredChildren(ctx, tx, o.ID)
	if err != nil {
		return err
	}
	keep := make([]uuid.UUID, len(o.Items))
	for i, it := range o.Items {
		keep[i] = it.ID
	}
	if hasRemovedItem(stored, keep) {
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1 AND NOT (id = ANY($2))`, o.ID, keep); err != nil {
			return fmt.Errorf("delete removed items: %w", err)
		}
	}
	if err := writeChildren(ctx, tx, o, stored); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	o.Version = expectedVersion + 1
	return nil
}

func (p *Postgres) ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error) {
	tx, err := p.pool.BeginTx(ctx, snapshotTx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	orders, err := queryOrders(ctx, tx,
		selectOrderSQL+` WHERE restaurant_id = $1 AND status = 'open' ORDER BY created_at, id`, restaurantID)
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, tx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// --- Row mapping ---

const selectOrderSQL = `
SELECT id, restaurant_id, table_ref, status, discount_type, discount_value,
       closed_payment_method, closed_at, version, created_at, updated_at
FROM orders`

func queryOrders(ctx context.Context, db DBTX, sql string, args ...any) ([]*ledger.Order, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*ledger.Order
	for rows.Next() {
		var (
			o             ledger.Order
			status        string
			discountType  pgtype.Text
			discountValue pgtype.Numeric
			closedMethod  pgtype.Text
			closedAt      pgtype.Timestamptz
		)
		if err := rows.Scan(&o.ID, &o.RestaurantID, &o.TableRef, &status, &discountType, &discountValue,
			&closedMethod, &closedAt, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = ledger.Status(status)
		if discountType.Valid {
			o.Discount = &pricing.Discount{
				Type:  pricing.DiscountType(discountType.String),
				Value: numericToDecimal(discountValue),
			}
		}
		if closedMethod.Valid {
			o.ClosedPaymentMethod = ledger.PaymentMethod(closedMethod.String)
		}
		if closedAt.Valid {
			t := closedAt.Time
			o.ClosedAt = &t
		}
		o.Items = []ledger.OrderItem{}
		o.Payments = []ledger.Payment{}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

const selectItemsSQL = `
SELECT id, order_id, product_id, product_name, quantity, unit_price, variation_delta,
       variations_summary, total_price, status, payment_method, paid_at, created_at
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, position`

const selectPaymentsSQL = `
SELECT id, order_id, method, amount, item_ids, paid_at
FROM order_payments
WHERE order_id = ANY($1)
ORDER BY order_id, paid_at, id`

// loadChildren attaches items and payments to orders in two queries.
func loadChildren(ctx context.Context, db DBTX, orders []*ledger.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*ledger.Order, len(orders))
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID
	}

	rows, err := db.Query(ctx, selectItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	for rows.Next() {
		var (
			it                      ledger.OrderItem
			orderID                 uuid.UUID
			unitPrice, delta, total pgtype.Numeric
			status                  string
			method                  pgtype.Text
			paidAt                  pgtype.Timestamptz
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity, &unitPrice, &delta,
			&it.VariationsSummary, &total, &status, &method, &paidAt, &it.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item: %w", err)
		}
		it.UnitPrice = numericToDecimal(unitPrice)
		it.VariationDelta = numericToDecimal(delta)
		it.TotalPrice = numericToDecimal(total)
		it.Status = ledger.ItemStatus(status)
		if method.Valid {
			it.PaymentMethod = ledger.PaymentMethod(method.String)
		}
		if paidAt.Valid {
			t := paidAt.Time
			it.PaidAt = &t
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	rows, err = db.Query(ctx, selectPaymentsSQL, ids)
	if err != nil {
		return fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pay     ledger.Payment
			orderID uuid.UUID
			method  string
			amount  pgtype.Numeric
		)
		if err := rows.Scan(&pay.ID, &orderID, &method, &amount, &pay.ItemIDs, &pay.PaidAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		pay.Method = ledger.PaymentMethod(method)
		pay.Amount = numericToDecimal(amount)
		byID[orderID].Payments = append(byID[orderID].Payments, pay)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate payments: %w", err)
	}
	return nil
}

const upsertItemSQL = `
INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, unit_price,
                         variation_delta, variations_summary, total_price, status, payment_method,
                         paid_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE
SET position = EXCLUDED.position, status = EXCLUDED.status,
    payment_method = EXCLUDED.payment_method, paid_at = EXCLUDED.paid_at`

const insertPaymentSQL = `
INSERT INTO order_payments (id, order_id, method, amount, item_ids, paid_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

// storedItem is the mutable part of an item row as last committed.
type storedItem struct {
	status   string
	position int
	method   string
}

// storedChildren is what Save finds on disk before writing.
type storedChildren struct {
	items    map[uuid.UUID]storedItem
	payments map[uuid.UUID]struct{}
}

func loadStoredChildren(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (storedChildren, error) {
	stored := storedChildren{
		items:    make(map[uuid.UUID]storedItem),
		payments: make(map[uuid.UUID]struct{}),
	}
	rows, err := tx.Query(ctx, `SELECT id, status, position, payment_method FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return stored, fmt.Errorf("query stored items: %w", err)
	}
	for rows.Next() {
		var (
			id     uuid.UUID
			si     storedItem
			method pgtype.Text
		)
		if err := rows.Scan(&id, &si.status, &si.position, &method); err != nil {
			rows.Close()
			return stored, fmt.Errorf("scan stored item: %w", err)
		}
		si.method = method.String
		stored.items[id] = si
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stored, fmt.Errorf("iterate stored items: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT id FROM order_payments WHERE order_id = $1`, orderID)
	if err != nil {
		return stored, fmt.Errorf("query stored payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return stored, fmt.Errorf("scan stored payment: %w", err)
		}
		stored.payments[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return stored, fmt.Errorf("iterate stored payments: %w", err)
	}
	return stored, nil
}

func hasRemovedItem(stored storedChildren, keep []uuid.UUID) bool {
	kept := make(map[uuid.UUID]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	for id := range stored.items {
		if _, ok := kept[id]; !ok {
			return true
		}
	}
	return false
}

// writeChildren writes items that are new or whose status, position or
// payment method changed, and inserts payments not yet stored. Item prices
// are written once at insert and never updated.
func writeChildren(ctx context.Context, tx pgx.Tx, o *ledger.Order, stored storedChildren) error {
	for i, it := range o.Items {
		if prev, ok := stored.items[it.ID]; ok &&
			prev.status == string(it.Status) && prev.position == i && prev.method == string(it.PaymentMethod) {
			continue
		}
		unitPrice, err := decimalToNumeric(it.UnitPrice)
		if err != nil {
			return err
		}
		delta, err := decimalToNumeric(it.VariationDelta)
		if err != nil {
			return err
		}
		total, err := decimalToNumeric(it.TotalPrice)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, upsertItemSQL,
			it.ID, o.ID, i, it.ProductID, it.ProductName, it.Quantity,
			unitPrice, delta, it.VariationsSummary,
			total, string(it.Status), nullText(string(it.PaymentMethod)),
			nullTime(it.PaidAt), it.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert order item %s: %w", it.ID, err)
		}
	}
	for _, pay := range o.Payments {
		if _, ok := stored.payments[pay.ID]; ok {
			continue
		}
		amount, err := decimalToNumeric(pay.Amount)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, insertPaymentSQL,
			pay.ID, o.ID, string(pay.Method), amount, pay.ItemIDs, pay.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment %s: %w", pay.ID, err)
		}
	}
	return nil
}

// --- Helpers ---

func discountToColumns(d *pricing.Discount) (pgtype.Text, pgtype.Numeric, error) {
	if d == nil {
		return pgtype.Text{}, pgtype.Numeric{}, nil
	}
	value, err := decimalToNumeric(d.Value)
	if err != nil {
		return pgtype.Text{}, pgtype.Numeric{}, err
	}
	return pgtype.Text{String: string(d.Type), Valid: true}, value, nil
}

func nullText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func nullTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// decimalToNumeric encodes d exactly. Scale is enforced before values get
// here, so the column never has to round.
func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("encode numeric %s: %w", d, err)
	}
	return n, nil
}
