// Package ledger holds the authoritative state of a restaurant tab and
// enforces its invariants. Methods validate everything before touching the
// order, so a failed call leaves it exactly as it was.
package ledger

import (
	"time"

	"github.com/adisyon/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. Closed is terminal.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ItemStatus is monotonic: unpaid -> paid, never back.
type ItemStatus string

const (
	ItemUnpaid ItemStatus = "unpaid"
	ItemPaid   ItemStatus = "paid"
)

// PaymentMethod is how a set of items was settled.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentOther PaymentMethod = "other"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOther:
		return true
	}
	return false
}

// Order is one open restaurant tab.
type Order struct {
	ID                  uuid.UUID         `json:"id"`
	RestaurantID        uuid.UUID         `json:"restaurant_id"`
	TableRef            string            `json:"table_ref"`
	Status              Status            `json:"status"`
	Items               []OrderItem       `json:"items"`
	Discount            *pricing.Discount `json:"discount,omitempty"`
	Payments            []Payment         `json:"payments"`
	ClosedPaymentMethod PaymentMethod     `json:"closed_payment_method,omitempty"`
	Version             int64             `json:"version"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	ClosedAt            *time.Time        `json:"closed_at,omitempty"`
}

// OrderItem is one product line. Name and prices are snapshotted when the
// item is added and never re-read from the catalog.
type OrderItem struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	VariationDelta    decimal.Decimal `json:"variation_delta"`
	VariationsSummary string          `json:"variations_summary"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Status            ItemStatus      `json:"status"`
	PaymentMethod     PaymentMethod   `json:"payment_method,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Payment records one settlement call: which items it covered, how, and the
// amount by which it reduced the balance owed.
type Payment struct {
	ID      uuid.UUID       `json:"id"`
	Method  PaymentMethod   `json:"method"`
	ItemIDs []uuid.UUID     `json:"item_ids"`
	Amount  decimal.Decimal `json:"amount"`
	PaidAt  time.Time       `json:"paid_at"`
}

// NewItem is a priced line ready to be appended to an order.
type NewItem struct {
	ProductID         uuid.UUID
	ProductName       string
	Quantity          int
	UnitPrice         decimal.Decimal
	VariationDeltas   []decimal.Decimal
	VariationsSummary string
}

// New returns an empty open order for a table.
func New(restaurantID uuid.UUID, tableRef string, now time.Time) *Order {
	return &Order{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		TableRef:     tableRef,
		Status:       StatusOpen,
		Items:        []OrderItem{},
		Payments:     []Payment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddItems appends unpaid items with their prices frozen at add-time.
func (o *Order) AddItems(items []NewItem, now time.Time) ([]OrderItem, error) {
	if o.Status == StatusClosed {
		return nil, ErrOrderClosed
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	added := make([]OrderItem, 0, len(items))
	for _, in := range items {
		total, err := pricing.LineTotal(in.UnitPrice, in.VariationDeltas, in.Quantity)
		if err != nil {
			return nil, err
		}
		delta := decimal.Zero
		for _, d := range in.VariationDeltas {
			delta = delta.Add(d)
		}
		added = append(added, OrderItem{
			ID:                uuid.New(),
			ProductID:         in.ProductID,
			ProductName:       in.ProductName,
			Quantity:          in.Quantity,
			UnitPrice:         in.UnitPrice,
			VariationDelta:    delta,
			VariationsSummary: in.VariationsSummary,
			TotalPrice:        total,
			Status:            ItemUnpaid,
			CreatedAt:         now,
		})
	}

	o.Items = append(o.Items, added...)
	o.UpdatedAt = now
	return added, nil
}

// DeleteItem removes an unpaid item.
func (o *Order) DeleteItem(itemID uuid.UUID, now time.Time) error {
	if o.Status == StatusClosed {
		return ErrOrderClosed
	}
	idx := o.indexOf(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if o.Items[idx].Status == ItemPaid {
		return ErrItemAlreadyPaid
	}
	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	o.UpdatedAt = now
	return nil
}

// PayItems settles the given items. Either every id is payable and all are
// flipped, or nothing changes. Paying an already-paid item is an error.
func (o *Order) PayItems(itemIDs []uuid.UUID, method PaymentMethod, now time.Time) (Payment, error) {
	if o.Status == StatusClosed {
		return Payment{}, ErrOrderClosed
	}
	if len(itemIDs) == 0 {
		return Payment{}, ErrEmptyItems
	}
	if !method.Valid() {
		return Payment{}, ErrInvalidPaymentMethod
	}

	targets := make([]int, 0, len(itemIDs))
	seen := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		idx := o.indexOf(id)
		if idx < 0 {
			return Payment{}, ErrItemNotFound
		}
		if o.Items[idx].Status == ItemPaid || seen[id] {
			return Payment{}, ErrItemAlreadyPaid
		}
		seen[id] = true
		targets = append(targets, idx)
	}

	return o.settle(targets, method, now), nil
}

// ApplyDiscount replaces any active discount.
func (o *Order) ApplyDiscount(t pricing.DiscountType, value decimal.Decimal, now time.Time) error {
	if o.Status == StatusClosed {
		return ErrOrderClosed
	}
	if err := pricing.ValidateDiscount(t, value); err != nil {
		return err
	}
	o.Discount = &pricing.Discount{Type: t, Value: value}
	o.UpdatedAt = now
	return nil
}

// ClearDiscount removes the active discount, if any.
func (o *Order) ClearDiscount(now time.Time) error {
	if o.Status == StatusClosed {
		return ErrOrderClosed
	}
	o.Discount = nil
	o.UpdatedAt = now
	return nil
}

// Close pays every remaining unpaid item with method and freezes the order.
// An order that never had items cannot be closed.
func (o *Order) Close(method PaymentMethod, now time.Time) (Payment, error) {
	if o.Status == StatusClosed {
		return Payment{}, ErrOrderClosed
	}
	if !method.Valid() {
		return Payment{}, ErrInvalidPaymentMethod
	}
	if len(o.Items) == 0 {
		return Payment{}, ErrNoOpenItems
	}

	var targets []int
	for i := range o.Items {
		if o.Items[i].Status == ItemUnpaid {
			targets = append(targets, i)
		}
	}

	var p Payment
	if len(targets) > 0 {
		p = o.settle(targets, method, now)
	}

	closedAt := now
	o.Status = StatusClosed
	o.ClosedPaymentMethod = method
	o.ClosedAt = &closedAt
	o.UpdatedAt = now
	return p, nil
}

// settle flips the items at idx to paid and appends the payment record.
// Callers have already validated every index.
func (o *Order) settle(idx []int, method PaymentMethod, now time.Time) Payment {
	before := o.TotalDue()

	paidAt := now
	ids := make([]uuid.UUID, 0, len(idx))
	for _, i := range idx {
		o.Items[i].Status = ItemPaid
		o.Items[i].PaymentMethod = method
		o.Items[i].PaidAt = &paidAt
		ids = append(ids, o.Items[i].ID)
	}

	p := Payment{
		ID:      uuid.New(),
		Method:  method,
		ItemIDs: ids,
		Amount:  before.Sub(o.TotalDue()),
		PaidAt:  now,
	}
	o.Payments = append(o.Payments, p)
	o.UpdatedAt = now
	return p
}

func (o *Order) indexOf(itemID uuid.UUID) int {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// HasItem reports whether itemID belongs to this order.
func (o *Order) HasItem(itemID uuid.UUID) bool {
	return o.indexOf(itemID) >= 0
}

func (o *Order) lines() []pricing.Line {
	lines := make([]pricing.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = pricing.Line{TotalPrice: it.TotalPrice, Paid: it.Status == ItemPaid}
	}
	return lines
}

// Subtotal is the sum of unpaid item totals.
func (o *Order) Subtotal() decimal.Decimal { return pricing.Subtotal(o.lines()) }

// GrossTotal is the sum of all item totals, paid or not.
func (o *Order) GrossTotal() decimal.Decimal { return pricing.GrossTotal(o.lines()) }

// DiscountAmount is the discount currently taken off the unpaid subtotal.
func (o *Order) DiscountAmount() decimal.Decimal {
	return pricing.DiscountAmount(o.Discount, o.Subtotal())
}

// TotalDue is the outstanding balance.
func (o *Order) TotalDue() decimal.Decimal { return pricing.OrderTotal(o.lines(), o.Discount) }

// PaidTotal sums every recorded payment.
func (o *Order) PaidTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range o.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Clone returns a deep copy safe to mutate independently.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.PaidAt != nil {
			t := *it.PaidAt
			it.PaidAt = &t
		}
		c.Items[i] = it
	}
	c.Payments = make([]Payment, len(o.Payments))
	for i, p := range o.Payments {
		p.ItemIDs = append([]uuid.UUID(nil), p.ItemIDs...)
		c.Payments[i] = p
	}
	if o.Discount != nil {
		d := *o.Discount
		c.Discount = &d
	}
	if o.ClosedAt != nil {
		t := *o.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
