// Package view shapes ledger orders for clients. Money is rendered as a
// string with exactly two decimals so no client ever sees a float.
package view

import (
	"time"

	"github.com/adisyon/api/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID                  uuid.UUID   `json:"id"`
	RestaurantID        uuid.UUID   `json:"restaurant_id"`
	TableRef            string      `json:"table_ref"`
	Status              string      `json:"status"`
	Items               []OrderItem `json:"items"`
	Discount            *Discount   `json:"discount"`
	Subtotal            string      `json:"subtotal"`
	DiscountAmount      string      `json:"discount_amount"`
	TotalDue            string      `json:"total_due"`
	GrossTotal          string      `json:"gross_total"`
	PaidTotal           string      `json:"paid_total"`
	Payments            []Payment   `json:"payments"`
	ClosedPaymentMethod *string     `json:"closed_payment_method"`
	Version             int64       `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	ClosedAt            *time.Time  `json:"closed_at"`
}

type OrderItem struct {
	ID                uuid.UUID  `json:"id"`
	ProductID         uuid.UUID  `json:"product_id"`
	ProductName       string     `json:"product_name"`
	Quantity          int        `json:"quantity"`
	UnitPrice         string     `json:"unit_price"`
	VariationDelta    string     `json:"variation_delta"`
	VariationsSummary string     `json:"variations_summary"`
	TotalPrice        string     `json:"total_price"`
	Status            string     `json:"status"`
	PaymentMethod     *string    `json:"payment_method"`
	PaidAt            *time.Time `json:"paid_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

type Discount struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Payment struct {
	ID      uuid.UUID   `json:"id"`
	Method  string      `json:"method"`
	ItemIDs []uuid.UUID `json:"item_ids"`
	Amount  string      `json:"amount"`
	PaidAt  time.Time   `json:"paid_at"`
}

// Money formats d with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func NewOrder(o *ledger.Order) Order {
	out := Order{
		ID:             o.ID,
		RestaurantID:   o.RestaurantID,
		TableRef:       o.TableRef,
		Status:         string(o.Status),
		Items:          make([]OrderItem, len(o.Items)),
		Subtotal:       Money(o.Subtotal()),
		DiscountAmount: Money(o.DiscountAmount()),
		TotalDue:       Money(o.TotalDue()),
		GrossTotal:     Money(o.GrossTotal()),
		PaidTotal:      Money(o.PaidTotal()),
		Payments:       make([]Payment, len(o.Payments)),
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		ClosedAt:       o.ClosedAt,
	}
	for i, it := range o.Items {
		out.Items[i] = OrderItem{
			ID:                it.ID,
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitPrice:         Money(it.UnitPrice),
			VariationDelta:    Money(it.VariationDelta),
			VariationsSummary: it.VariationsSummary,
			TotalPrice:        Money(it.TotalPrice),
			Status:            string(it.Status),
			PaymentMethod:     optional(string(it.PaymentMethod)),
			PaidAt:            it.PaidAt,
			CreatedAt:         it.CreatedAt,
		}
	}
	for i, p := range o.Payments {
		out.Payments[i] = NewPayment(p)
	}
	if o.Discount != nil {
		out.Discount = &Discount{Type: string(o.Discount.Type), Value: Money(o.Discount.Value)}
	}
	out.ClosedPaymentMethod = optional(string(o.ClosedPaymentMethod))
	return out
}

func NewOrders(orders []*ledger.Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = NewOrder(o)
	}
	return out
}

func NewPayment(p ledger.Payment) Payment {
	ids := p.ItemIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return Payment{
		ID:      p.ID,
		Method:  string(p.Method),
		ItemIDs: ids,
		Amount:  Money(p.Amount),
		PaidAt:  p.PaidAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
