// Package pricing computes line totals, discounts and amounts owed on a tab.
// All functions are pure; money is fixed-point decimal throughout.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DiscountType is the kind of order-level discount.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// MaxQuantity bounds a single line's quantity.
const MaxQuantity = 999

var (
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 999")
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidDiscountValue = errors.New("invalid discount value")
	ErrAmountTooLarge       = errors.New("line total exceeds the maximum amount")
)

var (
	hundred = decimal.NewFromInt(100)

	// MaxAmount is the largest money value a column can hold (DECIMAL(12,2)).
	MaxAmount = decimal.RequireFromString("9999999999.99")
)

// Discount is an order-level reduction. Percentage values are in (0, 100].
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Line is the minimal view of an order item the engine needs.
type Line struct {
	TotalPrice decimal.Decimal
	Paid       bool
}

// ValidateDiscount checks a discount before it is applied. Values carry at
// most two decimal places, the precision money is stored with.
func ValidateDiscount(t DiscountType, value decimal.Decimal) error {
	if !value.Equal(value.Round(2)) || value.GreaterThan(MaxAmount) {
		if t != DiscountPercentage && t != DiscountFixedAmount {
			return ErrInvalidDiscountType
		}
		return ErrInvalidDiscountValue
	}
	switch t {
	case DiscountPercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return ErrInvalidDiscountValue
		}
	case DiscountFixedAmount:
		if !value.IsPositive() {
			return ErrInvalidDiscountValue
		}
	default:
		return ErrInvalidDiscountType
	}
	return nil
}

// LineTotal returns (unitPrice + sum(deltas)) * quantity.
func LineTotal(unitPrice decimal.Decimal, deltas []decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return decimal.Zero, ErrInvalidQuantity
	}
	unit := unitPrice
	for _, d := range deltas {
		unit = unit.Add(d)
	}
	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	if total.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return total, nil
}

// DiscountAmount returns how much d takes off subtotal, clamped to [0, subtotal].
// Percentage amounts are rounded half-up to cents.
func DiscountAmount(d *Discount, subtotal decimal.Decimal) decimal.Decimal {
	if d == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(hundred).Round(2)
	case DiscountFixedAmount:
		amount = decimal.Min(d.Value, subtotal)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// Subtotal sums the totals of unpaid lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if !l.Paid {
			sum = sum.Add(l.TotalPrice)
		}
	}
	return sum
}

// GrossTotal sums every line regardless of payment status.
func GrossTotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.TotalPrice)
	}
	return sum
}

// OrderTotal is the outstanding balance: unpaid subtotal minus the discount.
// Paid lines are settled revenue and never count toward what is owed.
func OrderTotal(lines []Line, d *Discount) decimal.Decimal {
	sub := Subtotal(lines)
	total := sub.Sub(DiscountAmount(d, sub))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
