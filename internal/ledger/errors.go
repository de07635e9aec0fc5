package ledger

import (
	"errors"

	"github.com/adisyon/api/internal/pricing"
)

// Business-rule errors. None of them are retried by the service.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrItemNotFound         = errors.New("order item not found")
	ErrItemAlreadyPaid      = errors.New("order item already paid")
	ErrOrderClosed          = errors.New("order is closed")
	ErrNoOpenItems          = errors.New("order has no items to settle")
	ErrEmptyItems           = errors.New("items are required")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrInvalidQuantity      = pricing.ErrInvalidQuantity
	ErrInvalidDiscountType  = pricing.ErrInvalidDiscountType
	ErrInvalidDiscountValue = pricing.ErrInvalidDiscountValue
	ErrAmountTooLarge       = pricing.ErrAmountTooLarge
)

// Concurrency errors.
var (
	// ErrStaleVersion is returned by a store when a compare-and-swap write
	// finds the order at a different version than the caller read.
	ErrStaleVersion = errors.New("order version changed")

	// ErrConcurrentModification is surfaced to callers when the per-order
	// critical section could not be obtained within the retry budget.
	ErrConcurrentModification = errors.New("order is being modified concurrently, please retry")
)
