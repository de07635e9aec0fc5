package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/adisyon/api/internal/catalog"
	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeJSON logs encode failures through the global zap logger, which
// cmd/server replaces with the configured one.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode JSON response", zap.Int("status", status), zap.Error(err))
	}
}

// writeServiceError maps service, ledger and catalog errors to a status code.
// Anything unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case isConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request cancelled"})
	default:
		logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ledger.ErrOrderNotFound) ||
		errors.Is(err, ledger.ErrItemNotFound) ||
		errors.Is(err, catalog.ErrTableNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, ledger.ErrItemAlreadyPaid) ||
		errors.Is(err, ledger.ErrOrderClosed) ||
		errors.Is(err, ledger.ErrNoOpenItems) ||
		errors.Is(err, ledger.ErrConcurrentModification) ||
		errors.Is(err, ledger.ErrStaleVersion)
}

// isValidationError checks if the error is a known validation error
// that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, ledger.ErrEmptyItems) ||
		errors.Is(err, ledger.ErrInvalidQuantity) ||
		errors.Is(err, ledger.ErrAmountTooLarge) ||
		errors.Is(err, ledger.ErrInvalidDiscountType) ||
		errors.Is(err, ledger.ErrInvalidDiscountValue) ||
		errors.Is(err, ledger.ErrInvalidPaymentMethod) ||
		errors.Is(err, catalog.ErrProductNotFound) ||
		errors.Is(err, catalog.ErrVariationNotFound) ||
		errors.Is(err, catalog.ErrVariationMismatch) ||
		errors.Is(err, service.ErrTotalMismatch) ||
		errors.Is(err, service.ErrTableRequired)
}

func formatItemError(index int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", index, msg)
}

func parseUUIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: invalid id", field, i)
		}
		ids[i] = id
	}
	return ids, nil
}
