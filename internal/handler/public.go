package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/service"
	"github.com/adisyon/api/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderSubmitter is the customer-facing slice of the tab service.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (*ledger.Order, error)
}

// PublicHandler serves unauthenticated customer endpoints reached by
// scanning a table's QR code.
type PublicHandler struct {
	svc    OrderSubmitter
	logger *zap.Logger
}

func NewPublicHandler(svc OrderSubmitter, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, logger: logger}
}

func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Post("/public/tables/{identifier}/orders", h.Submit)
}

type submitOrderRequest struct {
	Items []itemRequest `json:"items"`
	// DeclaredTotal is the total the customer saw. Prices are always taken
	// from the catalog; a mismatch rejects the order.
	DeclaredTotal *string `json:"declared_total"`
}

// Submit handles POST /public/tables/{identifier}/orders.
func (h *PublicHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	items, msg := toItemRequests(req.Items)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	svcReq := service.SubmitOrderRequest{
		TableIdentifier: chi.URLParam(r, "identifier"),
		Items:           items,
	}
	if req.DeclaredTotal != nil {
		total, err := decimal.NewFromString(*req.DeclaredTotal)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid declared_total"})
			return
		}
		svcReq.DeclaredTotal = &total
	}

	o, err := h.svc.SubmitOrder(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, h.logger, "submit order", err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewOrder(o))
}
