package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/pricing"
	"github.com/adisyon/api/internal/service"
	"github.com/adisyon/api/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TabServicer defines the service methods needed by staff order handlers.
// Satisfied by *service.TabService; narrow interface for testability.
type TabServicer interface {
	OpenOrder(ctx context.Context, restaurantID uuid.UUID, tableRef string) (*ledger.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error)
	GetOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error)
	AddItems(ctx context.Context, orderID uuid.UUID, reqs []service.ItemRequest) (*ledger.Order, error)
	FindItemOrder(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) (*ledger.Order, error)
	PayItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID, method ledger.PaymentMethod) (*service.PaymentResult, error)
	ApplyDiscount(ctx context.Context, orderID uuid.UUID, t pricing.DiscountType, value decimal.Decimal) (*ledger.Order, error)
	ClearDiscount(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error)
	CloseOrder(ctx context.Context, orderID uuid.UUID, method ledger.PaymentMethod) (*service.PaymentResult, error)
}

// OrderHandler handles staff tab endpoints.
type OrderHandler struct {
	svc    TabServicer
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc TabServicer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Get("/open", h.ListOpen)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/items", h.AddItems)
		r.Post("/{id}/payments", h.PayItems)
		r.Put("/{id}/discount", h.ApplyDiscount)
		r.Delete("/{id}/discount", h.ClearDiscount)
		r.Post("/{id}/close", h.Close)
	})
	r.Delete("/order-items/{itemId}", h.DeleteItem)
}

// --- Request / Response types ---

type openOrderRequest struct {
	TableRef string `json:"table_ref"`
}

type addItemsRequest struct {
	Items []itemRequest `json:"items"`
}

type itemRequest struct {
	ProductID    string   `json:"product_id"`
	VariationIDs []string `json:"variation_ids"`
	Quantity     int      `json:"quantity"`
}

type payItemsRequest struct {
	ItemIDs       []string `json:"item_ids"`
	PaymentMethod string   `json:"payment_method"`
}

type discountRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type closeRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type openOrdersResponse struct {
	Orders []view.Order `json:"orders"`
}

type paymentResultResponse struct {
	Order   view.Order    `json:"order"`
	Payment *view.Payment `json:"payment"`
}

// --- Handlers ---

// Open handles POST /restaurants/{rid}/orders.
func (h *OrderHandler) Open(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req openOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, err := h.svc.OpenOrder(r.Context(), restaurantID, req.TableRef)
	if err != nil {
		writeServiceError(w, h.logger, "open order", err)
		return
	}
	writeJSON(w, http.StatusCreated, view.NewOrder(o))
}

// ListOpen handles GET /restaurants/{rid}/orders/open. This is the polling
// endpoint for every staff device.
func (h *OrderHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	orders, err := h.svc.GetOpenOrders(r.Context(), restaurantID)
	if err != nil {
		writeServiceError(w, h.logger, "list open orders", err)
		return
	}
	writeJSON(w, http.StatusOK, openOrdersResponse{Orders: view.NewOrders(orders)})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.NewOrder(o))
}

// AddItems handles POST /restaurants/{rid}/orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	items, msg := toItemRequests(req.Items)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.AddItems(r.Context(), o.ID, items)
	if err != nil {
		writeServiceError(w, h.logger, "add items", err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewOrder(updated))
}

// DeleteItem handles DELETE /restaurants/{rid}/order-items/{itemId}.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	orderID, err := h.svc.FindItemOrder(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, h.logger, "find item order", err)
		return
	}
	if _, ok := h.orderInRestaurant(w, r.Context(), restaurantID, orderID); !ok {
		return
	}

	o, err := h.svc.DeleteItem(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, h.logger, "delete item", err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewOrder(o))
}

// PayItems handles POST /restaurants/{rid}/orders/{id}/payments.
func (h *OrderHandler) PayItems(w http.ResponseWriter, r *http.Request) {
	var req payItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.ItemIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item_ids are required"})
		return
	}
	itemIDs, err := parseUUIDs("item_ids", req.ItemIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	method := ledger.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ledger.ErrInvalidPaymentMethod.Error()})
		return
	}

	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	res, err := h.svc.PayItems(r.Context(), o.ID, itemIDs, method)
	if err != nil {
		writeServiceError(w, h.logger, "pay items", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResultResponse(res))
}

// ApplyDiscount handles PUT /restaurants/{rid}/orders/{id}/discount.
func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ledger.ErrInvalidDiscountValue.Error()})
		return
	}

	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.ApplyDiscount(r.Context(), o.ID, pricing.DiscountType(req.Type), value)
	if err != nil {
		writeServiceError(w, h.logger, "apply discount", err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewOrder(updated))
}

// ClearDiscount handles DELETE /restaurants/{rid}/orders/{id}/discount.
func (h *OrderHandler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.ClearDiscount(r.Context(), o.ID)
	if err != nil {
		writeServiceError(w, h.logger, "clear discount", err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewOrder(updated))
}

// Close handles POST /restaurants/{rid}/orders/{id}/close.
func (h *OrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	method := ledger.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ledger.ErrInvalidPaymentMethod.Error()})
		return
	}

	o, ok := h.scopedOrder(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CloseOrder(r.Context(), o.ID, method)
	if err != nil {
		writeServiceError(w, h.logger, "close order", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResultResponse(res))
}

// --- Helpers ---

// scopedOrder parses {rid} and {id} and loads the order, answering 404 when
// it belongs to another restaurant. Orders never move between restaurants,
// so checking before the mutation is safe.
func (h *OrderHandler) scopedOrder(w http.ResponseWriter, r *http.Request) (*ledger.Order, bool) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return nil, false
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return nil, false
	}
	return h.orderInRestaurant(w, r.Context(), restaurantID, orderID)
}

func (h *OrderHandler) orderInRestaurant(w http.ResponseWriter, ctx context.Context, restaurantID, orderID uuid.UUID) (*ledger.Order, bool) {
	o, err := h.svc.GetOrder(ctx, orderID)
	if err != nil {
		writeServiceError(w, h.logger, "get order", err)
		return nil, false
	}
	if o.RestaurantID != restaurantID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ledger.ErrOrderNotFound.Error()})
		return nil, false
	}
	return o, true
}

// toItemRequests validates the wire shape of item lines. It returns a
// non-empty message on the first invalid line.
func toItemRequests(items []itemRequest) ([]service.ItemRequest, string) {
	if len(items) == 0 {
		return nil, "items are required"
	}
	out := make([]service.ItemRequest, len(items))
	for i, it := range items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, formatItemError(i, "invalid product_id")
		}
		if it.Quantity <= 0 || it.Quantity > pricing.MaxQuantity {
			return nil, formatItemError(i, fmt.Sprintf("quantity must be between 1 and %d", pricing.MaxQuantity))
		}
		variationIDs, err := parseUUIDs("variation_ids", it.VariationIDs)
		if err != nil {
			return nil, formatItemError(i, err.Error())
		}
		out[i] = service.ItemRequest{
			ProductID:    productID,
			VariationIDs: variationIDs,
			Quantity:     it.Quantity,
		}
	}
	return out, ""
}

func toPaymentResultResponse(res *service.PaymentResult) paymentResultResponse {
	resp := paymentResultResponse{Order: view.NewOrder(res.Order)}
	if res.Payment.ID != uuid.Nil {
		p := view.NewPayment(res.Payment)
		resp.Payment = &p
	}
	return resp
}
