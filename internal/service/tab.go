package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adisyon/api/internal/cache"
	"github.com/adisyon/api/internal/catalog"
	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxMutationAttempts bounds how often a mutation reloads after losing a
// version race to another process writing the same order.
const maxMutationAttempts = 3

const defaultLockTimeout = 5 * time.Second

// Event types published after a commit.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderClosed  = "order.closed"
)

// Errors returned by the tab service on top of the ledger and catalog errors.
var (
	ErrTotalMismatch = errors.New("declared total does not match computed total")
	ErrTableRequired = errors.New("table_ref is required")
)

// OrderStore persists orders with compare-and-swap writes.
// Satisfied by *store.Memory and *store.Postgres.
type OrderStore interface {
	Create(ctx context.Context, o *ledger.Order) error
	Load(ctx context.Context, id uuid.UUID) (*ledger.Order, error)
	FindOrderIDByItem(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	Save(ctx context.Context, o *ledger.Order, expectedVersion int64) error
	ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error)
}

// Catalog resolves products, variations and tables.
// Satisfied by *catalog.Static and *catalog.Postgres.
type Catalog interface {
	GetProduct(ctx context.Context, restaurantID, productID uuid.UUID) (catalog.Product, error)
	GetVariation(ctx context.Context, productID, variationID uuid.UUID) (catalog.VariationOption, error)
	ResolveTable(ctx context.Context, identifier string) (catalog.Table, error)
}

// SnapshotCache holds the open-orders list per restaurant. A miss is
// reported as (nil, nil). Satisfied by *cache.Redis and cache.Noop.
type SnapshotCache interface {
	GetOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error)
	SetOpenOrders(ctx context.Context, restaurantID uuid.UUID, orders []*ledger.Order) error
	Invalidate(ctx context.Context, restaurantID uuid.UUID) error
}

// Notifier pushes committed order snapshots to connected clients.
// Satisfied by *ws.Hub.
type Notifier interface {
	NotifyOrder(eventType string, o *ledger.Order)
}

// ItemRequest is one line a caller wants to add. Prices come from the
// catalog, never from the caller.
type ItemRequest struct {
	ProductID    uuid.UUID
	VariationIDs []uuid.UUID
	Quantity     int
}

// SubmitOrderRequest is a customer-facing order placed from a table.
type SubmitOrderRequest struct {
	TableIdentifier string
	Items           []ItemRequest
	// DeclaredTotal is what the client displayed. Optional.
	DeclaredTotal *decimal.Decimal
}

// PaymentResult is the order after a settlement plus the payment it recorded.
// Payment is zero when Close found nothing left to settle.
type PaymentResult struct {
	Order   *ledger.Order
	Payment ledger.Payment
}

// Options configures optional collaborators. Zero values fall back to
// no-op implementations.
type Options struct {
	Cache       SnapshotCache
	Notifier    Notifier
	Logger      *zap.Logger
	LockTimeout time.Duration
	Now         func() time.Time
}

// TabService is the only mutation surface for orders. Mutations on one order
// are serialized by a per-order lock and committed with a version check, so
// concurrent requests on the same order never interleave.
type TabService struct {
	store    OrderStore
	catalog  Catalog
	cache    SnapshotCache
	notifier Notifier
	logger   *zap.Logger
	locks    *lockTable
	reads    singleflight.Group
	now      func() time.Time

	// gens counts commits per restaurant. A list read only fills the cache
	// if no commit landed while it was running.
	genMu sync.Mutex
	gens  map[uuid.UUID]uint64
}

// NewTabService creates a TabService.
func NewTabService(store OrderStore, cat Catalog, opts Options) *TabService {
	s := &TabService{
		store:    store,
		catalog:  cat,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		gens:     make(map[uuid.UUID]uint64),
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	s.locks = newLockTable(timeout)
	return s
}

// OpenOrder starts an empty tab for a table.
func (s *TabService) OpenOrder(ctx context.Context, restaurantID uuid.UUID, tableRef string) (*ledger.Order, error) {
	tableRef = strings.TrimSpace(tableRef)
	if tableRef == "" {
		return nil, ErrTableRequired
	}
	o := ledger.New(restaurantID, tableRef, s.now())
	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.afterCommit(ctx, EventOrderCreated, o)
	return o, nil
}

// SubmitOrder creates a new open order from a customer's table submission.
// Nothing is persisted when a declared total disagrees with the server price.
func (s *TabService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*ledger.Order, error) {
	table, err := s.catalog.ResolveTable(ctx, req.TableIdentifier)
	if err != nil {
		return nil, err
	}
	items, err := s.priceItems(ctx, table.RestaurantID, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	tableRef := table.Name
	if tableRef == "" {
		tableRef = table.Identifier
	}
	o := ledger.New(table.RestaurantID, tableRef, now)
	if _, err := o.AddItems(items, now); err != nil {
		return nil, err
	}
	if req.DeclaredTotal != nil && !req.DeclaredTotal.Equal(o.TotalDue()) {
		return nil, fmt.Errorf("%w: declared %s, computed %s",
			ErrTotalMismatch, req.DeclaredTotal.StringFixed(2), o.TotalDue().StringFixed(2))
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.afterCommit(ctx, EventOrderCreated, o)
	return o, nil
}

// AddItems prices reqs through the catalog and appends them to the order.
func (s *TabService) AddItems(ctx context.Context, orderID uuid.UUID, reqs []ItemRequest) (*ledger.Order, error) {
	if len(reqs) == 0 {
		return nil, ledger.ErrEmptyItems
	}
	// Pricing needs only the restaurant, which never changes, so catalog
	// reads stay outside the order lock.
	current, err := s.store.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status == ledger.StatusClosed {
		return nil, ledger.ErrOrderClosed
	}
	items, err := s.priceItems(ctx, current.RestaurantID, reqs)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, orderID, EventOrderUpdated, func(o *ledger.Order, now time.Time) error {
		_, err := o.AddItems(items, now)
		return err
	})
}

// DeleteItem removes an unpaid item from whichever order holds it.
func (s *TabService) DeleteItem(ctx context.Context, itemID uuid.UUID) (*ledger.Order, error) {
	orderID, err := s.store.FindOrderIDByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, EventOrderUpdated, func(o *ledger.Order, now time.Time) error {
		return o.DeleteItem(itemID, now)
	})
}

// PayItems settles exactly the given items. Either all of them flip to paid
// or none do.
func (s *TabService) PayItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID, method ledger.PaymentMethod) (*PaymentResult, error) {
	var payment ledger.Payment
	o, err := s.mutate(ctx, orderID, EventOrderUpdated, func(o *ledger.Order, now time.Time) error {
		p, err := o.PayItems(itemIDs, method, now)
		payment = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Order: o, Payment: payment}, nil
}

// ApplyDiscount sets or replaces the order-level discount.
func (s *TabService) ApplyDiscount(ctx context.Context, orderID uuid.UUID, t pricing.DiscountType, value decimal.Decimal) (*ledger.Order, error) {
	if err := pricing.ValidateDiscount(t, value); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, EventOrderUpdated, func(o *ledger.Order, now time.Time) error {
		return o.ApplyDiscount(t, value, now)
	})
}

// ClearDiscount removes the order-level discount.
func (s *TabService) ClearDiscount(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error) {
	return s.mutate(ctx, orderID, EventOrderUpdated, func(o *ledger.Order, now time.Time) error {
		return o.ClearDiscount(now)
	})
}

// CloseOrder settles every unpaid item with method and closes the order.
func (s *TabService) CloseOrder(ctx context.Context, orderID uuid.UUID, method ledger.PaymentMethod) (*PaymentResult, error) {
	var payment ledger.Payment
	o, err := s.mutate(ctx, orderID, EventOrderClosed, func(o *ledger.Order, now time.Time) error {
		p, err := o.Close(method, now)
		payment = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Order: o, Payment: payment}, nil
}

// GetOrder returns the committed state of one order.
func (s *TabService) GetOrder(ctx context.Context, orderID uuid.UUID) (*ledger.Order, error) {
	return s.store.Load(ctx, orderID)
}

// FindItemOrder returns the id of the order holding itemID.
func (s *TabService) FindItemOrder(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	return s.store.FindOrderIDByItem(ctx, itemID)
}

// GetOpenOrders returns the restaurant's open orders oldest first. It never
// takes order locks. Concurrent misses for the same restaurant share one
// store read. Callers must treat the result as read-only.
func (s *TabService) GetOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error) {
	cached, err := s.cache.GetOpenOrders(ctx, restaurantID)
	if err != nil {
		s.logger.Warn("read open orders cache", zap.Stringer("restaurant_id", restaurantID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	v, err, _ := s.reads.Do(restaurantID.String(), func() (any, error) {
		gen := s.generation(restaurantID)
		orders, err := s.store.ListOpenOrders(ctx, restaurantID)
		if err != nil {
			return nil, fmt.Errorf("list open orders: %w", err)
		}
		if orders == nil {
			orders = []*ledger.Order{}
		}
		s.fillCache(ctx, restaurantID, gen, orders)
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*ledger.Order), nil
}

// fillCache stores a list read taken at generation gen. A commit that lands
// before the set skips it; one that lands during the set undoes it.
func (s *TabService) fillCache(ctx context.Context, restaurantID uuid.UUID, gen uint64, orders []*ledger.Order) {
	if s.generation(restaurantID) != gen {
		return
	}
	if err := s.cache.SetOpenOrders(ctx, restaurantID, orders); err != nil {
		s.logger.Warn("fill open orders cache", zap.Stringer("restaurant_id", restaurantID), zap.Error(err))
		return
	}
	if s.generation(restaurantID) == gen {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), restaurantID); err != nil {
		s.logger.Warn("drop stale open orders snapshot", zap.Stringer("restaurant_id", restaurantID), zap.Error(err))
	}
}

func (s *TabService) generation(restaurantID uuid.UUID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[restaurantID]
}

func (s *TabService) bumpGeneration(restaurantID uuid.UUID) {
	s.genMu.Lock()
	s.gens[restaurantID]++
	s.genMu.Unlock()
}

// mutate runs fn against a private copy of the order inside the order's
// critical section and commits it with a version check. A lost version race
// reloads and reapplies fn; business errors from fn are returned unchanged.
func (s *TabService) mutate(ctx context.Context, orderID uuid.UUID, event string, fn func(o *ledger.Order, now time.Time) error) (*ledger.Order, error) {
	release, err := s.locks.acquire(ctx, orderID)
	if err != nil {
		if errors.Is(err, ledger.ErrConcurrentModification) {
			s.logger.Warn("order lock timeout", zap.Stringer("order_id", orderID))
		}
		return nil, err
	}
	defer release()

	for attempt := 1; attempt <= maxMutationAttempts; attempt++ {
		current, err := s.store.Load(ctx, orderID)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := fn(next, s.now()); err != nil {
			return nil, err
		}

		err = s.store.Save(ctx, next, current.Version)
		if err == nil {
			s.afterCommit(ctx, event, next)
			return next, nil
		}
		if !errors.Is(err, ledger.ErrStaleVersion) {
			return nil, fmt.Errorf("save order: %w", err)
		}
		s.logger.Info("order version conflict, retrying",
			zap.Stringer("order_id", orderID),
			zap.Int("attempt", attempt),
		)
	}
	return nil, ledger.ErrConcurrentModification
}

// afterCommit invalidates the snapshot cache and publishes the new state.
// The write is already durable, so failures here are only logged.
func (s *TabService) afterCommit(ctx context.Context, event string, o *ledger.Order) {
	ctx = context.WithoutCancel(ctx)
	s.bumpGeneration(o.RestaurantID)
	s.reads.Forget(o.RestaurantID.String())
	if err := s.cache.Invalidate(ctx, o.RestaurantID); err != nil {
		s.logger.Warn("invalidate open orders cache",
			zap.Stringer("restaurant_id", o.RestaurantID),
			zap.Error(err),
		)
	}
	s.notifier.NotifyOrder(event, o.Clone())
}

// priceItems resolves every request against the catalog and freezes its
// prices. Any lookup failure rejects the whole batch.
func (s *TabService) priceItems(ctx context.Context, restaurantID uuid.UUID, reqs []ItemRequest) ([]ledger.NewItem, error) {
	if len(reqs) == 0 {
		return nil, ledger.ErrEmptyItems
	}
	items := make([]ledger.NewItem, 0, len(reqs))
	for i, req := range reqs {
		if req.Quantity <= 0 || req.Quantity > pricing.MaxQuantity {
			return nil, fmt.Errorf("item %d: %w", i, ledger.ErrInvalidQuantity)
		}
		product, err := s.catalog.GetProduct(ctx, restaurantID, req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		deltas := make([]decimal.Decimal, 0, len(req.VariationIDs))
		names := make([]string, 0, len(req.VariationIDs))
		for _, vid := range req.VariationIDs {
			v, err := s.catalog.GetVariation(ctx, product.ID, vid)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			deltas = append(deltas, v.PriceDelta)
			names = append(names, v.Name)
		}

		items = append(items, ledger.NewItem{
			ProductID:         product.ID,
			ProductName:       product.Name,
			Quantity:          req.Quantity,
			UnitPrice:         product.Price,
			VariationDeltas:   deltas,
			VariationsSummary: strings.Join(names, ", "),
		})
	}
	return items, nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyOrder(string, *ledger.Order) {}
