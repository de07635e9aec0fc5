package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adisyon/api/internal/catalog"
	"github.com/adisyon/api/internal/ledger"
	"github.com/adisyon/api/internal/pricing"
	"github.com/adisyon/api/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Fixtures ---

type fixture struct {
	svc        *TabService
	store      *store.Memory
	catalog    *catalog.Static
	cache      *fakeCache
	notifier   *fakeNotifier
	restaurant uuid.UUID
	kebab      catalog.Product
	ayran      catalog.Product
	spicy      catalog.VariationOption
	extraMeat  catalog.VariationOption
	table      catalog.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      store.NewMemory(),
		catalog:    catalog.NewStatic(),
		cache:      newFakeCache(),
		notifier:   &fakeNotifier{},
		restaurant: uuid.New(),
	}
	f.kebab = catalog.Product{ID: uuid.New(), RestaurantID: f.restaurant, Name: "Adana Kebap", Price: decimal.NewFromInt(250)}
	f.ayran = catalog.Product{ID: uuid.New(), RestaurantID: f.restaurant, Name: "Ayran", Price: decimal.NewFromInt(40)}
	f.spicy = catalog.VariationOption{ID: uuid.New(), ProductID: f.kebab.ID, Name: "Acılı", PriceDelta: decimal.Zero}
	f.extraMeat = catalog.VariationOption{ID: uuid.New(), ProductID: f.kebab.ID, Name: "Ekstra et", PriceDelta: decimal.NewFromInt(60)}
	f.table = catalog.Table{ID: uuid.New(), RestaurantID: f.restaurant, Identifier: "qr-t5", Name: "Masa 5"}

	f.catalog.PutProduct(f.kebab)
	f.catalog.PutProduct(f.ayran)
	f.catalog.PutVariation(f.spicy)
	f.catalog.PutVariation(f.extraMeat)
	f.catalog.PutTable(f.table)

	f.svc = NewTabService(f.store, f.catalog, Options{
		Cache:       f.cache,
		Notifier:    f.notifier,
		LockTimeout: time.Second,
	})
	return f
}

// openWithItems opens a tab holding one kebab and one ayran.
func (f *fixture) openWithItems(t *testing.T) *ledger.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.OpenOrder(ctx, f.restaurant, "Masa 1")
	if err != nil {
		t.Fatalf("open order: %v", err)
	}
	o, err = f.svc.AddItems(ctx, o.ID, []ItemRequest{
		{ProductID: f.kebab.ID, Quantity: 1},
		{ProductID: f.ayran.ID, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	return o
}

type fakeCache struct {
	mu          sync.Mutex
	snapshots   map[uuid.UUID][]*ledger.Order
	invalidated int
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[uuid.UUID][]*ledger.Order)}
}

func (c *fakeCache) GetOpenOrders(_ context.Context, id uuid.UUID) ([]*ledger.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.snapshots[id], nil
}

func (c *fakeCache) SetOpenOrders(_ context.Context, id uuid.UUID, orders []*ledger.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[id] = orders
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, id)
	c.invalidated++
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) NotifyOrder(eventType string, _ *ledger.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

// staleStore makes the first failSaves Save calls lose the version race.
type staleStore struct {
	*store.Memory
	failSaves int32
	saves     atomic.Int32
}

func (s *staleStore) Save(ctx context.Context, o *ledger.Order, expected int64) error {
	if s.saves.Add(1) <= s.failSaves {
		return ledger.ErrStaleVersion
	}
	return s.Memory.Save(ctx, o, expected)
}

// --- SubmitOrder ---

func TestSubmitOrder_PricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	declared := decimal.NewFromInt(660)

	o, err := f.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		TableIdentifier: "qr-t5",
		Items: []ItemRequest{
			{ProductID: f.kebab.ID, VariationIDs: []uuid.UUID{f.spicy.ID, f.extraMeat.ID}, Quantity: 2},
			{ProductID: f.ayran.ID, Quantity: 1},
		},
		DeclaredTotal: &declared,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.RestaurantID != f.restaurant || o.TableRef != "Masa 5" {
		t.Fatalf("unexpected order header: %+v", o)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.Items))
	}
	first := o.Items[0]
	if !first.TotalPrice.Equal(decimal.NewFromInt(620)) {
		t.Fatalf("expected kebab line 620, got %s", first.TotalPrice)
	}
	if first.VariationsSummary != "Acılı, Ekstra et" {
		t.Fatalf("unexpected variations summary %q", first.VariationsSummary)
	}
	if first.ProductName != "Adana Kebap" {
		t.Fatalf("expected product name snapshot, got %q", first.ProductName)
	}

	if _, err := f.store.Load(context.Background(), o.ID); err != nil {
		t.Fatalf("order was not persisted: %v", err)
	}
}

func TestSubmitOrder_TotalMismatchPersistsNothing(t *testing.T) {
	f := newFixture(t)
	declared := decimal.NewFromInt(1)

	_, err := f.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		TableIdentifier: "qr-t5",
		Items:           []ItemRequest{{ProductID: f.ayran.ID, Quantity: 1}},
		DeclaredTotal:   &declared,
	})
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got: %v", err)
	}

	open, _ := f.store.ListOpenOrders(context.Background(), f.restaurant)
	if len(open) != 0 {
		t.Fatalf("expected no persisted orders, got %d", len(open))
	}
	if len(f.notifier.events) != 0 {
		t.Fatalf("expected no events, got %v", f.notifier.events)
	}
}

func TestSubmitOrder_UnknownTable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		TableIdentifier: "nope",
		Items:           []ItemRequest{{ProductID: f.ayran.ID, Quantity: 1}},
	})
	if !errors.Is(err, catalog.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got: %v", err)
	}
}

// --- AddItems ---

func TestAddItems_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.openWithItems(t)

	raised := f.kebab
	raised.Price = decimal.NewFromInt(300)
	f.catalog.PutProduct(raised)

	o, err := f.svc.AddItems(ctx, o.ID, []ItemRequest{{ProductID: f.kebab.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if !o.Items[0].UnitPrice.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("existing item repriced: %s", o.Items[0].UnitPrice)
	}
	if !o.Items[2].UnitPrice.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("new item should use current price, got %s", o.Items[2].UnitPrice)
	}
	if !o.TotalDue().Equal(decimal.NewFromInt(590)) {
		t.Fatalf("expected total 590, got %s", o.TotalDue())
	}
}

func TestAddItems_RejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.openWithItems(t)

	_, err := f.svc.AddItems(ctx, o.ID, []ItemRequest{
		{ProductID: f.ayran.ID, Quantity: 1},
		{ProductID: f.ayran.ID, VariationIDs: []uuid.UUID{f.spicy.ID}, Quantity: 1},
	})
	if !errors.Is(err, catalog.ErrVariationMismatch) {
		t.Fatalf("expected ErrVariationMismatch, got: %v", err)
	}

	_, err = f.svc.AddItems(ctx, o.ID, []ItemRequest{{ProductID: f.ayran.ID, Quantity: 0}})
	if !errors.Is(err, ledger.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}

	got, _ := f.svc.GetOrder(ctx, o.ID)
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items after rejected batches, got %d", len(got.Items))
	}
}

func TestAddItems_ProductFromOtherRestaurant(t *testing.T) {
	f := newFixture(t)
	foreign := catalog.Product{ID: uuid.New(), RestaurantID: uuid.New(), Name: "Lahmacun", Price: decimal.NewFromInt(90)}
	f.catalog.PutProduct(foreign)
	o := f.openWithItems(t)

	_, err := f.svc.AddItems(context.Background(), o.ID, []ItemRequest{{ProductID: foreign.ID, Quantity: 1}})
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

// --- DeleteItem / Discount / Close ---

func TestDeleteItem_ResolvesOwningOrder(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	got, err := f.svc.DeleteItem(context.Background(), o.Items[1].ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ProductID != f.kebab.ID {
		t.Fatalf("unexpected items after delete: %+v", got.Items)
	}

	_, err = f.svc.DeleteItem(context.Background(), uuid.New())
	if !errors.Is(err, ledger.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestDiscountAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.openWithItems(t)

	o, err := f.svc.ApplyDiscount(ctx, o.ID, pricing.DiscountPercentage, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if !o.TotalDue().Equal(decimal.NewFromInt(261)) {
		t.Fatalf("expected 261, got %s", o.TotalDue())
	}

	if _, err := f.svc.ApplyDiscount(ctx, o.ID, pricing.DiscountPercentage, decimal.NewFromInt(120)); !errors.Is(err, ledger.ErrInvalidDiscountValue) {
		t.Fatalf("expected ErrInvalidDiscountValue, got: %v", err)
	}

	res, err := f.svc.CloseOrder(ctx, o.ID, ledger.PaymentCard)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Order.Status != ledger.StatusClosed {
		t.Fatalf("expected closed, got %s", res.Order.Status)
	}
	if !res.Payment.Amount.Equal(decimal.NewFromInt(261)) {
		t.Fatalf("expected payment 261, got %s", res.Payment.Amount)
	}

	if _, err := f.svc.ClearDiscount(ctx, o.ID); !errors.Is(err, ledger.ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got: %v", err)
	}
	if _, err := f.svc.AddItems(ctx, o.ID, []ItemRequest{{ProductID: f.ayran.ID, Quantity: 1}}); !errors.Is(err, ledger.ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got: %v", err)
	}

	last := f.notifier.events[len(f.notifier.events)-1]
	if last != EventOrderClosed {
		t.Fatalf("expected last event %s, got %s", EventOrderClosed, last)
	}
}

func TestOpenOrder_RequiresTable(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.OpenOrder(context.Background(), f.restaurant, "  "); !errors.Is(err, ErrTableRequired) {
		t.Fatalf("expected ErrTableRequired, got: %v", err)
	}
}

// --- Concurrency ---

func TestPayItems_ConcurrentDisjointBothSucceed(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PayItems(context.Background(), o.ID, []uuid.UUID{o.Items[i].ID}, ledger.PaymentCash)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("payment %d failed: %v", i, err)
		}
	}
	got, _ := f.svc.GetOrder(context.Background(), o.ID)
	for _, it := range got.Items {
		if it.Status != ledger.ItemPaid {
			t.Fatalf("item %s not paid", it.ID)
		}
	}
	if len(got.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(got.Payments))
	}
	if !got.TotalDue().IsZero() {
		t.Fatalf("expected nothing due, got %s", got.TotalDue())
	}
}

func TestPayItems_ConcurrentOverlapExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)
	target := []uuid.UUID{o.Items[0].ID}

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		alreadyPd atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PayItems(context.Background(), o.ID, target, ledger.PaymentCard)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ledger.ErrItemAlreadyPaid):
				alreadyPd.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded.Load())
	}
	if alreadyPd.Load() != workers-1 {
		t.Fatalf("expected %d ErrItemAlreadyPaid, got %d", workers-1, alreadyPd.Load())
	}
	got, _ := f.svc.GetOrder(context.Background(), o.ID)
	if len(got.Payments) != 1 {
		t.Fatalf("expected a single payment record, got %d", len(got.Payments))
	}
}

func TestMutate_RetriesStaleVersion(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	stale := &staleStore{Memory: f.store, failSaves: 2}
	svc := NewTabService(stale, f.catalog, Options{})

	if _, err := svc.PayItems(context.Background(), o.ID, []uuid.UUID{o.Items[0].ID}, ledger.PaymentCash); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if stale.saves.Load() != 3 {
		t.Fatalf("expected 3 save attempts, got %d", stale.saves.Load())
	}
}

func TestMutate_GivesUpAfterRetryBudget(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	stale := &staleStore{Memory: f.store, failSaves: 100}
	svc := NewTabService(stale, f.catalog, Options{})

	_, err := svc.PayItems(context.Background(), o.ID, []uuid.UUID{o.Items[0].ID}, ledger.PaymentCash)
	if !errors.Is(err, ledger.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got: %v", err)
	}
	if stale.saves.Load() != maxMutationAttempts {
		t.Fatalf("expected %d save attempts, got %d", maxMutationAttempts, stale.saves.Load())
	}

	got, _ := f.store.Load(context.Background(), o.ID)
	if got.Items[0].Status != ledger.ItemUnpaid {
		t.Fatal("failed mutation leaked into the store")
	}
}

func TestMutate_BusinessErrorsNotRetried(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	stale := &staleStore{Memory: f.store}
	svc := NewTabService(stale, f.catalog, Options{})

	_, err := svc.PayItems(context.Background(), o.ID, []uuid.UUID{uuid.New()}, ledger.PaymentCash)
	if !errors.Is(err, ledger.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
	if stale.saves.Load() != 0 {
		t.Fatalf("expected no save attempts, got %d", stale.saves.Load())
	}
}

func TestMutate_LockTimeout(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)
	svc := NewTabService(f.store, f.catalog, Options{LockTimeout: 20 * time.Millisecond})

	release, err := svc.locks.acquire(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = svc.PayItems(context.Background(), o.ID, []uuid.UUID{o.Items[0].ID}, ledger.PaymentCash)
	if !errors.Is(err, ledger.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got: %v", err)
	}

	// A different order is never blocked by this one.
	other, err := svc.OpenOrder(context.Background(), f.restaurant, "Masa 2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.ApplyDiscount(context.Background(), other.ID, pricing.DiscountFixedAmount, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("unrelated order blocked: %v", err)
	}
}

func TestMutate_ContextCancelledWhileWaiting(t *testing.T) {
	f := newFixture(t)
	o := f.openWithItems(t)

	release, err := f.svc.locks.acquire(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.ClearDiscount(ctx, o.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestLockTable_DropsIdleEntries(t *testing.T) {
	locks := newLockTable(time.Second)
	id := uuid.New()

	release, err := locks.acquire(context.Background(), id)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if locks.size() != 1 {
		t.Fatalf("expected 1 entry, got %d", locks.size())
	}
	release()
	if locks.size() != 0 {
		t.Fatalf("expected table to be empty, got %d", locks.size())
	}
}

// --- Reads ---

func TestGetOpenOrders_CacheFillAndInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.openWithItems(t)

	first, err := f.svc.GetOpenOrders(ctx, f.restaurant)
	if err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	if len(first) != 1 || first[0].ID != o.ID {
		t.Fatalf("unexpected open orders: %+v", first)
	}
	if _, ok := f.cache.snapshots[f.restaurant]; !ok {
		t.Fatal("expected cache to be filled")
	}

	before := f.cache.invalidated
	if _, err := f.svc.CloseOrder(ctx, o.ID, ledger.PaymentCash); err != nil {
		t.Fatalf("close: %v", err)
	}
	if f.cache.invalidated != before+1 {
		t.Fatal("expected a commit to invalidate the snapshot")
	}

	after, err := f.svc.GetOpenOrders(ctx, f.restaurant)
	if err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected no open orders, got %d", len(after))
	}
	if after == nil {
		t.Fatal("expected an empty list, got nil")
	}
}

func TestGetOpenOrders_CacheErrorFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	f.openWithItems(t)
	f.cache.getErr = errors.New("redis down")

	orders, err := f.svc.GetOpenOrders(context.Background(), f.restaurant)
	if err != nil {
		t.Fatalf("expected store fallback, got: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
}

// slowListStore holds the first ListOpenOrders after it has read the store
// until release is closed.
type slowListStore struct {
	*store.Memory
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *slowListStore) ListOpenOrders(ctx context.Context, restaurantID uuid.UUID) ([]*ledger.Order, error) {
	orders, err := s.Memory.ListOpenOrders(ctx, restaurantID)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return orders, err
}

func TestGetOpenOrders_CommitDuringReadDoesNotCacheStaleList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openWithItems(t)

	slow := &slowListStore{Memory: f.store, started: make(chan struct{}), release: make(chan struct{})}
	svc := NewTabService(slow, f.catalog, Options{Cache: f.cache, LockTimeout: time.Second})

	done := make(chan []*ledger.Order, 1)
	go func() {
		orders, err := svc.GetOpenOrders(ctx, f.restaurant)
		if err != nil {
			t.Errorf("get open orders: %v", err)
		}
		done <- orders
	}()

	<-slow.started
	if _, err := svc.OpenOrder(ctx, f.restaurant, "T9"); err != nil {
		t.Fatalf("open order: %v", err)
	}
	close(slow.release)

	if stale := <-done; len(stale) != 1 {
		t.Fatalf("expected the in-flight read to see 1 order, got %d", len(stale))
	}
	f.cache.mu.Lock()
	_, cached := f.cache.snapshots[f.restaurant]
	f.cache.mu.Unlock()
	if cached {
		t.Fatal("expected the pre-commit list to stay out of the cache")
	}

	fresh, err := svc.GetOpenOrders(ctx, f.restaurant)
	if err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 open orders, got %d", len(fresh))
	}
}

// racingCache runs beforeSet ahead of the first snapshot write.
type racingCache struct {
	*fakeCache
	once      sync.Once
	beforeSet func()
}

func (c *racingCache) SetOpenOrders(ctx context.Context, id uuid.UUID, orders []*ledger.Order) error {
	c.once.Do(c.beforeSet)
	return c.fakeCache.SetOpenOrders(ctx, id, orders)
}

func TestGetOpenOrders_CommitBetweenCheckAndSetDropsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openWithItems(t)

	rc := &racingCache{fakeCache: f.cache}
	svc := NewTabService(f.store, f.catalog, Options{Cache: rc, LockTimeout: time.Second})
	rc.beforeSet = func() {
		if _, err := svc.OpenOrder(ctx, f.restaurant, "T9"); err != nil {
			t.Errorf("open order: %v", err)
		}
	}

	if _, err := svc.GetOpenOrders(ctx, f.restaurant); err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	f.cache.mu.Lock()
	_, cached := f.cache.snapshots[f.restaurant]
	f.cache.mu.Unlock()
	if cached {
		t.Fatal("expected the stale snapshot to be dropped after the set")
	}

	fresh, err := svc.GetOpenOrders(ctx, f.restaurant)
	if err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 open orders, got %d", len(fresh))
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GetOrder(context.Background(), uuid.New()); !errors.Is(err, ledger.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}
