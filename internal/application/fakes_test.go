package application

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// The fakes store copies so a failed operation cannot leak mutations into
// what the next read returns, as with a real store.

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	saveFn   func(context.Context, *domain.Product) error
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[string]domain.Product)}
	for _, p := range products {
		f.products[p.ProductID] = *p
	}
	return f
}

func (f *fakeProductRepo) Save(ctx context.Context, product *domain.Product) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, product); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[product.ProductID] = *product
	return nil
}

func (f *fakeProductRepo) FindByID(_ context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, productIDs []string) ([]*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Product
	for _, id := range productIDs {
		if p, ok := f.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FindByMerchant(_ context.Context, merchantID string, _ domain.Pagination) ([]*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Product
	for _, p := range f.products {
		if p.MerchantID == merchantID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	products, _ := f.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	return int64(len(products)), nil
}

type fakeInventoryRepo struct {
	mu        sync.Mutex
	records   map[domain.InventoryKey]domain.InventoryRecord
	events    []domain.DomainEvent
	saveAllFn func(context.Context, []*domain.InventoryRecord) error
}

func newFakeInventoryRepo(records ...*domain.InventoryRecord) *fakeInventoryRepo {
	f := &fakeInventoryRepo{records: make(map[domain.InventoryKey]domain.InventoryRecord)}
	for _, r := range records {
		f.records[r.Key()] = *r
	}
	return f
}

func (f *fakeInventoryRepo) SaveAll(ctx context.Context, records []*domain.InventoryRecord) error {
	if f.saveAllFn != nil {
		if err := f.saveAllFn(ctx, records); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		f.events = append(f.events, r.DomainEvents()...)
		r.ClearDomainEvents()
		f.records[r.Key()] = *r
	}
	return nil
}

func (f *fakeInventoryRepo) FindByKey(_ context.Context, productID, merchantID string) (*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[domain.InventoryKey{ProductID: productID, MerchantID: merchantID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeInventoryRepo) FindByProducts(_ context.Context, merchantID string, productIDs []string) ([]*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.InventoryRecord
	for _, id := range productIDs {
		if r, ok := f.records[domain.InventoryKey{ProductID: id, MerchantID: merchantID}]; ok {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) FindByMerchant(_ context.Context, merchantID string, _ domain.Pagination) ([]*domain.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.InventoryRecord
	for _, r := range f.records {
		if r.MerchantID == merchantID {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	records, _ := f.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	return int64(len(records)), nil
}

func (f *fakeInventoryRepo) FindLowStock(ctx context.Context, merchantID string) ([]*domain.InventoryRecord, error) {
	records, _ := f.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	var out []*domain.InventoryRecord
	for _, r := range records {
		if r.IsLowStock() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) quantity(productID, merchantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[domain.InventoryKey{ProductID: productID, MerchantID: merchantID}].Quantity
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	events []domain.DomainEvent
	saveFn func(context.Context, *domain.Order) error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]domain.Order)}
}

func (f *fakeOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	if f.saveFn != nil {
		if err := f.saveFn(ctx, order); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, order.DomainEvents()...)
	order.ClearDomainEvents()
	f.orders[order.OrderID] = *order
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeOrderRepo) Find(_ context.Context, filter domain.OrderFilter, _ domain.Pagination) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.orders {
		if filter.MerchantID != nil && o.MerchantID != *filter.MerchantID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		o := o
		out = append(out, &o)
	}
	return out, nil
}

func (f *fakeOrderRepo) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	orders, _ := f.Find(ctx, filter, domain.DefaultPagination())
	return int64(len(orders)), nil
}

func (f *fakeOrderRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.EventType()
	}
	return types
}

type fakeInboundRepo struct {
	mu       sync.Mutex
	requests map[string]domain.InboundRequest
	saves    int
}

func newFakeInboundRepo() *fakeInboundRepo {
	return &fakeInboundRepo{requests: make(map[string]domain.InboundRequest)}
}

func (f *fakeInboundRepo) Save(_ context.Context, req *domain.InboundRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	req.ClearDomainEvents()
	f.requests[req.RequestID] = *req
	return nil
}

func (f *fakeInboundRepo) AttachWorkflow(_ context.Context, requestID, workflowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return stderrors.New("inbound request not found")
	}
	r.WorkflowID = workflowID
	f.requests[requestID] = r
	return nil
}

func (f *fakeInboundRepo) FindByID(_ context.Context, requestID string) (*domain.InboundRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[requestID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeInboundRepo) Find(_ context.Context, filter domain.InboundFilter, _ domain.Pagination) ([]*domain.InboundRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.InboundRequest
	for _, r := range f.requests {
		if filter.MerchantID != nil && r.MerchantID != *filter.MerchantID {
			continue
		}
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (f *fakeInboundRepo) Count(ctx context.Context, filter domain.InboundFilter) (int64, error) {
	requests, _ := f.Find(ctx, filter, domain.DefaultPagination())
	return int64(len(requests)), nil
}

type fakeScheduler struct {
	mu          sync.Mutex
	scheduleErr error
	scheduled   []string
	signals     []string
	// onStart runs as the workflow starts, before SchedulePickup returns
	onStart func(requestID string)
}

func (f *fakeScheduler) SchedulePickup(_ context.Context, requestID string) (string, error) {
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	f.mu.Lock()
	f.scheduled = append(f.scheduled, requestID)
	f.mu.Unlock()
	if f.onStart != nil {
		f.onStart(requestID)
	}
	return "inbound-pickup-" + requestID, nil
}

func (f *fakeScheduler) SignalPickedUp(_ context.Context, workflowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, "pickedUp:"+workflowID)
	return nil
}

func (f *fakeScheduler) SignalReceived(_ context.Context, workflowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, "received:"+workflowID)
	return nil
}

type testEnv struct {
	products  *fakeProductRepo
	inventory *fakeInventoryRepo
	orders    *fakeOrderRepo
	inbound   *fakeInboundRepo
	scheduler *fakeScheduler
	deps      Dependencies
}

func newTestEnv(products []*domain.Product, records ...*domain.InventoryRecord) *testEnv {
	env := &testEnv{
		products:  newFakeProductRepo(products...),
		inventory: newFakeInventoryRepo(records...),
		orders:    newFakeOrderRepo(),
		inbound:   newFakeInboundRepo(),
		scheduler: &fakeScheduler{},
	}
	env.deps = Dependencies{
		Products:  env.products,
		Inventory: env.inventory,
		Orders:    env.orders,
		Inbound:   env.inbound,
		Pickups:   env.scheduler,
		Logger:    logging.NewNop(),
		Metrics:   metrics.New(metrics.DefaultConfig("test")),
		Clock:     func() time.Time { return testNow },
	}
	return env
}

func testProduct(id string, weightKg float64, packingType domain.PackingType) *domain.Product {
	return &domain.Product{
		ProductID:  id,
		MerchantID: "m1",
		ProductAttributes: domain.ProductAttributes{
			Name:        id,
			WeightKg:    weightKg,
			PackingType: packingType,
		},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func testStock(productID string, qty, minLevel int) *domain.InventoryRecord {
	r := domain.NewInventoryRecord(productID, "m1")
	r.Quantity = qty
	r.MinStockLevel = minLevel
	return r
}
