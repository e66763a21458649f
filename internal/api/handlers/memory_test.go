package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// In-memory repositories backing the handler tests. They store copies so a
// rejected operation leaves nothing behind, as a transactional store would.

type memoryProducts struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func (m *memoryProducts) Save(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ProductID] = *product
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryProducts) FindByIDs(ctx context.Context, productIDs []string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, id := range productIDs {
		if p, _ := m.FindByID(ctx, id); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryProducts) FindByMerchant(_ context.Context, merchantID string, _ domain.Pagination) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if p.MerchantID == merchantID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *memoryProducts) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	products, _ := m.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	return int64(len(products)), nil
}

type memoryInventory struct {
	mu      sync.Mutex
	records map[domain.InventoryKey]domain.InventoryRecord
}

func (m *memoryInventory) SaveAll(_ context.Context, records []*domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		r.ClearDomainEvents()
		m.records[r.Key()] = *r
	}
	return nil
}

func (m *memoryInventory) FindByKey(_ context.Context, productID, merchantID string) (*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[domain.InventoryKey{ProductID: productID, MerchantID: merchantID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memoryInventory) FindByProducts(ctx context.Context, merchantID string, productIDs []string) ([]*domain.InventoryRecord, error) {
	var out []*domain.InventoryRecord
	for _, id := range productIDs {
		if r, _ := m.FindByKey(ctx, id, merchantID); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryInventory) FindByMerchant(_ context.Context, merchantID string, _ domain.Pagination) ([]*domain.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.InventoryRecord{}
	for _, r := range m.records {
		if r.MerchantID == merchantID {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *memoryInventory) CountByMerchant(ctx context.Context, merchantID string) (int64, error) {
	records, _ := m.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	return int64(len(records)), nil
}

func (m *memoryInventory) FindLowStock(ctx context.Context, merchantID string) ([]*domain.InventoryRecord, error) {
	records, _ := m.FindByMerchant(ctx, merchantID, domain.DefaultPagination())
	var out []*domain.InventoryRecord
	for _, r := range records {
		if r.IsLowStock() {
			out = append(out, r)
		}
	}
	return out, nil
}

type memoryOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func (m *memoryOrders) Save(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ClearDomainEvents()
	m.orders[order.OrderID] = *order
	return nil
}

func (m *memoryOrders) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memoryOrders) Find(_ context.Context, filter domain.OrderFilter, _ domain.Pagination) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
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

func (m *memoryOrders) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	orders, _ := m.Find(ctx, filter, domain.DefaultPagination())
	return int64(len(orders)), nil
}

type memoryInbound struct {
	mu       sync.Mutex
	requests map[string]domain.InboundRequest
}

func (m *memoryInbound) Save(_ context.Context, req *domain.InboundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ClearDomainEvents()
	m.requests[req.RequestID] = *req
	return nil
}

func (m *memoryInbound) AttachWorkflow(_ context.Context, requestID, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return fmt.Errorf("inbound request %s not found", requestID)
	}
	r.WorkflowID = workflowID
	m.requests[requestID] = r
	return nil
}

func (m *memoryInbound) FindByID(_ context.Context, requestID string) (*domain.InboundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memoryInbound) Find(_ context.Context, filter domain.InboundFilter, _ domain.Pagination) ([]*domain.InboundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.InboundRequest{}
	for _, r := range m.requests {
		if filter.MerchantID != nil && r.MerchantID != *filter.MerchantID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
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

func (m *memoryInbound) Count(ctx context.Context, filter domain.InboundFilter) (int64, error) {
	requests, _ := m.Find(ctx, filter, domain.DefaultPagination())
	return int64(len(requests)), nil
}
