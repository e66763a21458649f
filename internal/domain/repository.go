package domain

import "context"

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// Save persists a product (upsert)
	Save(ctx context.Context, product *Product) error

	// FindByID retrieves a product by its ProductID; nil when absent
	FindByID(ctx context.Context, productID string) (*Product, error)

	// FindByIDs retrieves the products that exist among productIDs
	FindByIDs(ctx context.Context, productIDs []string) ([]*Product, error)

	// FindByMerchant retrieves a merchant's products
	FindByMerchant(ctx context.Context, merchantID string, pagination Pagination) ([]*Product, error)

	// CountByMerchant returns the number of products a merchant owns
	CountByMerchant(ctx context.Context, merchantID string) (int64, error)
}

// InventoryRepository defines the interface for stock record persistence
type InventoryRepository interface {
	// SaveAll persists the records and their domain events
	SaveAll(ctx context.Context, records []*InventoryRecord) error

	// FindByKey retrieves one record; nil when absent
	FindByKey(ctx context.Context, productID, merchantID string) (*InventoryRecord, error)

	// FindByProducts retrieves the merchant's records for the given products
	FindByProducts(ctx context.Context, merchantID string, productIDs []string) ([]*InventoryRecord, error)

	// FindByMerchant retrieves all records of a merchant
	FindByMerchant(ctx context.Context, merchantID string, pagination Pagination) ([]*InventoryRecord, error)

	// CountByMerchant returns the number of records of a merchant
	CountByMerchant(ctx context.Context, merchantID string) (int64, error)

	// FindLowStock retrieves records at or below their minimum level
	FindLowStock(ctx context.Context, merchantID string) ([]*InventoryRecord, error)
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Save persists an order with its domain events
	Save(ctx context.Context, order *Order) error

	// FindByID retrieves an order by its OrderID; nil when absent
	FindByID(ctx context.Context, orderID string) (*Order, error)

	// Find retrieves orders matching the filter, newest first
	Find(ctx context.Context, filter OrderFilter, pagination Pagination) ([]*Order, error)

	// Count returns the number of orders matching the filter
	Count(ctx context.Context, filter OrderFilter) (int64, error)
}

// InboundRequestRepository defines the interface for inbound request persistence
type InboundRequestRepository interface {
	// Save persists a request with its domain events
	Save(ctx context.Context, req *InboundRequest) error

	// FindByID retrieves a request by its RequestID; nil when absent
	FindByID(ctx context.Context, requestID string) (*InboundRequest, error)

	// Find retrieves requests matching the filter, newest first
	Find(ctx context.Context, filter InboundFilter, pagination Pagination) ([]*InboundRequest, error)

	// Count returns the number of requests matching the filter
	Count(ctx context.Context, filter InboundFilter) (int64, error)

	// AttachWorkflow records the pickup workflow ID without touching any other field
	AttachWorkflow(ctx context.Context, requestID, workflowID string) error
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Normalize clamps page and page size to sane bounds
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}

// OrderFilter represents filter options for querying orders
type OrderFilter struct {
	MerchantID *string
	Status     *OrderStatus
	ReturnType *ReturnType
}

// InboundFilter represents filter options for querying inbound requests
type InboundFilter struct {
	MerchantID *string
	Status     *InboundStatus
	Type       *InboundType
}
