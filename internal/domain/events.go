package domain

import "time"

// DomainEvent is implemented by every event raised by an aggregate
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types
const (
	EventTypeOrderCreated       = "wms.fulfillment.order.created"
	EventTypeOrderPacked        = "wms.fulfillment.order.packed"
	EventTypeOrderDispatched    = "wms.fulfillment.order.dispatched"
	EventTypeOrderDelivered     = "wms.fulfillment.order.delivered"
	EventTypeOrderCancelled     = "wms.fulfillment.order.cancelled"
	EventTypeReturnOrderCreated = "wms.fulfillment.order.return-created"

	EventTypeInboundCreated         = "wms.fulfillment.inbound.created"
	EventTypeInboundPickupInitiated = "wms.fulfillment.inbound.pickup-initiated"
	EventTypeInboundPickedUp        = "wms.fulfillment.inbound.picked-up"
	EventTypeInboundCompleted       = "wms.fulfillment.inbound.completed"
	EventTypeInboundCancelled       = "wms.fulfillment.inbound.cancelled"

	EventTypeStockReserved = "wms.fulfillment.inventory.reserved"
	EventTypeStockRestored = "wms.fulfillment.inventory.restored"
	EventTypeStockAdjusted = "wms.fulfillment.inventory.adjusted"
	EventTypeLowStockAlert = "wms.fulfillment.inventory.low-stock-alert"
)

// OrderCreatedEvent is raised when a merchant places an order
type OrderCreatedEvent struct {
	OrderID    string      `json:"orderId"`
	MerchantID string      `json:"merchantId"`
	Items      []OrderItem `json:"items"`
	Price      Money       `json:"price"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func (e *OrderCreatedEvent) EventType() string     { return EventTypeOrderCreated }
func (e *OrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// OrderPackedEvent is raised when an operator packs an order
type OrderPackedEvent struct {
	OrderID        string    `json:"orderId"`
	MerchantID     string    `json:"merchantId"`
	PackedWeightKg float64   `json:"packedWeightKg"`
	BoxFee         Money     `json:"boxFee"`
	BoxCutting     bool      `json:"boxCutting"`
	PackedAt       time.Time `json:"packedAt"`
}

func (e *OrderPackedEvent) EventType() string     { return EventTypeOrderPacked }
func (e *OrderPackedEvent) OccurredAt() time.Time { return e.PackedAt }

// OrderDispatchedEvent is raised when stock has been reserved and the order leaves the warehouse
type OrderDispatchedEvent struct {
	OrderID      string             `json:"orderId"`
	MerchantID   string             `json:"merchantId"`
	TrackingCode string             `json:"trackingCode,omitempty"`
	PackingFee   Money              `json:"packingFee"`
	Breakdown    *OrderFeeBreakdown `json:"breakdown"`
	DispatchedAt time.Time          `json:"dispatchedAt"`
}

func (e *OrderDispatchedEvent) EventType() string     { return EventTypeOrderDispatched }
func (e *OrderDispatchedEvent) OccurredAt() time.Time { return e.DispatchedAt }

// OrderDeliveredEvent is raised when the courier confirms delivery
type OrderDeliveredEvent struct {
	OrderID     string    `json:"orderId"`
	MerchantID  string    `json:"merchantId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

func (e *OrderDeliveredEvent) EventType() string     { return EventTypeOrderDelivered }
func (e *OrderDeliveredEvent) OccurredAt() time.Time { return e.DeliveredAt }

// OrderCancelledEvent is raised when an order is logically deleted
type OrderCancelledEvent struct {
	OrderID     string    `json:"orderId"`
	MerchantID  string    `json:"merchantId"`
	FromStatus  string    `json:"fromStatus"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *OrderCancelledEvent) EventType() string     { return EventTypeOrderCancelled }
func (e *OrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// ReturnOrderCreatedEvent is raised when a return order is recorded
type ReturnOrderCreatedEvent struct {
	OrderID       string      `json:"orderId"`
	MerchantID    string      `json:"merchantId"`
	ReturnType    ReturnType  `json:"returnType"`
	Items         []OrderItem `json:"items"`
	StockRestored bool        `json:"stockRestored"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func (e *ReturnOrderCreatedEvent) EventType() string     { return EventTypeReturnOrderCreated }
func (e *ReturnOrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// InboundCreatedEvent is raised when a stock movement request is scheduled
type InboundCreatedEvent struct {
	RequestID     string      `json:"requestId"`
	MerchantID    string      `json:"merchantId"`
	Type          InboundType `json:"type"`
	Items         []OrderItem `json:"items"`
	TotalWeightKg float64     `json:"totalWeightKg"`
	Fee           Money       `json:"fee"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func (e *InboundCreatedEvent) EventType() string     { return EventTypeInboundCreated }
func (e *InboundCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// InboundStatusChangedEvent is raised on pickup, pick-up confirmation and cancellation
type InboundStatusChangedEvent struct {
	RequestID  string        `json:"requestId"`
	MerchantID string        `json:"merchantId"`
	Type       InboundType   `json:"type"`
	From       InboundStatus `json:"from"`
	To         InboundStatus `json:"to"`
	ChangedAt  time.Time     `json:"changedAt"`
	eventType  string
}

func (e *InboundStatusChangedEvent) EventType() string     { return e.eventType }
func (e *InboundStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// InboundCompletedEvent is raised once the inventory side effect of a request is applied
type InboundCompletedEvent struct {
	RequestID   string      `json:"requestId"`
	MerchantID  string      `json:"merchantId"`
	Type        InboundType `json:"type"`
	Items       []OrderItem `json:"items"`
	Fee         Money       `json:"fee"`
	CompletedAt time.Time   `json:"completedAt"`
}

func (e *InboundCompletedEvent) EventType() string     { return EventTypeInboundCompleted }
func (e *InboundCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// StockMovedEvent is raised for every committed ledger movement
type StockMovedEvent struct {
	ProductID        string       `json:"productId"`
	MerchantID       string       `json:"merchantId"`
	Movement         MovementType `json:"movement"`
	Quantity         int          `json:"quantity"`
	PreviousQuantity int          `json:"previousQuantity"`
	NewQuantity      int          `json:"newQuantity"`
	Reference        string       `json:"reference,omitempty"`
	MovedAt          time.Time    `json:"movedAt"`
}

func (e *StockMovedEvent) EventType() string {
	switch e.Movement {
	case MovementReserve:
		return EventTypeStockReserved
	case MovementRestore:
		return EventTypeStockRestored
	default:
		return EventTypeStockAdjusted
	}
}
func (e *StockMovedEvent) OccurredAt() time.Time { return e.MovedAt }

// LowStockAlertEvent is raised when a decrement leaves stock at or below the minimum level
type LowStockAlertEvent struct {
	ProductID       string    `json:"productId"`
	MerchantID      string    `json:"merchantId"`
	CurrentQuantity int       `json:"currentQuantity"`
	MinStockLevel   int       `json:"minStockLevel"`
	AlertedAt       time.Time `json:"alertedAt"`
}

func (e *LowStockAlertEvent) EventType() string     { return EventTypeLowStockAlert }
func (e *LowStockAlertEvent) OccurredAt() time.Time { return e.AlertedAt }
