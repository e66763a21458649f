package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPacked     OrderStatus = "packed"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusReturn     OrderStatus = "return"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPacked, OrderStatusDispatched,
		OrderStatusDelivered, OrderStatusReturn, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// OrderAction is an input to the order state machine
type OrderAction string

const (
	OrderActionPack     OrderAction = "pack"
	OrderActionDispatch OrderAction = "dispatch"
	OrderActionDeliver  OrderAction = "deliver"
	OrderActionCancel   OrderAction = "cancel"
)

// Target returns the status an action moves an order to
func (a OrderAction) Target() OrderStatus {
	switch a {
	case OrderActionPack:
		return OrderStatusPacked
	case OrderActionDispatch:
		return OrderStatusDispatched
	case OrderActionDeliver:
		return OrderStatusDelivered
	case OrderActionCancel:
		return OrderStatusCancelled
	default:
		return ""
	}
}

// orderTransitions is the only place order preconditions are defined.
// return is created directly and has no outgoing transitions.
var orderTransitions = map[OrderStatus]map[OrderAction]OrderStatus{
	OrderStatusPending: {
		OrderActionPack:   OrderStatusPacked,
		OrderActionCancel: OrderStatusCancelled,
	},
	OrderStatusPacked: {
		OrderActionDispatch: OrderStatusDispatched,
		OrderActionCancel:   OrderStatusCancelled,
	},
	OrderStatusDispatched: {
		OrderActionDeliver: OrderStatusDelivered,
	},
}

// CanApply reports whether the action is allowed from s, returning the next status
func (s OrderStatus) CanApply(action OrderAction) (OrderStatus, bool) {
	next, ok := orderTransitions[s][action]
	return next, ok
}

// ReturnType distinguishes restockable returns from damaged goods
type ReturnType string

const (
	ReturnTypeRTO     ReturnType = "RTO"
	ReturnTypeDamaged ReturnType = "Damaged"
)

// IsValid checks if the return type is valid
func (r ReturnType) IsValid() bool {
	return r == ReturnTypeRTO || r == ReturnTypeDamaged
}

// RestoresStock reports whether returned goods go back to stock
func (r ReturnType) RestoresStock() bool {
	return r == ReturnTypeRTO
}

// OrderItem is one product line of an order or stock movement request
type OrderItem struct {
	ProductID string   `bson:"productId" json:"productId"`
	Quantity  int      `bson:"quantity" json:"quantity"`
	WeightKg  *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
}

// ValidateItems checks item shape shared by orders and inbound requests
func ValidateItems(items []OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range items {
		if item.ProductID == "" {
			return ErrProductRequired
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s has quantity %d", ErrInvalidItemQuantity, item.ProductID, item.Quantity)
		}
		if item.WeightKg != nil && *item.WeightKg < 0 {
			return fmt.Errorf("%w: weight override for product %s", ErrNegativeValue, item.ProductID)
		}
	}
	return nil
}

// Order is the order aggregate
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID        string             `bson:"orderId" json:"orderId"`
	MerchantID     string             `bson:"merchantId" json:"merchantId"`
	Items          []OrderItem        `bson:"items" json:"items"`
	Status         OrderStatus        `bson:"status" json:"status"`
	Price          Money              `bson:"price" json:"price"`
	PackedWeightKg *float64           `bson:"packedWeightKg,omitempty" json:"packedWeightKg,omitempty"`
	TrackingCode   *string            `bson:"trackingCode,omitempty" json:"trackingCode,omitempty"`
	BoxFee         Money              `bson:"boxFee" json:"boxFee"`
	BoxCutting     bool               `bson:"boxCutting" json:"boxCutting"`
	ReturnType     ReturnType         `bson:"returnType,omitempty" json:"returnType,omitempty"`
	PackingFee     *Money             `bson:"packingFee,omitempty" json:"packingFee,omitempty"`
	FeeBreakdown   *OrderFeeBreakdown `bson:"feeBreakdown,omitempty" json:"feeBreakdown,omitempty"`
	CancelReason   string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
	PackedAt       *time.Time         `bson:"packedAt,omitempty" json:"packedAt,omitempty"`
	DispatchedAt   *time.Time         `bson:"dispatchedAt,omitempty" json:"dispatchedAt,omitempty"`
	DeliveredAt    *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CancelledAt    *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

func newOrderID() string {
	return fmt.Sprintf("ORD-%s", uuid.New().String()[:8])
}

// IsReturn reports whether the order was created as a return
func (o *Order) IsReturn() bool {
	return o.Status == OrderStatusReturn
}

// TotalUnits returns the summed item quantity
func (o *Order) TotalUnits() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// StockLines returns the items as ledger lines
func (o *Order) StockLines() []StockLine {
	return StockLinesFromItems(o.Items)
}

func (o *Order) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// DomainEvents returns the pending domain events
func (o *Order) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears pending domain events
func (o *Order) ClearDomainEvents() {
	o.domainEvents = nil
}
