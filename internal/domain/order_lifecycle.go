package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderTransition is a state machine input with its payload
type OrderTransition interface {
	Action() OrderAction
}

// PackOrder records the operator-entered packing details
type PackOrder struct {
	PackedWeightKg float64
	BoxFee         Money
	BoxCutting     bool
}

// DispatchOrder reserves stock and hands the order to the courier
type DispatchOrder struct {
	TrackingCode string
}

// DeliverOrder confirms delivery
type DeliverOrder struct{}

// CancelOrder logically deletes an order that has not left the warehouse
type CancelOrder struct {
	Reason string
}

func (PackOrder) Action() OrderAction     { return OrderActionPack }
func (DispatchOrder) Action() OrderAction { return OrderActionDispatch }
func (DeliverOrder) Action() OrderAction  { return OrderActionDeliver }
func (CancelOrder) Action() OrderAction   { return OrderActionCancel }

// OrderTransitionResult is the outcome of a successful transition
type OrderTransitionResult struct {
	Order      *Order
	From       OrderStatus
	To         OrderStatus
	PackingFee Money
	Breakdown  *OrderFeeBreakdown
	Movements  []LedgerResult
}

// LowStock returns the movements that raised the low-stock signal
func (r *OrderTransitionResult) LowStock() []LedgerResult {
	return LowStockResults(r.Movements)
}

// OrderLifecycle governs order status changes and their inventory side effects
type OrderLifecycle struct {
	fees    *FeeCalculator
	ledger  *InventoryLedger
	catalog ProductLookup
	now     func() time.Time
}

// NewOrderLifecycle creates an order lifecycle over a ledger and product snapshot
func NewOrderLifecycle(fees *FeeCalculator, ledger *InventoryLedger, catalog ProductLookup) *OrderLifecycle {
	if fees == nil {
		fees = NewFeeCalculator(nil)
	}
	return &OrderLifecycle{
		fees:    fees,
		ledger:  ledger,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create places a new pending order priced at the flat per-unit price
func (l *OrderLifecycle) Create(merchantID string, items []OrderItem) (*Order, error) {
	if merchantID == "" {
		return nil, ErrMerchantRequired
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	now := l.now()
	order := &Order{
		OrderID:    newOrderID(),
		MerchantID: merchantID,
		Items:      copyItems(items),
		Status:     OrderStatusPending,
		Price:      l.fees.OrderPrice(items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	order.addDomainEvent(&OrderCreatedEvent{
		OrderID:    order.OrderID,
		MerchantID: merchantID,
		Items:      order.Items,
		Price:      order.Price,
		CreatedAt:  now,
	})

	return order, nil
}

// CreateReturn records a return order. RTO returns go straight back to stock.
func (l *OrderLifecycle) CreateReturn(merchantID string, items []OrderItem, returnType ReturnType) (*Order, []LedgerResult, error) {
	if merchantID == "" {
		return nil, nil, ErrMerchantRequired
	}
	if !returnType.IsValid() {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidReturnType, returnType)
	}
	if err := ValidateItems(items); err != nil {
		return nil, nil, err
	}

	now := l.now()
	order := &Order{
		OrderID:    newOrderID(),
		MerchantID: merchantID,
		Items:      copyItems(items),
		Status:     OrderStatusReturn,
		ReturnType: returnType,
		Price:      l.fees.OrderPrice(items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var movements []LedgerResult
	if returnType.RestoresStock() {
		var err error
		movements, err = l.ledger.RestoreAll(merchantID, order.OrderID, order.StockLines())
		if err != nil {
			return nil, nil, err
		}
	}

	order.addDomainEvent(&ReturnOrderCreatedEvent{
		OrderID:       order.OrderID,
		MerchantID:    merchantID,
		ReturnType:    returnType,
		Items:         order.Items,
		StockRestored: returnType.RestoresStock(),
		CreatedAt:     now,
	})

	return order, movements, nil
}

// ReplaceItems swaps the items of a pending order and reprices it
func (l *OrderLifecycle) ReplaceItems(order *Order, items []OrderItem) error {
	if order.Status != OrderStatusPending {
		return fmt.Errorf("%w: order %s is %s", ErrItemsLocked, order.OrderID, order.Status)
	}
	if err := ValidateItems(items); err != nil {
		return err
	}
	order.Items = copyItems(items)
	order.Price = l.fees.OrderPrice(items)
	order.UpdatedAt = l.now()
	return nil
}

// MarkPacked moves a pending order to packed
func (l *OrderLifecycle) MarkPacked(order *Order, packedWeightKg float64, boxFee Money, boxCutting bool) (*OrderTransitionResult, error) {
	return l.Transition(order, PackOrder{PackedWeightKg: packedWeightKg, BoxFee: boxFee, BoxCutting: boxCutting})
}

// Dispatch reserves every item and moves a packed order to dispatched
func (l *OrderLifecycle) Dispatch(order *Order, trackingCode string) (*OrderTransitionResult, error) {
	return l.Transition(order, DispatchOrder{TrackingCode: trackingCode})
}

// MarkDelivered moves a dispatched order to delivered
func (l *OrderLifecycle) MarkDelivered(order *Order) (*OrderTransitionResult, error) {
	return l.Transition(order, DeliverOrder{})
}

// Cancel logically deletes a pending or packed order
func (l *OrderLifecycle) Cancel(order *Order, reason string) (*OrderTransitionResult, error) {
	return l.Transition(order, CancelOrder{Reason: reason})
}

// Transition applies t to order. The transition table is checked first; side
// effects run before any field of the order changes, so a failed transition
// leaves both the order and the ledger untouched.
func (l *OrderLifecycle) Transition(order *Order, t OrderTransition) (*OrderTransitionResult, error) {
	from := order.Status
	to, ok := from.CanApply(t.Action())
	if !ok {
		return nil, &InvalidStateTransitionError{
			EntityID: order.OrderID,
			From:     string(from),
			To:       string(t.Action().Target()),
		}
	}

	result := &OrderTransitionResult{Order: order, From: from, To: to}
	now := l.now()

	switch cmd := t.(type) {
	case PackOrder:
		if cmd.PackedWeightKg < 0 || cmd.BoxFee.IsNegative() {
			return nil, fmt.Errorf("%w: packed weight and box fee must be >= 0", ErrNegativeValue)
		}
		weight := RoundWeight(cmd.PackedWeightKg)
		order.PackedWeightKg = &weight
		order.BoxFee = cmd.BoxFee.Round()
		order.BoxCutting = cmd.BoxCutting
		order.PackedAt = &now
		order.addDomainEvent(&OrderPackedEvent{
			OrderID:        order.OrderID,
			MerchantID:     order.MerchantID,
			PackedWeightKg: weight,
			BoxFee:         order.BoxFee,
			BoxCutting:     order.BoxCutting,
			PackedAt:       now,
		})

	case DispatchOrder:
		movements, err := l.ledger.ReserveAll(order.MerchantID, order.OrderID, order.StockLines())
		if err != nil {
			return nil, err
		}
		breakdown := l.fees.OrderFeeBreakdown(order, l.catalog)
		fee := breakdown.Total
		order.PackingFee = &fee
		order.FeeBreakdown = breakdown
		if code := strings.TrimSpace(cmd.TrackingCode); code != "" {
			order.TrackingCode = &code
		}
		order.DispatchedAt = &now
		result.PackingFee = fee
		result.Breakdown = breakdown
		result.Movements = movements

		event := &OrderDispatchedEvent{
			OrderID:      order.OrderID,
			MerchantID:   order.MerchantID,
			PackingFee:   fee,
			Breakdown:    breakdown,
			DispatchedAt: now,
		}
		if order.TrackingCode != nil {
			event.TrackingCode = *order.TrackingCode
		}
		order.addDomainEvent(event)

	case DeliverOrder:
		order.DeliveredAt = &now
		order.addDomainEvent(&OrderDeliveredEvent{
			OrderID:     order.OrderID,
			MerchantID:  order.MerchantID,
			DeliveredAt: now,
		})

	case CancelOrder:
		order.CancelledAt = &now
		order.CancelReason = cmd.Reason
		order.addDomainEvent(&OrderCancelledEvent{
			OrderID:     order.OrderID,
			MerchantID:  order.MerchantID,
			FromStatus:  string(from),
			Reason:      cmd.Reason,
			CancelledAt: now,
		})

	default:
		return nil, fmt.Errorf("unsupported order transition %T", t)
	}

	order.Status = to
	order.UpdatedAt = now
	return result, nil
}

// FeeBreakdown computes the current packing fee breakdown for an order
func (l *OrderLifecycle) FeeBreakdown(order *Order) *OrderFeeBreakdown {
	return l.fees.OrderFeeBreakdown(order, l.catalog)
}

// WeightKg returns the packed weight when recorded, otherwise the computed billable weight
func (l *OrderLifecycle) WeightKg(order *Order) float64 {
	if order.PackedWeightKg != nil {
		return *order.PackedWeightKg
	}
	return l.fees.ItemsWeightKg(order.Items, l.catalog)
}

func copyItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}
