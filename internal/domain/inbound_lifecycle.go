package domain

import (
	"fmt"
	"time"
)

// InboundTransition is an inbound state machine input with its payload
type InboundTransition interface {
	Action() InboundAction
}

// InitiateInboundPickup schedules the courier pickup
type InitiateInboundPickup struct{}

// ConfirmInboundPickUp records that the goods left the merchant
type ConfirmInboundPickUp struct{}

// CompleteInbound applies the inventory side effect of the request
type CompleteInbound struct{}

// CancelInbound abandons a request before pickup
type CancelInbound struct {
	Reason string
}

func (InitiateInboundPickup) Action() InboundAction { return InboundActionInitiatePickup }
func (ConfirmInboundPickUp) Action() InboundAction  { return InboundActionPickUp }
func (CompleteInbound) Action() InboundAction       { return InboundActionComplete }
func (CancelInbound) Action() InboundAction         { return InboundActionCancel }

// InboundTransitionResult is the outcome of a successful inbound transition
type InboundTransitionResult struct {
	Request          *InboundRequest
	From             InboundStatus
	To               InboundStatus
	Movements        []LedgerResult
	AlreadyCompleted bool
}

// LowStock returns the movements that raised the low-stock signal
func (r *InboundTransitionResult) LowStock() []LedgerResult {
	return LowStockResults(r.Movements)
}

// InboundOptions tunes the inbound state machine
type InboundOptions struct {
	// AllowDirectCompletion accepts complete from pending and initiated_pickup
	AllowDirectCompletion bool
}

// InboundLifecycle governs inbound and outbound requests
type InboundLifecycle struct {
	fees    *FeeCalculator
	ledger  *InventoryLedger
	catalog ProductLookup
	opts    InboundOptions
	now     func() time.Time
}

// NewInboundLifecycle creates an inbound lifecycle
func NewInboundLifecycle(fees *FeeCalculator, ledger *InventoryLedger, catalog ProductLookup, opts InboundOptions) *InboundLifecycle {
	if fees == nil {
		fees = NewFeeCalculator(nil)
	}
	return &InboundLifecycle{
		fees:    fees,
		ledger:  ledger,
		catalog: catalog,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create schedules a new request, computing its billable weight and inbound fee
func (l *InboundLifecycle) Create(merchantID string, requestType InboundType, items []OrderItem) (*InboundRequest, error) {
	if merchantID == "" {
		return nil, ErrMerchantRequired
	}
	if !requestType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInboundType, requestType)
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	total := l.fees.ItemsWeightKg(items, l.catalog)
	var fee Money
	if requestType == InboundTypeInbound {
		fee = l.fees.InboundFee(total, 0)
	}

	now := l.now()
	req := &InboundRequest{
		RequestID:     newInboundRequestID(),
		MerchantID:    merchantID,
		Type:          requestType,
		Items:         copyItems(items),
		Status:        InboundStatusPending,
		TotalWeightKg: total,
		Fee:           fee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	req.addDomainEvent(&InboundCreatedEvent{
		RequestID:     req.RequestID,
		MerchantID:    merchantID,
		Type:          requestType,
		Items:         req.Items,
		TotalWeightKg: total,
		Fee:           fee,
		CreatedAt:     now,
	})

	return req, nil
}

// InitiatePickup moves a pending request to initiated_pickup
func (l *InboundLifecycle) InitiatePickup(req *InboundRequest) (*InboundTransitionResult, error) {
	return l.Transition(req, InitiateInboundPickup{})
}

// MarkPickedUp moves an initiated request to picked_up
func (l *InboundLifecycle) MarkPickedUp(req *InboundRequest) (*InboundTransitionResult, error) {
	return l.Transition(req, ConfirmInboundPickUp{})
}

// Complete applies the inventory side effect exactly once
func (l *InboundLifecycle) Complete(req *InboundRequest) (*InboundTransitionResult, error) {
	return l.Transition(req, CompleteInbound{})
}

// Cancel abandons a request that has not been picked up
func (l *InboundLifecycle) Cancel(req *InboundRequest, reason string) (*InboundTransitionResult, error) {
	return l.Transition(req, CancelInbound{Reason: reason})
}

// Transition applies t to req. Completing a completed request is a no-op
// reported through AlreadyCompleted.
func (l *InboundLifecycle) Transition(req *InboundRequest, t InboundTransition) (*InboundTransitionResult, error) {
	from := req.Status
	action := t.Action()

	if action == InboundActionComplete && from == InboundStatusCompleted {
		return &InboundTransitionResult{Request: req, From: from, To: from, AlreadyCompleted: true}, nil
	}

	to, ok := from.CanApply(action)
	if !ok && action == InboundActionComplete && l.opts.AllowDirectCompletion && directCompletion[from] {
		to, ok = InboundStatusCompleted, true
	}
	if !ok {
		return nil, &InvalidStateTransitionError{
			EntityID: req.RequestID,
			From:     string(from),
			To:       string(action.Target()),
		}
	}

	result := &InboundTransitionResult{Request: req, From: from, To: to}
	now := l.now()

	switch cmd := t.(type) {
	case InitiateInboundPickup:
		req.PickupInitiatedAt = &now
		req.addDomainEvent(l.statusChanged(req, EventTypeInboundPickupInitiated, from, to, now))

	case ConfirmInboundPickUp:
		req.PickedUpAt = &now
		req.addDomainEvent(l.statusChanged(req, EventTypeInboundPickedUp, from, to, now))

	case CompleteInbound:
		var (
			movements []LedgerResult
			err       error
		)
		if req.Type == InboundTypeOutbound {
			movements, err = l.ledger.ReserveAll(req.MerchantID, req.RequestID, req.StockLines())
		} else {
			movements, err = l.ledger.RestoreAll(req.MerchantID, req.RequestID, req.StockLines())
		}
		if err != nil {
			return nil, err
		}
		req.CompletedAt = &now
		result.Movements = movements
		req.addDomainEvent(&InboundCompletedEvent{
			RequestID:   req.RequestID,
			MerchantID:  req.MerchantID,
			Type:        req.Type,
			Items:       req.Items,
			Fee:         req.Fee,
			CompletedAt: now,
		})

	case CancelInbound:
		req.CancelledAt = &now
		req.CancelReason = cmd.Reason
		req.addDomainEvent(l.statusChanged(req, EventTypeInboundCancelled, from, to, now))

	default:
		return nil, fmt.Errorf("unsupported inbound transition %T", t)
	}

	req.Status = to
	req.UpdatedAt = now
	return result, nil
}

func (l *InboundLifecycle) statusChanged(req *InboundRequest, eventType string, from, to InboundStatus, at time.Time) *InboundStatusChangedEvent {
	return &InboundStatusChangedEvent{
		RequestID:  req.RequestID,
		MerchantID: req.MerchantID,
		Type:       req.Type,
		From:       from,
		To:         to,
		ChangedAt:  at,
		eventType:  eventType,
	}
}
