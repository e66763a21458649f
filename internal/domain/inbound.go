package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboundType distinguishes stock-in from stock-out requests
type InboundType string

const (
	InboundTypeInbound  InboundType = "inbound"
	InboundTypeOutbound InboundType = "outbound"
)

// IsValid checks if the request type is valid
func (t InboundType) IsValid() bool {
	return t == InboundTypeInbound || t == InboundTypeOutbound
}

// ParseInboundType parses a request type, case-insensitively
func ParseInboundType(s string) (InboundType, error) {
	t := InboundType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidInboundType, s)
	}
	return t, nil
}

// InboundStatus represents the lifecycle status of an inbound or outbound request
type InboundStatus string

const (
	InboundStatusPending         InboundStatus = "pending"
	InboundStatusInitiatedPickup InboundStatus = "initiated_pickup"
	InboundStatusPickedUp        InboundStatus = "picked_up"
	InboundStatusCompleted       InboundStatus = "completed"
	InboundStatusCancelled       InboundStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s InboundStatus) IsValid() bool {
	switch s {
	case InboundStatusPending, InboundStatusInitiatedPickup, InboundStatusPickedUp,
		InboundStatusCompleted, InboundStatusCancelled:
		return true
	default:
		return false
	}
}

// InboundAction is an input to the inbound state machine
type InboundAction string

const (
	InboundActionInitiatePickup InboundAction = "initiate_pickup"
	InboundActionPickUp         InboundAction = "pick_up"
	InboundActionComplete       InboundAction = "complete"
	InboundActionCancel         InboundAction = "cancel"
)

// Target returns the status an action moves a request to
func (a InboundAction) Target() InboundStatus {
	switch a {
	case InboundActionInitiatePickup:
		return InboundStatusInitiatedPickup
	case InboundActionPickUp:
		return InboundStatusPickedUp
	case InboundActionComplete:
		return InboundStatusCompleted
	case InboundActionCancel:
		return InboundStatusCancelled
	default:
		return ""
	}
}

var inboundTransitions = map[InboundStatus]map[InboundAction]InboundStatus{
	InboundStatusPending: {
		InboundActionInitiatePickup: InboundStatusInitiatedPickup,
		InboundActionCancel:         InboundStatusCancelled,
	},
	InboundStatusInitiatedPickup: {
		InboundActionPickUp: InboundStatusPickedUp,
		InboundActionCancel: InboundStatusCancelled,
	},
	InboundStatusPickedUp: {
		InboundActionComplete: InboundStatusCompleted,
	},
}

// directCompletion lists the extra states complete is accepted from when enabled
var directCompletion = map[InboundStatus]bool{
	InboundStatusPending:         true,
	InboundStatusInitiatedPickup: true,
}

// CanApply reports whether the action is allowed from s, returning the next status
func (s InboundStatus) CanApply(action InboundAction) (InboundStatus, bool) {
	next, ok := inboundTransitions[s][action]
	return next, ok
}

// InboundRequest is a stock movement request scheduled by a merchant
type InboundRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RequestID         string             `bson:"requestId" json:"requestId"`
	MerchantID        string             `bson:"merchantId" json:"merchantId"`
	Type              InboundType        `bson:"type" json:"type"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Status            InboundStatus      `bson:"status" json:"status"`
	TotalWeightKg     float64            `bson:"totalWeightKg" json:"totalWeightKg"`
	Fee               Money              `bson:"fee" json:"fee"`
	WorkflowID        string             `bson:"workflowId,omitempty" json:"workflowId,omitempty"`
	CancelReason      string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	PickupInitiatedAt *time.Time         `bson:"pickupInitiatedAt,omitempty" json:"pickupInitiatedAt,omitempty"`
	PickedUpAt        *time.Time         `bson:"pickedUpAt,omitempty" json:"pickedUpAt,omitempty"`
	CompletedAt       *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt       *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

func newInboundRequestID() string {
	return fmt.Sprintf("INB-%s", uuid.New().String()[:8])
}

// IsCompleted reports whether the inventory side effect has been applied
func (r *InboundRequest) IsCompleted() bool {
	return r.Status == InboundStatusCompleted
}

// StockLines returns the items as ledger lines
func (r *InboundRequest) StockLines() []StockLine {
	return StockLinesFromItems(r.Items)
}

func (r *InboundRequest) addDomainEvent(event DomainEvent) {
	r.domainEvents = append(r.domainEvents, event)
}

// DomainEvents returns the pending domain events
func (r *InboundRequest) DomainEvents() []DomainEvent {
	return r.domainEvents
}

// ClearDomainEvents clears pending domain events
func (r *InboundRequest) ClearDomainEvents() {
	r.domainEvents = nil
}
