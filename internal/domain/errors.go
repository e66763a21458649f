package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnknownProduct         = errors.New("unknown product")

	ErrMerchantRequired    = errors.New("merchant ID is required")
	ErrEmptyItems          = errors.New("at least one item is required")
	ErrInvalidItemQuantity = errors.New("item quantity must be greater than zero")
	ErrProductRequired     = errors.New("item product ID is required")
	ErrInvalidReturnType   = errors.New("invalid return type")
	ErrInvalidInboundType  = errors.New("invalid inbound request type")
	ErrInvalidPackingType  = errors.New("invalid packing type")
	ErrNegativeValue       = errors.New("value cannot be negative")
	ErrItemsLocked         = errors.New("order items cannot change after the order leaves pending")
)

// InsufficientStockError is returned when a decrement would take stock below zero
type InsufficientStockError struct {
	ProductID  string `json:"productId"`
	MerchantID string `json:"merchantId"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (merchant %s): requested %d, available %d",
		e.ProductID, e.MerchantID, e.Requested, e.Available)
}

// Is matches ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidQuantityError is returned for negative quantities
type InvalidQuantityError struct {
	Value int `json:"value"`
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d: must be >= 0", e.Value)
}

// Is matches ErrInvalidQuantity
func (e *InvalidQuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// InvalidStateTransitionError is returned when the current status does not permit a transition
type InvalidStateTransitionError struct {
	EntityID string `json:"entityId"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s", e.EntityID, e.From, e.To)
}

// Is matches ErrInvalidStateTransition
func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// UnknownProductError reports a product missing from the catalog.
// Fee and weight sums treat it as a zero contribution rather than a failure.
type UnknownProductError struct {
	ProductID string `json:"productId"`
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %s", e.ProductID)
}

// Is matches ErrUnknownProduct
func (e *UnknownProductError) Is(target error) bool {
	return target == ErrUnknownProduct
}
