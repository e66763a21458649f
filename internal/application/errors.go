package application

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

var validationErrors = []error{
	domain.ErrMerchantRequired,
	domain.ErrEmptyItems,
	domain.ErrInvalidItemQuantity,
	domain.ErrProductRequired,
	domain.ErrInvalidReturnType,
	domain.ErrInvalidInboundType,
	domain.ErrInvalidPackingType,
	domain.ErrNegativeValue,
	domain.ErrInvalidQuantity,
}

// mapDomainError converts rules-core failures to API errors. Stock failures
// carry one violation per failing product.
func mapDomainError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	if stderrors.Is(err, domain.ErrInsufficientStock) {
		violations := stockViolations(err)
		return errors.ErrInsufficientStock(
			fmt.Sprintf("insufficient stock for %d product(s)", len(violations)),
		).WithViolations(violations).Wrap(err)
	}

	var transition *domain.InvalidStateTransitionError
	if stderrors.As(err, &transition) {
		return errors.ErrInvalidStateTransition("invalid state transition").
			WithDetails(map[string]string{
				"entityId": transition.EntityID,
				"from":     transition.From,
				"to":       transition.To,
			}).Wrap(err)
	}

	var unknown *domain.UnknownProductError
	if stderrors.As(err, &unknown) {
		return errors.ErrNotFoundWithID("product", unknown.ProductID).Wrap(err)
	}

	if stderrors.Is(err, domain.ErrItemsLocked) {
		return errors.ErrConflict(err.Error()).Wrap(err)
	}
	if stderrors.Is(err, ErrLockNotAcquired) {
		return errors.ErrConflict("resource is busy with a concurrent operation, retry later").Wrap(err)
	}

	for _, target := range validationErrors {
		if stderrors.Is(err, target) {
			return errors.ErrValidation(err.Error()).Wrap(err)
		}
	}

	return errors.ErrInternal("").Wrap(err)
}

func stockViolations(err error) []errors.Violation {
	var violations []errors.Violation
	for _, e := range multierr.Errors(err) {
		var stock *domain.InsufficientStockError
		if stderrors.As(e, &stock) {
			violations = append(violations, errors.Violation{
				ProductID:  stock.ProductID,
				MerchantID: stock.MerchantID,
				Requested:  stock.Requested,
				Available:  stock.Available,
				Message:    stock.Error(),
			})
		}
	}
	return violations
}
