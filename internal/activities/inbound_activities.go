package activities

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/internal/workflows"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	pkgtemporal "github.com/wms-platform/fulfillment-service/pkg/temporal"
)

// InboundService is the application surface the inbound activities drive
type InboundService interface {
	GetRequest(ctx context.Context, requestID string) (*application.InboundDTO, error)
	Apply(ctx context.Context, requestID string, t domain.InboundTransition) (*application.InboundTransitionDTO, error)
}

// InboundActivities contains activities related to inbound requests. Each
// one is idempotent: it no-ops when the request already moved past its target.
type InboundActivities struct {
	service InboundService
}

// NewInboundActivities creates a new InboundActivities instance
func NewInboundActivities(service InboundService) *InboundActivities {
	return &InboundActivities{service: service}
}

// InitiateInboundPickup moves a pending request to initiated_pickup
func (a *InboundActivities) InitiateInboundPickup(ctx context.Context, requestID string) (*workflows.InboundActivityResult, error) {
	return a.apply(ctx, requestID, domain.InitiateInboundPickup{}, domain.InboundStatusPending)
}

// CancelInbound cancels a request the courier has not collected
func (a *InboundActivities) CancelInbound(ctx context.Context, input workflows.CancelInboundInput) (*workflows.InboundActivityResult, error) {
	return a.apply(ctx, input.RequestID, domain.CancelInbound{Reason: input.Reason},
		domain.InboundStatusPending, domain.InboundStatusInitiatedPickup)
}

// CompleteInbound applies the inventory side effect of a picked-up request
func (a *InboundActivities) CompleteInbound(ctx context.Context, requestID string) (*workflows.InboundActivityResult, error) {
	return a.apply(ctx, requestID, domain.CompleteInbound{}, domain.InboundStatusPickedUp)
}

// apply runs t when the request is in one of from, and reports the current
// status otherwise
func (a *InboundActivities) apply(ctx context.Context, requestID string, t domain.InboundTransition, from ...domain.InboundStatus) (*workflows.InboundActivityResult, error) {
	logger := activity.GetLogger(ctx)

	current, err := a.service.GetRequest(ctx, requestID)
	if err != nil {
		return nil, toActivityError(err)
	}

	if !statusIn(current.Status, from) {
		logger.Info("Inbound activity skipped", "requestId", requestID, "action", string(t.Action()), "status", current.Status)
		return &workflows.InboundActivityResult{RequestID: requestID, Status: current.Status}, nil
	}

	result, err := a.service.Apply(ctx, requestID, t)
	if err != nil {
		return nil, toActivityError(err)
	}

	logger.Info("Inbound activity applied", "requestId", requestID, "from", result.From, "to", result.To)
	return &workflows.InboundActivityResult{
		RequestID: requestID,
		Status:    result.To,
		Applied:   !result.AlreadyCompleted,
	}, nil
}

func statusIn(status string, set []domain.InboundStatus) bool {
	for _, s := range set {
		if status == string(s) {
			return true
		}
	}
	return false
}

// toActivityError marks rule violations non-retryable; infrastructure errors
// keep the activity retry policy
func toActivityError(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err
	}
	switch appErr.Code {
	case errors.CodeNotFound, errors.CodeValidationError, errors.CodeInvalidStateTransition, errors.CodeInsufficientStock:
		return temporal.NewNonRetryableApplicationError(appErr.Message, pkgtemporal.NonRetryableErrorType, err)
	default:
		return err
	}
}
