package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/tracing"
)

// InboundService handles inbound and outbound request use cases
type InboundService struct {
	requests domain.InboundRequestRepository
	pickups  PickupScheduler
	uow      *unitOfWork
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewInboundService creates a new InboundService
func NewInboundService(deps Dependencies) *InboundService {
	deps = deps.withDefaults()
	return &InboundService{
		requests: deps.Inbound,
		pickups:  deps.Pickups,
		uow:      newUnitOfWork(deps),
		logger:   deps.Logger.WithComponent("inbound-service"),
		metrics:  deps.Metrics,
	}
}

// CreateRequest schedules a request, pricing it from the product snapshot.
// With SchedulePickup set the pickup workflow is started after the commit.
func (s *InboundService) CreateRequest(ctx context.Context, cmd CreateInboundCommand) (*InboundDTO, error) {
	requestType, err := domain.ParseInboundType(cmd.Type)
	if err != nil {
		return nil, mapDomainError(err)
	}

	items := ToItems(cmd.Items)
	state, err := s.uow.load(ctx, cmd.MerchantID, items)
	if err != nil {
		return nil, err
	}

	req, err := state.Inbound.Create(cmd.MerchantID, requestType, items)
	if err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.uow.commit(ctx, state, func(ctx context.Context) error {
		return s.requests.Save(ctx, req)
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save inbound request", "requestId", req.RequestID)
		return nil, fmt.Errorf("failed to save inbound request: %w", err)
	}

	s.metrics.RecordInboundTransition(string(req.Type), string(req.Status))
	if req.Fee.Float64() > 0 {
		s.metrics.RecordFeeBilled("inbound", req.Fee.Float64())
	}
	s.logger.WithContext(ctx).Info("Inbound request created",
		"requestId", req.RequestID,
		"merchantId", req.MerchantID,
		"type", req.Type,
		"totalWeightKg", req.TotalWeightKg,
		"fee", req.Fee.Float64(),
	)

	if cmd.SchedulePickup {
		s.schedulePickup(ctx, req)
	}
	return ToInboundDTO(req), nil
}

// schedulePickup starts the pickup workflow. A failure leaves the request
// pending for manual handling.
func (s *InboundService) schedulePickup(ctx context.Context, req *domain.InboundRequest) {
	logger := s.logger.WithContext(ctx)
	if s.pickups == nil {
		logger.Debug("Pickup scheduling disabled", "requestId", req.RequestID)
		return
	}

	workflowID, err := s.pickups.SchedulePickup(ctx, req.RequestID)
	if err != nil {
		logger.WithError(err).Warn("Failed to schedule pickup", "requestId", req.RequestID)
		return
	}

	// the workflow may already have moved the request on, so only the ID is written
	if err := s.attachWorkflow(ctx, req.RequestID, workflowID); err != nil {
		logger.WithError(err).Warn("Failed to record pickup workflow", "requestId", req.RequestID, "workflowId", workflowID)
		return
	}
	req.WorkflowID = workflowID
	logger.Info("Pickup scheduled", "requestId", req.RequestID, "workflowId", workflowID)
}

func (s *InboundService) attachWorkflow(ctx context.Context, requestID, workflowID string) error {
	unlock, err := s.uow.lock(ctx, InboundLockKey(requestID))
	if err != nil {
		return err
	}
	defer unlock()
	return s.requests.AttachWorkflow(ctx, requestID, workflowID)
}

// GetRequest retrieves a request by ID
func (s *InboundService) GetRequest(ctx context.Context, requestID string) (*InboundDTO, error) {
	req, err := s.find(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return ToInboundDTO(req), nil
}

// ListRequests lists requests, newest first
func (s *InboundService) ListRequests(ctx context.Context, query ListInboundQuery) (*PageDTO[InboundDTO], error) {
	filter := domain.InboundFilter{}
	if query.MerchantID != "" {
		filter.MerchantID = &query.MerchantID
	}
	if query.Status != "" {
		status := domain.InboundStatus(query.Status)
		filter.Status = &status
	}
	if query.Type != "" {
		requestType := domain.InboundType(query.Type)
		filter.Type = &requestType
	}

	pagination := domain.Pagination{Page: query.Page, PageSize: query.PageSize}.Normalize()
	requests, err := s.requests.Find(ctx, filter, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbound requests: %w", err)
	}
	total, err := s.requests.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count inbound requests: %w", err)
	}

	dtos := make([]InboundDTO, len(requests))
	for i, r := range requests {
		dtos[i] = *ToInboundDTO(r)
	}
	return pageOf(dtos, pagination, total), nil
}

// InitiatePickup moves a pending request to initiated_pickup
func (s *InboundService) InitiatePickup(ctx context.Context, requestID string) (*InboundTransitionDTO, error) {
	return s.Apply(ctx, requestID, domain.InitiateInboundPickup{})
}

// MarkPickedUp confirms the courier collected the parcel
func (s *InboundService) MarkPickedUp(ctx context.Context, requestID string) (*InboundTransitionDTO, error) {
	result, err := s.Apply(ctx, requestID, domain.ConfirmInboundPickUp{})
	if err != nil {
		return nil, err
	}
	// The request is already committed; the workflow only waits on this.
	if workflowID := result.Request.WorkflowID; s.pickups != nil && workflowID != "" {
		if err := s.pickups.SignalPickedUp(ctx, workflowID); err != nil {
			s.signalFailed(ctx, workflowID, "pickedUp", err)
		}
	}
	return result, nil
}

// CompleteRequest applies the inventory side effect of the request once.
// Completing a completed request reports AlreadyCompleted and changes nothing.
func (s *InboundService) CompleteRequest(ctx context.Context, requestID string) (*InboundTransitionDTO, error) {
	result, err := s.Apply(ctx, requestID, domain.CompleteInbound{})
	if err != nil {
		return nil, err
	}
	if workflowID := result.Request.WorkflowID; !result.AlreadyCompleted && s.pickups != nil && workflowID != "" {
		if err := s.pickups.SignalReceived(ctx, workflowID); err != nil {
			s.signalFailed(ctx, workflowID, "received", err)
		}
	}
	return result, nil
}

// CancelRequest abandons a request that has not been picked up
func (s *InboundService) CancelRequest(ctx context.Context, cmd CancelCommand) (*InboundTransitionDTO, error) {
	return s.Apply(ctx, cmd.ID, domain.CancelInbound{Reason: cmd.Reason})
}

func (s *InboundService) signalFailed(ctx context.Context, workflowID, signal string, err error) {
	s.logger.WithContext(ctx).WithError(err).Warn("Failed to signal pickup workflow",
		"workflowId", workflowID,
		"signal", signal,
	)
}

// Apply runs one lifecycle transition under the request and ledger locks and
// commits it. It does not signal the pickup workflow, so the workflow's own
// activities call it directly.
func (s *InboundService) Apply(ctx context.Context, requestID string, t domain.InboundTransition) (_ *InboundTransitionDTO, err error) {
	operation := string(t.Action())
	ctx, span := tracing.StartSpan(ctx, "inbound."+operation, attribute.String("inbound.id", requestID))
	defer func() { tracing.EndSpan(span, err) }()

	req, err := s.find(ctx, requestID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.uow.lock(ctx, InboundLockKey(requestID), LedgerLockKey(req.MerchantID))
	if err != nil {
		return nil, mapDomainError(err)
	}
	defer unlock()

	req, err = s.find(ctx, requestID)
	if err != nil {
		return nil, err
	}

	state, err := s.uow.load(ctx, req.MerchantID, req.Items)
	if err != nil {
		return nil, err
	}

	result, err := state.Inbound.Transition(req, t)
	if err != nil {
		return nil, s.uow.rejected(ctx, "inbound-"+operation, err)
	}
	if result.AlreadyCompleted {
		s.logger.WithContext(ctx).Info("Inbound request already completed", "requestId", requestID)
		return ToInboundTransitionDTO(result), nil
	}

	if err := s.uow.commit(ctx, state, func(ctx context.Context) error {
		return s.requests.Save(ctx, req)
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save inbound request", "requestId", requestID, "operation", operation)
		return nil, fmt.Errorf("failed to save inbound request: %w", err)
	}

	s.metrics.RecordInboundTransition(string(req.Type), string(result.To))
	s.uow.reportMovements(ctx, requestID, result.Movements)
	s.logger.Transition(ctx, "inbound", requestID, string(result.From), string(result.To))

	return ToInboundTransitionDTO(result), nil
}

func (s *InboundService) find(ctx context.Context, requestID string) (*domain.InboundRequest, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inbound request: %w", err)
	}
	if req == nil {
		return nil, errors.ErrNotFoundWithID("inbound request", requestID)
	}
	return req, nil
}
