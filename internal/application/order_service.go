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

// OrderService handles order use cases
type OrderService struct {
	orders  domain.OrderRepository
	uow     *unitOfWork
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewOrderService creates a new OrderService
func NewOrderService(deps Dependencies) *OrderService {
	deps = deps.withDefaults()
	return &OrderService{
		orders:  deps.Orders,
		uow:     newUnitOfWork(deps),
		logger:  deps.Logger.WithComponent("order-service"),
		metrics: deps.Metrics,
	}
}

// CreateOrder places a pending order
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	state := s.uow.newState(nil, nil)
	order, err := state.Orders.Create(cmd.MerchantID, ToItems(cmd.Items))
	if err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.uow.commit(ctx, state, func(ctx context.Context) error {
		return s.orders.Save(ctx, order)
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save order", "orderId", order.OrderID)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.metrics.RecordOrderTransition(string(order.Status))
	s.logger.WithContext(ctx).Info("Order created",
		"orderId", order.OrderID,
		"merchantId", order.MerchantID,
		"items", len(order.Items),
		"price", order.Price.Float64(),
	)
	return ToOrderDTO(order), nil
}

// CreateReturn records a returned shipment; RTO returns restore stock
func (s *OrderService) CreateReturn(ctx context.Context, cmd CreateReturnCommand) (_ *OrderTransitionDTO, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.create-return",
		attribute.String("merchant.id", cmd.MerchantID),
		attribute.String("return.type", cmd.ReturnType),
	)
	defer func() { tracing.EndSpan(span, err) }()

	items := ToItems(cmd.Items)
	unlock, err := s.uow.lock(ctx, LedgerLockKey(cmd.MerchantID))
	if err != nil {
		return nil, mapDomainError(err)
	}
	defer unlock()

	state, err := s.uow.load(ctx, cmd.MerchantID, items)
	if err != nil {
		return nil, err
	}

	order, movements, err := state.Orders.CreateReturn(cmd.MerchantID, items, domain.ReturnType(cmd.ReturnType))
	if err != nil {
		return nil, s.uow.rejected(ctx, "create-return", err)
	}

	if err := s.uow.commit(ctx, state, func(ctx context.Context) error {
		return s.orders.Save(ctx, order)
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save return", "orderId", order.OrderID)
		return nil, fmt.Errorf("failed to save return: %w", err)
	}

	s.metrics.RecordOrderTransition(string(order.Status))
	s.uow.reportMovements(ctx, order.OrderID, movements)
	s.logger.WithContext(ctx).Info("Return recorded",
		"orderId", order.OrderID,
		"merchantId", order.MerchantID,
		"returnType", order.ReturnType,
		"stockRestored", len(movements) > 0,
	)

	return &OrderTransitionDTO{
		Order:     ToOrderDTO(order),
		To:        string(order.Status),
		Movements: ToStockMovementDTOs(movements),
	}, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderDTO(order), nil
}

// ListOrders lists orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, query ListOrdersQuery) (*PageDTO[OrderDTO], error) {
	filter := domain.OrderFilter{}
	if query.MerchantID != "" {
		filter.MerchantID = &query.MerchantID
	}
	if query.Status != "" {
		status := domain.OrderStatus(query.Status)
		filter.Status = &status
	}

	pagination := domain.Pagination{Page: query.Page, PageSize: query.PageSize}.Normalize()
	orders, err := s.orders.Find(ctx, filter, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = *ToOrderDTO(o)
	}
	return pageOf(dtos, pagination, total), nil
}

// ReplaceItems swaps the items of a pending order
func (s *OrderService) ReplaceItems(ctx context.Context, cmd ReplaceItemsCommand) (*OrderDTO, error) {
	var updated *domain.Order
	_, err := s.mutate(ctx, cmd.OrderID, "replace-items", func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error) {
		if err := state.Orders.ReplaceItems(order, ToItems(cmd.Items)); err != nil {
			return nil, err
		}
		updated = order
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Order items replaced", "orderId", updated.OrderID, "items", len(updated.Items))
	return ToOrderDTO(updated), nil
}

// PackOrder records the packing details of a pending order
func (s *OrderService) PackOrder(ctx context.Context, cmd PackOrderCommand) (*OrderTransitionDTO, error) {
	return s.transition(ctx, cmd.OrderID, "pack", func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error) {
		return state.Orders.MarkPacked(order, cmd.PackedWeightKg, domain.NewMoney(cmd.BoxFee), cmd.BoxCutting)
	})
}

// DispatchOrder reserves stock for every line of a packed order and bills it
func (s *OrderService) DispatchOrder(ctx context.Context, cmd DispatchOrderCommand) (*OrderTransitionDTO, error) {
	return s.transition(ctx, cmd.OrderID, "dispatch", func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error) {
		return state.Orders.Dispatch(order, cmd.TrackingCode)
	})
}

// DeliverOrder marks a dispatched order delivered
func (s *OrderService) DeliverOrder(ctx context.Context, orderID string) (*OrderTransitionDTO, error) {
	return s.transition(ctx, orderID, "deliver", func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error) {
		return state.Orders.MarkDelivered(order)
	})
}

// CancelOrder logically deletes a pending or packed order
func (s *OrderService) CancelOrder(ctx context.Context, cmd CancelCommand) (*OrderTransitionDTO, error) {
	return s.transition(ctx, cmd.ID, "cancel", func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error) {
		return state.Orders.Cancel(order, cmd.Reason)
	})
}

// GetOrderFees estimates the packing fee of an order from current product
// data. Dispatched orders report the breakdown frozen at dispatch.
func (s *OrderService) GetOrderFees(ctx context.Context, orderID string) (*OrderFeesDTO, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	state, err := s.uow.load(ctx, order.MerchantID, order.Items)
	if err != nil {
		return nil, err
	}

	breakdown := order.FeeBreakdown
	if breakdown == nil {
		breakdown = state.Orders.FeeBreakdown(order)
	}
	if len(breakdown.MissingProducts) > 0 {
		s.logger.WithContext(ctx).Warn("Fee estimate skips unknown products",
			"orderId", order.OrderID,
			"missingProducts", breakdown.MissingProducts,
		)
	}

	return &OrderFeesDTO{
		OrderID:   order.OrderID,
		Status:    string(order.Status),
		WeightKg:  state.Orders.WeightKg(order),
		Breakdown: ToFeeBreakdownDTO(breakdown),
	}, nil
}

type orderMutation func(state *domain.AppState, order *domain.Order) (*domain.OrderTransitionResult, error)

func (s *OrderService) transition(ctx context.Context, orderID, operation string, apply orderMutation) (*OrderTransitionDTO, error) {
	result, err := s.mutate(ctx, orderID, operation, apply)
	if err != nil {
		return nil, err
	}

	order := result.Order
	s.metrics.RecordOrderTransition(string(result.To))
	if result.To == domain.OrderStatusDispatched {
		s.metrics.RecordFeeBilled("packing", result.PackingFee.Float64())
		if result.Breakdown != nil && len(result.Breakdown.MissingProducts) > 0 {
			s.logger.WithContext(ctx).Warn("Packing fee skips unknown products",
				"orderId", order.OrderID,
				"missingProducts", result.Breakdown.MissingProducts,
			)
		}
	}
	s.uow.reportMovements(ctx, order.OrderID, result.Movements)
	s.logger.Transition(ctx, "order", order.OrderID, string(result.From), string(result.To))

	return ToOrderTransitionDTO(result), nil
}

// mutate runs apply against a fresh snapshot of the order under the order
// and ledger locks, then commits the order with any inventory it moved
func (s *OrderService) mutate(ctx context.Context, orderID, operation string, apply orderMutation) (_ *domain.OrderTransitionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "order."+operation, attribute.String("order.id", orderID))
	defer func() { tracing.EndSpan(span, err) }()

	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.uow.lock(ctx, OrderLockKey(orderID), LedgerLockKey(order.MerchantID))
	if err != nil {
		return nil, mapDomainError(err)
	}
	defer unlock()

	// Re-read under the lock so the transition sees the committed state.
	order, err = s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	state, err := s.uow.load(ctx, order.MerchantID, order.Items)
	if err != nil {
		return nil, err
	}

	result, err := apply(state, order)
	if err != nil {
		return nil, s.uow.rejected(ctx, operation, err)
	}

	if err := s.uow.commit(ctx, state, func(ctx context.Context) error {
		return s.orders.Save(ctx, order)
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save order", "orderId", orderID, "operation", operation)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	return result, nil
}

func (s *OrderService) find(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, errors.ErrNotFoundWithID("order", orderID)
	}
	return order, nil
}
