package application

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

func requireAppError(t *testing.T, err error, code string) *errors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func createPackedOrder(t *testing.T, svc *OrderService, items ...ItemInput) string {
	t.Helper()
	ctx := context.Background()
	order, err := svc.CreateOrder(ctx, CreateOrderCommand{MerchantID: "m1", Items: items})
	require.NoError(t, err)
	_, err = svc.PackOrder(ctx, PackOrderCommand{OrderID: order.OrderID, PackedWeightKg: 0.8})
	require.NoError(t, err)
	return order.OrderID
}

func TestOrderService_CreateOrder(t *testing.T) {
	env := newTestEnv(nil)
	svc := NewOrderService(env.deps)

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		MerchantID: "m1",
		Items:      []ItemInput{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, 21.0, order.Price)
	assert.Equal(t, testNow, order.CreatedAt)
	assert.Equal(t, []string{domain.EventTypeOrderCreated}, env.orders.eventTypes())
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	env := newTestEnv(nil)
	svc := NewOrderService(env.deps)

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		MerchantID: "m1",
		Items:      []ItemInput{{ProductID: "p1", Quantity: 0}},
	})
	requireAppError(t, err, errors.CodeValidationError)
	assert.Empty(t, env.orders.orders)
}

func TestOrderService_DispatchReservesStockAndBills(t *testing.T) {
	env := newTestEnv(
		[]*domain.Product{testProduct("p1", 0.4, domain.PackingTypeNormal)},
		testStock("p1", 5, 3),
	)
	svc := NewOrderService(env.deps)
	orderID := createPackedOrder(t, svc, ItemInput{ProductID: "p1", Quantity: 2})

	result, err := svc.DispatchOrder(context.Background(), DispatchOrderCommand{OrderID: orderID, TrackingCode: "TRK-1"})
	require.NoError(t, err)

	assert.Equal(t, "packed", result.From)
	assert.Equal(t, "dispatched", result.To)
	require.NotNil(t, result.Order.PackingFee)
	// 2 x 7 per item plus the tracking fee
	assert.Equal(t, 17.0, *result.Order.PackingFee)
	assert.Equal(t, "TRK-1", *result.Order.TrackingCode)
	require.Len(t, result.Movements, 1)
	assert.Equal(t, 3, result.Movements[0].NewQuantity)
	assert.True(t, result.Movements[0].LowStock)

	assert.Equal(t, 3, env.inventory.quantity("p1", "m1"))
	assert.Equal(t, []string{
		domain.EventTypeOrderCreated,
		domain.EventTypeOrderPacked,
		domain.EventTypeOrderDispatched,
	}, env.orders.eventTypes())

	var inventoryEvents []string
	for _, e := range env.inventory.events {
		inventoryEvents = append(inventoryEvents, e.EventType())
	}
	assert.Equal(t, []string{domain.EventTypeStockReserved, domain.EventTypeLowStockAlert}, inventoryEvents)

	stored, err := svc.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "dispatched", stored.Status)
}

func TestOrderService_DispatchInsufficientStockIsAtomic(t *testing.T) {
	env := newTestEnv(
		[]*domain.Product{
			testProduct("p1", 0.4, domain.PackingTypeNormal),
			testProduct("p2", 0.4, domain.PackingTypeNormal),
			testProduct("p3", 0.4, domain.PackingTypeNormal),
		},
		testStock("p1", 1, 0),
		testStock("p2", 10, 0),
	)
	svc := NewOrderService(env.deps)
	orderID := createPackedOrder(t, svc,
		ItemInput{ProductID: "p1", Quantity: 2},
		ItemInput{ProductID: "p2", Quantity: 2},
		ItemInput{ProductID: "p3", Quantity: 1},
	)

	_, err := svc.DispatchOrder(context.Background(), DispatchOrderCommand{OrderID: orderID})
	appErr := requireAppError(t, err, errors.CodeInsufficientStock)
	require.Len(t, appErr.Violations, 2)
	assert.ElementsMatch(t, []string{"p1", "p3"}, []string{appErr.Violations[0].ProductID, appErr.Violations[1].ProductID})

	assert.Equal(t, 1, env.inventory.quantity("p1", "m1"))
	assert.Equal(t, 10, env.inventory.quantity("p2", "m1"))
	assert.Empty(t, env.inventory.events)

	stored, err := svc.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "packed", stored.Status)
	assert.Nil(t, stored.PackingFee)
}

func TestOrderService_InvalidTransitions(t *testing.T) {
	env := newTestEnv(nil)
	svc := NewOrderService(env.deps)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderCommand{MerchantID: "m1", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}})
	require.NoError(t, err)

	_, err = svc.DispatchOrder(ctx, DispatchOrderCommand{OrderID: order.OrderID})
	appErr := requireAppError(t, err, errors.CodeInvalidStateTransition)
	assert.Equal(t, "pending", appErr.Details["from"])
	assert.Equal(t, "dispatched", appErr.Details["to"])

	_, err = svc.DeliverOrder(ctx, order.OrderID)
	requireAppError(t, err, errors.CodeInvalidStateTransition)

	_, err = svc.DeliverOrder(ctx, "ORD-missing")
	requireAppError(t, err, errors.CodeNotFound)
}

func TestOrderService_CancelAndReplaceItems(t *testing.T) {
	env := newTestEnv(nil)
	svc := NewOrderService(env.deps)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderCommand{MerchantID: "m1", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}})
	require.NoError(t, err)

	updated, err := svc.ReplaceItems(ctx, ReplaceItemsCommand{
		OrderID: order.OrderID,
		Items:   []ItemInput{{ProductID: "p1", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 21.0, updated.Price)

	result, err := svc.CancelOrder(ctx, CancelCommand{ID: order.OrderID, Reason: "customer request"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.To)
	assert.Equal(t, "customer request", result.Order.CancelReason)

	_, err = svc.ReplaceItems(ctx, ReplaceItemsCommand{
		OrderID: order.OrderID,
		Items:   []ItemInput{{ProductID: "p1", Quantity: 1}},
	})
	requireAppError(t, err, errors.CodeConflict)

	_, err = svc.CancelOrder(ctx, CancelCommand{ID: order.OrderID})
	requireAppError(t, err, errors.CodeInvalidStateTransition)
}

func TestOrderService_CreateReturn(t *testing.T) {
	tests := []struct {
		name       string
		returnType string
		expected   int
		movements  int
	}{
		{name: "rto restores stock", returnType: "RTO", expected: 7, movements: 1},
		{name: "damaged goods stay out of stock", returnType: "Damaged", expected: 5, movements: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(
				[]*domain.Product{testProduct("p1", 0.4, domain.PackingTypeNormal)},
				testStock("p1", 5, 0),
			)
			svc := NewOrderService(env.deps)

			result, err := svc.CreateReturn(context.Background(), CreateReturnCommand{
				MerchantID: "m1",
				ReturnType: tt.returnType,
				Items:      []ItemInput{{ProductID: "p1", Quantity: 2}},
			})
			require.NoError(t, err)
			assert.Equal(t, "return", result.Order.Status)
			assert.Equal(t, tt.returnType, result.Order.ReturnType)
			assert.Len(t, result.Movements, tt.movements)
			assert.Equal(t, tt.expected, env.inventory.quantity("p1", "m1"))
		})
	}
}

func TestOrderService_SaveFailureReleasesLocks(t *testing.T) {
	env := newTestEnv(
		[]*domain.Product{testProduct("p1", 0.4, domain.PackingTypeNormal)},
		testStock("p1", 5, 0),
	)
	svc := NewOrderService(env.deps)
	orderID := createPackedOrder(t, svc, ItemInput{ProductID: "p1", Quantity: 1})

	env.orders.saveFn = func(context.Context, *domain.Order) error {
		return stderrors.New("write conflict")
	}
	_, err := svc.DispatchOrder(context.Background(), DispatchOrderCommand{OrderID: orderID})
	require.ErrorContains(t, err, "write conflict")

	env.orders.saveFn = nil
	result, err := svc.DispatchOrder(context.Background(), DispatchOrderCommand{OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, "dispatched", result.To)
	assert.Equal(t, 4, env.inventory.quantity("p1", "m1"))
}

func TestOrderService_LockContention(t *testing.T) {
	env := newTestEnv(nil)
	locker := NewKeyedLocker()
	env.deps.Locker = locker
	env.deps.Options.LockWait = 10 * time.Millisecond
	svc := NewOrderService(env.deps)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderCommand{MerchantID: "m1", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}})
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, LedgerLockKey("m1"))
	require.NoError(t, err)
	defer unlock()

	_, err = svc.PackOrder(ctx, PackOrderCommand{OrderID: order.OrderID})
	requireAppError(t, err, errors.CodeConflict)
}

func TestOrderService_GetOrderFees(t *testing.T) {
	env := newTestEnv([]*domain.Product{testProduct("p1", 1.2, domain.PackingTypeFragile)})
	svc := NewOrderService(env.deps)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderCommand{
		MerchantID: "m1",
		Items:      []ItemInput{{ProductID: "p1", Quantity: 1}, {ProductID: "gone", Quantity: 1}},
	})
	require.NoError(t, err)

	fees, err := svc.GetOrderFees(ctx, order.OrderID)
	require.NoError(t, err)
	// fragile 11 + 2 extra steps of 4, plus tracking
	assert.Equal(t, 19.0, fees.Breakdown.ItemsTotal)
	assert.Equal(t, 22.0, fees.Breakdown.Total)
	assert.Equal(t, []string{"gone"}, fees.Breakdown.MissingProducts)
	assert.Equal(t, 1.2, fees.WeightKg)
}

func TestOrderService_ListOrders(t *testing.T) {
	env := newTestEnv(nil)
	svc := NewOrderService(env.deps)
	ctx := context.Background()

	for _, merchant := range []string{"m1", "m1", "m2"} {
		_, err := svc.CreateOrder(ctx, CreateOrderCommand{MerchantID: merchant, Items: []ItemInput{{ProductID: "p1", Quantity: 1}}})
		require.NoError(t, err)
	}

	page, err := svc.ListOrders(ctx, ListOrdersQuery{ListQuery: ListQuery{MerchantID: "m1"}, Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(20), page.PageSize)
}
