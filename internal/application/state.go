package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// Dependencies are the collaborators shared by the application services
type Dependencies struct {
	Products  domain.ProductRepository
	Inventory domain.InventoryRepository
	Orders    domain.OrderRepository
	Inbound   domain.InboundRequestRepository

	Tx     TxManager
	Locker Locker
	// Pickups is optional; inbound requests are not scheduled when nil
	Pickups PickupScheduler

	Schedule       *domain.FeeSchedule
	InboundOptions domain.InboundOptions

	Logger  *logging.Logger
	Metrics *metrics.Metrics
	Options Options

	// Clock overrides the time source of the rules core, for tests
	Clock func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Tx == nil {
		d.Tx = NoopTxManager()
	}
	if d.Locker == nil {
		d.Locker = NewKeyedLocker()
	}
	if d.Schedule == nil {
		d.Schedule = domain.DefaultFeeSchedule()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(metrics.DefaultConfig("fulfillment-service"))
	}
	if d.Options.LockWait <= 0 {
		d.Options.LockWait = DefaultOptions().LockWait
	}
	return d
}

// unitOfWork loads snapshots into an AppState, serializes access to them and
// commits the result. One is shared by all services.
type unitOfWork struct {
	deps Dependencies
}

func newUnitOfWork(deps Dependencies) *unitOfWork {
	return &unitOfWork{deps: deps}
}

// lock takes every key within the configured wait
func (u *unitOfWork) lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, u.deps.Options.LockWait)
	defer cancel()

	unlock, err := u.deps.Locker.Lock(lockCtx, keys...)
	u.deps.Metrics.ObserveLockWait(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, ErrLockNotAcquired) {
			err = fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
		}
		u.deps.Logger.WithContext(ctx).WithError(err).Warn("Lock not acquired", "keys", keys)
		return nil, err
	}
	return unlock, nil
}

// load builds the AppState for the merchant's view of the given items.
// Products owned by another merchant are left out of the snapshot.
func (u *unitOfWork) load(ctx context.Context, merchantID string, items []domain.OrderItem) (*domain.AppState, error) {
	productIDs := uniqueProductIDs(items)

	var (
		products []*domain.Product
		records  []*domain.InventoryRecord
		err      error
	)
	if len(productIDs) > 0 {
		products, err = u.deps.Products.FindByIDs(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		records, err = u.deps.Inventory.FindByProducts(ctx, merchantID, productIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load inventory: %w", err)
		}
	}

	owned := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if p.MerchantID == merchantID {
			owned = append(owned, p)
		}
	}

	return u.newState(owned, records), nil
}

func (u *unitOfWork) newState(products []*domain.Product, records []*domain.InventoryRecord) *domain.AppState {
	state := domain.NewAppState(domain.AppStateConfig{
		Schedule: u.deps.Schedule,
		Inbound:  u.deps.InboundOptions,
	}, products, records)
	if u.deps.Clock != nil {
		state.WithClock(u.deps.Clock)
	}
	return state
}

// commit saves the aggregate and every inventory record the state changed
// in one transaction
func (u *unitOfWork) commit(ctx context.Context, state *domain.AppState, save func(ctx context.Context) error) error {
	return u.deps.Tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if save != nil {
			if err := save(txCtx); err != nil {
				return err
			}
		}
		if changed := state.ChangedInventory(); len(changed) > 0 {
			if err := u.deps.Inventory.SaveAll(txCtx, changed); err != nil {
				return fmt.Errorf("failed to save inventory: %w", err)
			}
		}
		return nil
	})
}

// reportMovements records the low-stock signals raised by ledger movements
func (u *unitOfWork) reportMovements(ctx context.Context, reference string, movements []domain.LedgerResult) {
	low := domain.LowStockResults(movements)
	if len(low) == 0 {
		return
	}
	u.deps.Metrics.RecordLowStockAlerts(len(low))
	logger := u.deps.Logger.WithContext(ctx)
	for _, r := range low {
		logger.Warn("Low stock",
			"reference", reference,
			"productId", r.ProductID,
			"merchantId", r.MerchantID,
			"quantity", r.NewQuantity,
			"minStockLevel", r.MinStockLevel,
		)
	}
}

// rejected maps a rules-core failure, counting stock rejections
func (u *unitOfWork) rejected(ctx context.Context, operation string, err error) error {
	if errors.Is(err, domain.ErrInsufficientStock) {
		u.deps.Metrics.RecordStockRejection(operation)
		u.deps.Logger.WithContext(ctx).WithError(err).Warn("Stock rejected", "operation", operation)
	}
	return mapDomainError(err)
}

func uniqueProductIDs(items []domain.OrderItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
