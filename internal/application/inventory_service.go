package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/tracing"
)

// InventoryService handles stock record use cases
type InventoryService struct {
	products  domain.ProductRepository
	inventory domain.InventoryRepository
	uow       *unitOfWork
	logger    *logging.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(deps Dependencies) *InventoryService {
	deps = deps.withDefaults()
	return &InventoryService{
		products:  deps.Products,
		inventory: deps.Inventory,
		uow:       newUnitOfWork(deps),
		logger:    deps.Logger.WithComponent("inventory-service"),
	}
}

// ListInventory lists a merchant's stock records
func (s *InventoryService) ListInventory(ctx context.Context, query ListQuery) (*PageDTO[InventoryDTO], error) {
	if query.MerchantID == "" {
		return nil, errors.ErrValidation("merchantId is required")
	}

	pagination := domain.Pagination{Page: query.Page, PageSize: query.PageSize}.Normalize()
	records, err := s.inventory.FindByMerchant(ctx, query.MerchantID, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	total, err := s.inventory.CountByMerchant(ctx, query.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count inventory: %w", err)
	}

	dtos := make([]InventoryDTO, len(records))
	for i, r := range records {
		dtos[i] = *ToInventoryDTO(r)
	}
	return pageOf(dtos, pagination, total), nil
}

// GetInventory retrieves one stock record
func (s *InventoryService) GetInventory(ctx context.Context, merchantID, productID string) (*InventoryDTO, error) {
	record, err := s.inventory.FindByKey(ctx, productID, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	if record == nil {
		return nil, errors.ErrNotFound("inventory record").WithDetails(map[string]string{
			"productId":  productID,
			"merchantId": merchantID,
		})
	}
	return ToInventoryDTO(record), nil
}

// ListLowStock lists the merchant's records at or below their minimum level
func (s *InventoryService) ListLowStock(ctx context.Context, merchantID string) ([]InventoryDTO, error) {
	records, err := s.inventory.FindLowStock(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	dtos := make([]InventoryDTO, len(records))
	for i, r := range records {
		dtos[i] = *ToInventoryDTO(r)
	}
	return dtos, nil
}

// AdjustInventory sets the on-hand quantity after a stock count
func (s *InventoryService) AdjustInventory(ctx context.Context, cmd AdjustInventoryCommand) (*StockMovementDTO, error) {
	if cmd.Quantity == nil {
		return nil, errors.ErrValidation("quantity is required")
	}

	var movement domain.LedgerResult
	err := s.withLedger(ctx, cmd.MerchantID, cmd.ProductID, "adjust", func(state *domain.AppState) error {
		var err error
		movement, err = state.Ledger.Adjust(cmd.ProductID, cmd.MerchantID, *cmd.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.uow.reportMovements(ctx, "adjust", []domain.LedgerResult{movement})
	s.logger.Audit(ctx, "adjust", "inventory", cmd.MerchantID+"/"+cmd.ProductID, map[string]any{
		"previousQuantity": movement.PreviousQuantity,
		"quantity":         movement.NewQuantity,
	})
	return &ToStockMovementDTOs([]domain.LedgerResult{movement})[0], nil
}

// SetThresholds updates the low/over stock levels of a record
func (s *InventoryService) SetThresholds(ctx context.Context, cmd SetThresholdsCommand) (*InventoryDTO, error) {
	if cmd.MaxStockLevel > 0 && cmd.MaxStockLevel < cmd.MinStockLevel {
		return nil, errors.ErrValidation("maxStockLevel must not be below minStockLevel")
	}

	var record *domain.InventoryRecord
	err := s.withLedger(ctx, cmd.MerchantID, cmd.ProductID, "set-thresholds", func(state *domain.AppState) error {
		var err error
		record, err = state.Ledger.SetThresholds(cmd.ProductID, cmd.MerchantID, cmd.MinStockLevel, cmd.MaxStockLevel)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("Stock thresholds set",
		"productId", cmd.ProductID,
		"merchantId", cmd.MerchantID,
		"minStockLevel", cmd.MinStockLevel,
		"maxStockLevel", cmd.MaxStockLevel,
	)
	return ToInventoryDTO(record), nil
}

// withLedger applies fn to the merchant's ledger under its lock and commits
// the changed records. The product must belong to the merchant.
func (s *InventoryService) withLedger(ctx context.Context, merchantID, productID, operation string, fn func(*domain.AppState) error) (err error) {
	ctx, span := tracing.StartSpan(ctx, "inventory."+operation,
		attribute.String("merchant.id", merchantID),
		attribute.String("product.id", productID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || product.MerchantID != merchantID {
		return errors.ErrNotFoundWithID("product", productID)
	}

	unlock, err := s.uow.lock(ctx, LedgerLockKey(merchantID))
	if err != nil {
		return mapDomainError(err)
	}
	defer unlock()

	state, err := s.uow.load(ctx, merchantID, []domain.OrderItem{{ProductID: productID, Quantity: 1}})
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return s.uow.rejected(ctx, operation, err)
	}

	if err := s.uow.commit(ctx, state, nil); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save inventory",
			"productId", productID,
			"merchantId", merchantID,
		)
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	return nil
}
