package application

import (
	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// ToProductDTO converts a product to its DTO
func ToProductDTO(p *domain.Product) *ProductDTO {
	return &ProductDTO{
		ProductID:            p.ProductID,
		MerchantID:           p.MerchantID,
		Name:                 p.Name,
		WeightKg:             p.WeightKg,
		LengthCm:             p.Dimensions.LengthCm,
		BreadthCm:            p.Dimensions.BreadthCm,
		HeightCm:             p.Dimensions.HeightCm,
		PackingType:          string(p.PackingType),
		ItemPackingFee:       moneyPtrToFloat(p.ItemPackingFee),
		TransportationFee:    moneyPtrToFloat(p.TransportationFee),
		WarehousingRatePerKg: moneyPtrToFloat(p.WarehousingRatePerKg),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// ToProductAttributes converts request input to domain attributes
func ToProductAttributes(in ProductAttributesInput) (domain.ProductAttributes, error) {
	packingType, err := domain.ParsePackingType(in.PackingType)
	if err != nil {
		return domain.ProductAttributes{}, err
	}
	return domain.ProductAttributes{
		Name:     in.Name,
		WeightKg: in.WeightKg,
		Dimensions: domain.Dimensions{
			LengthCm:  in.LengthCm,
			BreadthCm: in.BreadthCm,
			HeightCm:  in.HeightCm,
		},
		PackingType:          packingType,
		ItemPackingFee:       floatPtrToMoney(in.ItemPackingFee),
		TransportationFee:    floatPtrToMoney(in.TransportationFee),
		WarehousingRatePerKg: floatPtrToMoney(in.WarehousingRatePerKg),
	}, nil
}

// ToFeeComponentsDTO converts a fee split
func ToFeeComponentsDTO(c domain.FeeComponents) FeeComponentsDTO {
	return FeeComponentsDTO{
		Packing:        c.Packing.Float64(),
		Transportation: c.Transportation.Float64(),
		Warehousing:    c.Warehousing.Float64(),
		Total:          c.Total().Float64(),
	}
}

// ToInventoryDTO converts a stock record
func ToInventoryDTO(r *domain.InventoryRecord) *InventoryDTO {
	return &InventoryDTO{
		ProductID:     r.ProductID,
		MerchantID:    r.MerchantID,
		Quantity:      r.Quantity,
		MinStockLevel: r.MinStockLevel,
		MaxStockLevel: r.MaxStockLevel,
		LowStock:      r.IsLowStock(),
		Overstocked:   r.IsOverstocked(),
		UpdatedAt:     r.UpdatedAt,
	}
}

// ToStockMovementDTOs converts ledger results
func ToStockMovementDTOs(results []domain.LedgerResult) []StockMovementDTO {
	if len(results) == 0 {
		return nil
	}
	dtos := make([]StockMovementDTO, len(results))
	for i, r := range results {
		dtos[i] = StockMovementDTO{
			ProductID:        r.ProductID,
			Movement:         string(r.Movement),
			Quantity:         r.Quantity,
			PreviousQuantity: r.PreviousQuantity,
			NewQuantity:      r.NewQuantity,
			LowStock:         r.LowStock,
		}
	}
	return dtos
}

// ToItems converts request lines to domain items
func ToItems(inputs []ItemInput) []domain.OrderItem {
	items := make([]domain.OrderItem, len(inputs))
	for i, in := range inputs {
		items[i] = domain.OrderItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			WeightKg:  in.WeightKg,
		}
	}
	return items
}

func toItemDTOs(items []domain.OrderItem) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = ItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			WeightKg:  item.WeightKg,
		}
	}
	return dtos
}

// ToFeeBreakdownDTO converts an order fee breakdown
func ToFeeBreakdownDTO(b *domain.OrderFeeBreakdown) *FeeBreakdownDTO {
	if b == nil {
		return nil
	}
	lines := make([]FeeLineDTO, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = FeeLineDTO{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			Components: ToFeeComponentsDTO(l.Components),
			LineTotal:  l.LineTotal.Float64(),
			Missing:    l.Missing,
		}
	}
	return &FeeBreakdownDTO{
		Lines:           lines,
		Packing:         b.Packing.Float64(),
		Transportation:  b.Transportation.Float64(),
		Warehousing:     b.Warehousing.Float64(),
		ItemsTotal:      b.ItemsTotal.Float64(),
		BoxFee:          b.BoxFee.Float64(),
		BoxCuttingFee:   b.BoxCuttingFee.Float64(),
		TrackingFee:     b.TrackingFee.Float64(),
		Total:           b.Total.Float64(),
		MissingProducts: b.MissingProducts,
	}
}

// ToOrderDTO converts an order
func ToOrderDTO(o *domain.Order) *OrderDTO {
	return &OrderDTO{
		OrderID:        o.OrderID,
		MerchantID:     o.MerchantID,
		Items:          toItemDTOs(o.Items),
		Status:         string(o.Status),
		Price:          o.Price.Float64(),
		PackedWeightKg: o.PackedWeightKg,
		TrackingCode:   o.TrackingCode,
		BoxFee:         o.BoxFee.Float64(),
		BoxCutting:     o.BoxCutting,
		ReturnType:     string(o.ReturnType),
		PackingFee:     moneyPtrToFloat(o.PackingFee),
		FeeBreakdown:   ToFeeBreakdownDTO(o.FeeBreakdown),
		CancelReason:   o.CancelReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		PackedAt:       o.PackedAt,
		DispatchedAt:   o.DispatchedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
	}
}

// ToOrderTransitionDTO converts an order transition result
func ToOrderTransitionDTO(r *domain.OrderTransitionResult) *OrderTransitionDTO {
	return &OrderTransitionDTO{
		Order:     ToOrderDTO(r.Order),
		From:      string(r.From),
		To:        string(r.To),
		Movements: ToStockMovementDTOs(r.Movements),
	}
}

// ToInboundDTO converts an inbound request
func ToInboundDTO(r *domain.InboundRequest) *InboundDTO {
	return &InboundDTO{
		RequestID:         r.RequestID,
		MerchantID:        r.MerchantID,
		Type:              string(r.Type),
		Items:             toItemDTOs(r.Items),
		Status:            string(r.Status),
		TotalWeightKg:     r.TotalWeightKg,
		Fee:               r.Fee.Float64(),
		WorkflowID:        r.WorkflowID,
		CancelReason:      r.CancelReason,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		PickupInitiatedAt: r.PickupInitiatedAt,
		PickedUpAt:        r.PickedUpAt,
		CompletedAt:       r.CompletedAt,
		CancelledAt:       r.CancelledAt,
	}
}

// ToInboundTransitionDTO converts an inbound transition result
func ToInboundTransitionDTO(r *domain.InboundTransitionResult) *InboundTransitionDTO {
	return &InboundTransitionDTO{
		Request:          ToInboundDTO(r.Request),
		From:             string(r.From),
		To:               string(r.To),
		Movements:        ToStockMovementDTOs(r.Movements),
		AlreadyCompleted: r.AlreadyCompleted,
	}
}

func moneyPtrToFloat(m *domain.Money) *float64 {
	if m == nil {
		return nil
	}
	v := m.Float64()
	return &v
}

func floatPtrToMoney(v *float64) *domain.Money {
	if v == nil {
		return nil
	}
	return domain.MoneyPtr(*v)
}

func pageOf[T any](items []T, pagination domain.Pagination, total int64) *PageDTO[T] {
	if items == nil {
		items = []T{}
	}
	return &PageDTO[T]{
		Items:    items,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		Total:    total,
	}
}
