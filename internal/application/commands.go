package application

// ProductAttributesInput carries the editable product attributes
type ProductAttributesInput struct {
	Name                 string   `json:"name" binding:"max=200"`
	WeightKg             float64  `json:"weightKg" binding:"gte=0"`
	LengthCm             float64  `json:"lengthCm" binding:"gte=0"`
	BreadthCm            float64  `json:"breadthCm" binding:"gte=0"`
	HeightCm             float64  `json:"heightCm" binding:"gte=0"`
	PackingType          string   `json:"packingType" binding:"omitempty,packing_type"`
	ItemPackingFee       *float64 `json:"itemPackingFee,omitempty" binding:"omitempty,gte=0"`
	TransportationFee    *float64 `json:"transportationFee,omitempty" binding:"omitempty,gte=0"`
	WarehousingRatePerKg *float64 `json:"warehousingRatePerKg,omitempty" binding:"omitempty,gte=0"`
}

// CreateProductCommand registers a merchant product
type CreateProductCommand struct {
	MerchantID string `json:"merchantId" binding:"required,merchant_id"`
	ProductAttributesInput
}

// UpdateProductCommand replaces a product's attributes
type UpdateProductCommand struct {
	ProductID string `json:"-"`
	ProductAttributesInput
}

// ListQuery is the shared merchant-scoped list query
type ListQuery struct {
	MerchantID string `form:"merchantId" binding:"omitempty,merchant_id"`
	Page       int64  `form:"page" binding:"omitempty,gte=1"`
	PageSize   int64  `form:"pageSize" binding:"omitempty,gte=1,lte=100"`
}

// DispatchFeeQuoteCommand prices a parcel against the dispatch tiers
type DispatchFeeQuoteCommand struct {
	ActualWeightKg float64 `json:"actualWeightKg" binding:"gte=0"`
	LengthCm       float64 `json:"lengthCm" binding:"gte=0"`
	BreadthCm      float64 `json:"breadthCm" binding:"gte=0"`
	HeightCm       float64 `json:"heightCm" binding:"gte=0"`
	PackingType    string  `json:"packingType" binding:"omitempty,packing_type"`
}

// InboundFeeQuoteCommand prices an inbound parcel
type InboundFeeQuoteCommand struct {
	ActualWeightKg float64 `json:"actualWeightKg" binding:"gte=0"`
	LengthCm       float64 `json:"lengthCm" binding:"gte=0"`
	BreadthCm      float64 `json:"breadthCm" binding:"gte=0"`
	HeightCm       float64 `json:"heightCm" binding:"gte=0"`
}

// AdjustInventoryCommand sets the on-hand quantity of a product
type AdjustInventoryCommand struct {
	MerchantID string `json:"-"`
	ProductID  string `json:"-"`
	Quantity   *int   `json:"quantity" binding:"required,gte=0"`
}

// SetThresholdsCommand updates the low/over stock levels of a product
type SetThresholdsCommand struct {
	MerchantID    string `json:"-"`
	ProductID     string `json:"-"`
	MinStockLevel int    `json:"minStockLevel" binding:"gte=0"`
	MaxStockLevel int    `json:"maxStockLevel" binding:"gte=0"`
}

// ItemInput is one requested product line
type ItemInput struct {
	ProductID string   `json:"productId" binding:"required"`
	Quantity  int      `json:"quantity" binding:"required,gt=0"`
	WeightKg  *float64 `json:"weightKg,omitempty" binding:"omitempty,gte=0"`
}

// CreateOrderCommand places an order for a merchant
type CreateOrderCommand struct {
	MerchantID string      `json:"merchantId" binding:"required,merchant_id"`
	Items      []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// ReplaceItemsCommand replaces the items of a pending order
type ReplaceItemsCommand struct {
	OrderID string      `json:"-"`
	Items   []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// PackOrderCommand records the packing details of an order
type PackOrderCommand struct {
	OrderID        string  `json:"-"`
	PackedWeightKg float64 `json:"packedWeightKg" binding:"gte=0"`
	BoxFee         float64 `json:"boxFee" binding:"gte=0"`
	BoxCutting     bool    `json:"boxCutting"`
}

// DispatchOrderCommand hands a packed order to the courier
type DispatchOrderCommand struct {
	OrderID      string `json:"-"`
	TrackingCode string `json:"trackingCode" binding:"max=64"`
}

// CancelCommand logically deletes an order or request
type CancelCommand struct {
	ID     string `json:"-"`
	Reason string `json:"reason" binding:"max=500"`
}

// CreateReturnCommand records a returned shipment
type CreateReturnCommand struct {
	MerchantID string      `json:"merchantId" binding:"required,merchant_id"`
	ReturnType string      `json:"returnType" binding:"required,return_type"`
	Items      []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// ListOrdersQuery filters orders
type ListOrdersQuery struct {
	ListQuery
	Status string `form:"status" binding:"omitempty,oneof=pending packed dispatched delivered return cancelled"`
}

// CreateInboundCommand schedules a stock movement request
type CreateInboundCommand struct {
	MerchantID     string      `json:"merchantId" binding:"required,merchant_id"`
	Type           string      `json:"type" binding:"required,inbound_type"`
	Items          []ItemInput `json:"items" binding:"required,min=1,dive"`
	SchedulePickup bool        `json:"schedulePickup"`
}

// ListInboundQuery filters inbound requests
type ListInboundQuery struct {
	ListQuery
	Status string `form:"status" binding:"omitempty,oneof=pending initiated_pickup picked_up completed cancelled"`
	Type   string `form:"type" binding:"omitempty,inbound_type"`
}
