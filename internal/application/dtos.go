package application

import "time"

// ProductDTO represents a product
type ProductDTO struct {
	ProductID            string    `json:"productId"`
	MerchantID           string    `json:"merchantId"`
	Name                 string    `json:"name,omitempty"`
	WeightKg             float64   `json:"weightKg"`
	LengthCm             float64   `json:"lengthCm"`
	BreadthCm            float64   `json:"breadthCm"`
	HeightCm             float64   `json:"heightCm"`
	PackingType          string    `json:"packingType"`
	ItemPackingFee       *float64  `json:"itemPackingFee,omitempty"`
	TransportationFee    *float64  `json:"transportationFee,omitempty"`
	WarehousingRatePerKg *float64  `json:"warehousingRatePerKg,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// FeeComponentsDTO is the per-item fee split
type FeeComponentsDTO struct {
	Packing        float64 `json:"packing"`
	Transportation float64 `json:"transportation"`
	Warehousing    float64 `json:"warehousing"`
	Total          float64 `json:"total"`
}

// ProductFeesDTO describes what one unit of a product costs to handle
type ProductFeesDTO struct {
	ProductID          string           `json:"productId"`
	PackingType        string           `json:"packingType"`
	VolumetricWeightKg float64          `json:"volumetricWeightKg"`
	BillableWeightKg   float64          `json:"billableWeightKg"`
	Components         FeeComponentsDTO `json:"components"`
}

// FeeQuoteDTO is a priced parcel
type FeeQuoteDTO struct {
	ActualWeightKg     float64 `json:"actualWeightKg"`
	VolumetricWeightKg float64 `json:"volumetricWeightKg"`
	BillableWeightKg   float64 `json:"billableWeightKg"`
	PackingType        string  `json:"packingType,omitempty"`
	Fee                float64 `json:"fee"`
}

// InventoryDTO represents a stock record
type InventoryDTO struct {
	ProductID     string    `json:"productId"`
	MerchantID    string    `json:"merchantId"`
	Quantity      int       `json:"quantity"`
	MinStockLevel int       `json:"minStockLevel"`
	MaxStockLevel int       `json:"maxStockLevel"`
	LowStock      bool      `json:"lowStock"`
	Overstocked   bool      `json:"overstocked"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StockMovementDTO is one committed ledger movement
type StockMovementDTO struct {
	ProductID        string `json:"productId"`
	Movement         string `json:"movement"`
	Quantity         int    `json:"quantity"`
	PreviousQuantity int    `json:"previousQuantity"`
	NewQuantity      int    `json:"newQuantity"`
	LowStock         bool   `json:"lowStock"`
}

// ItemDTO is one product line
type ItemDTO struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	WeightKg  *float64 `json:"weightKg,omitempty"`
}

// FeeLineDTO is the fee contribution of one order line
type FeeLineDTO struct {
	ProductID  string           `json:"productId"`
	Quantity   int              `json:"quantity"`
	Components FeeComponentsDTO `json:"components"`
	LineTotal  float64          `json:"lineTotal"`
	Missing    bool             `json:"missing,omitempty"`
}

// FeeBreakdownDTO is the packing fee summary of an order
type FeeBreakdownDTO struct {
	Lines           []FeeLineDTO `json:"lines"`
	Packing         float64      `json:"packing"`
	Transportation  float64      `json:"transportation"`
	Warehousing     float64      `json:"warehousing"`
	ItemsTotal      float64      `json:"itemsTotal"`
	BoxFee          float64      `json:"boxFee"`
	BoxCuttingFee   float64      `json:"boxCuttingFee"`
	TrackingFee     float64      `json:"trackingFee"`
	Total           float64      `json:"total"`
	MissingProducts []string     `json:"missingProducts,omitempty"`
}

// OrderDTO represents an order
type OrderDTO struct {
	OrderID        string           `json:"orderId"`
	MerchantID     string           `json:"merchantId"`
	Items          []ItemDTO        `json:"items"`
	Status         string           `json:"status"`
	Price          float64          `json:"price"`
	PackedWeightKg *float64         `json:"packedWeightKg,omitempty"`
	TrackingCode   *string          `json:"trackingCode,omitempty"`
	BoxFee         float64          `json:"boxFee"`
	BoxCutting     bool             `json:"boxCutting"`
	ReturnType     string           `json:"returnType,omitempty"`
	PackingFee     *float64         `json:"packingFee,omitempty"`
	FeeBreakdown   *FeeBreakdownDTO `json:"feeBreakdown,omitempty"`
	CancelReason   string           `json:"cancelReason,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	PackedAt       *time.Time       `json:"packedAt,omitempty"`
	DispatchedAt   *time.Time       `json:"dispatchedAt,omitempty"`
	DeliveredAt    *time.Time       `json:"deliveredAt,omitempty"`
	CancelledAt    *time.Time       `json:"cancelledAt,omitempty"`
}

// OrderTransitionDTO is the outcome of an order status change
type OrderTransitionDTO struct {
	Order     *OrderDTO          `json:"order"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Movements []StockMovementDTO `json:"movements,omitempty"`
}

// OrderFeesDTO is the current fee estimate of an order
type OrderFeesDTO struct {
	OrderID   string           `json:"orderId"`
	Status    string           `json:"status"`
	WeightKg  float64          `json:"weightKg"`
	Breakdown *FeeBreakdownDTO `json:"breakdown"`
}

// InboundDTO represents an inbound or outbound request
type InboundDTO struct {
	RequestID         string     `json:"requestId"`
	MerchantID        string     `json:"merchantId"`
	Type              string     `json:"type"`
	Items             []ItemDTO  `json:"items"`
	Status            string     `json:"status"`
	TotalWeightKg     float64    `json:"totalWeightKg"`
	Fee               float64    `json:"fee"`
	WorkflowID        string     `json:"workflowId,omitempty"`
	CancelReason      string     `json:"cancelReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	PickupInitiatedAt *time.Time `json:"pickupInitiatedAt,omitempty"`
	PickedUpAt        *time.Time `json:"pickedUpAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
}

// InboundTransitionDTO is the outcome of an inbound status change
type InboundTransitionDTO struct {
	Request          *InboundDTO        `json:"request"`
	From             string             `json:"from"`
	To               string             `json:"to"`
	Movements        []StockMovementDTO `json:"movements,omitempty"`
	AlreadyCompleted bool               `json:"alreadyCompleted,omitempty"`
}

// PageDTO is one page of a list
type PageDTO[T any] struct {
	Items    []T   `json:"items"`
	Page     int64 `json:"page"`
	PageSize int64 `json:"pageSize"`
	Total    int64 `json:"total"`
}
