package domain

import (
	"github.com/shopspring/decimal"
)

// DispatchTier holds the base fee and the increment per extra weight step
type DispatchTier struct {
	Base      Money `yaml:"base" json:"base"`
	Increment Money `yaml:"increment" json:"increment"`
}

// FeeSchedule defines the rate card used for fee calculations
type FeeSchedule struct {
	DispatchTiers      map[PackingType]DispatchTier `yaml:"dispatchTiers" json:"dispatchTiers"`
	WeightStepKg       float64                      `yaml:"weightStepKg" json:"weightStepKg"`
	InboundRatePerStep Money                        `yaml:"inboundRatePerStep" json:"inboundRatePerStep"`
	BoxCuttingFee      Money                        `yaml:"boxCuttingFee" json:"boxCuttingFee"`
	TrackingFee        Money                        `yaml:"trackingFee" json:"trackingFee"`
	OrderUnitPrice     Money                        `yaml:"orderUnitPrice" json:"orderUnitPrice"`
	VolumetricDivisor  float64                      `yaml:"volumetricDivisor" json:"volumetricDivisor"`
}

// DefaultFeeSchedule returns the standard rate card
func DefaultFeeSchedule() *FeeSchedule {
	return &FeeSchedule{
		DispatchTiers: map[PackingType]DispatchTier{
			PackingTypeNormal:     {Base: 7, Increment: 2},
			PackingTypeFragile:    {Base: 11, Increment: 4},
			PackingTypeEcoFragile: {Base: 12, Increment: 5},
		},
		WeightStepKg:       0.5,
		InboundRatePerStep: 5,
		BoxCuttingFee:      2,
		TrackingFee:        3,
		OrderUnitPrice:     7,
		VolumetricDivisor:  DefaultVolumetricDivisor,
	}
}

// Tier returns the dispatch tier for a packing type, falling back to normal
func (s *FeeSchedule) Tier(packingType PackingType) DispatchTier {
	if tier, ok := s.DispatchTiers[packingType]; ok {
		return tier
	}
	return s.DispatchTiers[PackingTypeNormal]
}

// FeeComponents is the per-item fee split
type FeeComponents struct {
	Packing        Money `bson:"packing" json:"packing"`
	Transportation Money `bson:"transportation" json:"transportation"`
	Warehousing    Money `bson:"warehousing" json:"warehousing"`
}

// Total returns packing + transportation + warehousing
func (c FeeComponents) Total() Money {
	return c.Packing.Add(c.Transportation).Add(c.Warehousing)
}

// OrderFeeLine is the fee contribution of a single order item
type OrderFeeLine struct {
	ProductID  string        `bson:"productId" json:"productId"`
	Quantity   int           `bson:"quantity" json:"quantity"`
	Components FeeComponents `bson:"components" json:"components"`
	LineTotal  Money         `bson:"lineTotal" json:"lineTotal"`
	Missing    bool          `bson:"missing,omitempty" json:"missing,omitempty"`
}

// OrderFeeBreakdown is the full packing fee summary of an order
type OrderFeeBreakdown struct {
	Lines           []OrderFeeLine `bson:"lines" json:"lines"`
	Packing         Money          `bson:"packing" json:"packing"`
	Transportation  Money          `bson:"transportation" json:"transportation"`
	Warehousing     Money          `bson:"warehousing" json:"warehousing"`
	ItemsTotal      Money          `bson:"itemsTotal" json:"itemsTotal"`
	BoxFee          Money          `bson:"boxFee" json:"boxFee"`
	BoxCuttingFee   Money          `bson:"boxCuttingFee" json:"boxCuttingFee"`
	TrackingFee     Money          `bson:"trackingFee" json:"trackingFee"`
	Total           Money          `bson:"total" json:"total"`
	MissingProducts []string       `bson:"missingProducts,omitempty" json:"missingProducts,omitempty"`
}

// FeeCalculator computes fees from a rate card
type FeeCalculator struct {
	schedule *FeeSchedule
}

// NewFeeCalculator creates a fee calculator; a nil schedule uses the defaults
func NewFeeCalculator(schedule *FeeSchedule) *FeeCalculator {
	if schedule == nil {
		schedule = DefaultFeeSchedule()
	}
	return &FeeCalculator{schedule: schedule}
}

// Schedule returns the rate card in use
func (c *FeeCalculator) Schedule() *FeeSchedule {
	return c.schedule
}

// VolumetricWeightKg applies the rate card's volumetric divisor
func (c *FeeCalculator) VolumetricWeightKg(d Dimensions) float64 {
	return volumetricWeightKg(d.LengthCm, d.BreadthCm, d.HeightCm, c.schedule.VolumetricDivisor)
}

// DispatchFee returns the tiered packing/dispatch fee for the billable weight
func (c *FeeCalculator) DispatchFee(actualWeightKg, volumetricWeightKg float64, packingType PackingType) Money {
	tier := c.schedule.Tier(packingType)
	weight := BillableWeightKg(actualWeightKg, volumetricWeightKg)
	if weight <= c.schedule.WeightStepKg {
		return nonNegative(tier.Base.Round())
	}

	step := decimal.NewFromFloat(c.schedule.WeightStepKg)
	extraSteps := decimal.NewFromFloat(weight).Sub(step).Div(step).Ceil()
	return nonNegative(moneyFromDecimal(tier.Base.Decimal().Add(extraSteps.Mul(tier.Increment.Decimal()))))
}

// InboundFee returns the flat per-step inbound handling fee
func (c *FeeCalculator) InboundFee(actualWeightKg, volumetricWeightKg float64) Money {
	weight := BillableWeightKg(actualWeightKg, volumetricWeightKg)
	if weight <= 0 || c.schedule.WeightStepKg <= 0 {
		return 0
	}

	steps := decimal.NewFromFloat(weight).Div(decimal.NewFromFloat(c.schedule.WeightStepKg)).Ceil()
	return nonNegative(moneyFromDecimal(steps.Mul(c.schedule.InboundRatePerStep.Decimal())))
}

// PerItemFeeComponents derives the packing/transportation/warehousing split for one unit
func (c *FeeCalculator) PerItemFeeComponents(p *Product) FeeComponents {
	if p == nil {
		return FeeComponents{}
	}

	packing := ValueOr(p.ItemPackingFee, 0)
	if p.ItemPackingFee == nil {
		packing = c.DispatchFee(p.WeightKg, c.VolumetricWeightKg(p.Dimensions), p.PackingType)
	}

	return FeeComponents{
		Packing:        nonNegative(packing.Round()),
		Transportation: nonNegative(ValueOr(p.TransportationFee, 0).Round()),
		Warehousing:    nonNegative(ValueOr(p.WarehousingRatePerKg, 0).Mul(p.WeightKg)),
	}
}

// OrderFeeBreakdown computes per-line fees and order-level extras.
// Items whose product cannot be found contribute zero and are listed in MissingProducts.
func (c *FeeCalculator) OrderFeeBreakdown(order *Order, lookup ProductLookup) *OrderFeeBreakdown {
	breakdown := &OrderFeeBreakdown{Lines: make([]OrderFeeLine, 0, len(order.Items))}

	for _, item := range order.Items {
		line := OrderFeeLine{ProductID: item.ProductID, Quantity: item.Quantity}

		product, ok := lookupProduct(lookup, item.ProductID)
		if !ok {
			line.Missing = true
			breakdown.MissingProducts = append(breakdown.MissingProducts, item.ProductID)
			breakdown.Lines = append(breakdown.Lines, line)
			continue
		}

		line.Components = c.PerItemFeeComponents(product)
		line.LineTotal = line.Components.Total().MulInt(item.Quantity)

		breakdown.Packing = breakdown.Packing.Add(line.Components.Packing.MulInt(item.Quantity))
		breakdown.Transportation = breakdown.Transportation.Add(line.Components.Transportation.MulInt(item.Quantity))
		breakdown.Warehousing = breakdown.Warehousing.Add(line.Components.Warehousing.MulInt(item.Quantity))
		breakdown.ItemsTotal = breakdown.ItemsTotal.Add(line.LineTotal)
		breakdown.Lines = append(breakdown.Lines, line)
	}

	breakdown.BoxFee = nonNegative(order.BoxFee.Round())
	if order.BoxCutting {
		breakdown.BoxCuttingFee = c.schedule.BoxCuttingFee
	}
	breakdown.TrackingFee = c.schedule.TrackingFee
	breakdown.Total = nonNegative(breakdown.ItemsTotal.
		Add(breakdown.BoxFee).
		Add(breakdown.BoxCuttingFee).
		Add(breakdown.TrackingFee))

	return breakdown
}

// OrderPackingFee returns the total packing fee charged for an order
func (c *FeeCalculator) OrderPackingFee(order *Order, lookup ProductLookup) Money {
	return c.OrderFeeBreakdown(order, lookup).Total
}

// OrderPrice returns the flat per-unit order price, independent of packing fees
func (c *FeeCalculator) OrderPrice(items []OrderItem) Money {
	units := 0
	for _, item := range items {
		units += item.Quantity
	}
	return nonNegative(c.schedule.OrderUnitPrice.MulInt(units))
}

// ItemWeightKg returns the billable weight of one unit of an item, honouring the per-item override
func (c *FeeCalculator) ItemWeightKg(item OrderItem, lookup ProductLookup) float64 {
	if item.WeightKg != nil {
		return *item.WeightKg
	}
	product, ok := lookupProduct(lookup, item.ProductID)
	if !ok {
		return 0
	}
	return BillableWeightKg(product.WeightKg, c.VolumetricWeightKg(product.Dimensions))
}

// ItemsWeightKg returns the summed billable weight of items, rounded to three decimals
func (c *FeeCalculator) ItemsWeightKg(items []OrderItem, lookup ProductLookup) float64 {
	total := decimal.Zero
	for _, item := range items {
		w := decimal.NewFromFloat(c.ItemWeightKg(item, lookup))
		total = total.Add(w.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return RoundWeight(total.InexactFloat64())
}

func lookupProduct(lookup ProductLookup, productID string) (*Product, bool) {
	if lookup == nil {
		return nil, false
	}
	return lookup.LookupProduct(productID)
}
