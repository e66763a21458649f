package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PackingType is the pricing tier applied to dispatch fees
type PackingType string

const (
	PackingTypeNormal     PackingType = "normal"
	PackingTypeFragile    PackingType = "fragile"
	PackingTypeEcoFragile PackingType = "eco_fragile"
)

// IsValid checks if the packing type is recognised
func (p PackingType) IsValid() bool {
	switch p {
	case PackingTypeNormal, PackingTypeFragile, PackingTypeEcoFragile:
		return true
	default:
		return false
	}
}

// Normalize maps unknown packing types to normal
func (p PackingType) Normalize() PackingType {
	if p.IsValid() {
		return p
	}
	return PackingTypeNormal
}

// ParsePackingType parses a packing type, accepting common spellings such as "eco-fragile"
func ParsePackingType(s string) (PackingType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if normalized == "" {
		return PackingTypeNormal, nil
	}
	pt := PackingType(normalized)
	if !pt.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidPackingType, s)
	}
	return pt, nil
}

// ProductAttributes holds the physical and pricing attributes of a product
type ProductAttributes struct {
	Name                 string      `bson:"name" json:"name"`
	WeightKg             float64     `bson:"weightKg" json:"weightKg"`
	Dimensions           Dimensions  `bson:"dimensions" json:"dimensions"`
	PackingType          PackingType `bson:"packingType" json:"packingType"`
	ItemPackingFee       *Money      `bson:"itemPackingFee,omitempty" json:"itemPackingFee,omitempty"`
	TransportationFee    *Money      `bson:"transportationFee,omitempty" json:"transportationFee,omitempty"`
	WarehousingRatePerKg *Money      `bson:"warehousingRatePerKg,omitempty" json:"warehousingRatePerKg,omitempty"`
}

// Validate checks that no numeric attribute is negative
func (a ProductAttributes) Validate() error {
	if a.WeightKg < 0 || a.Dimensions.LengthCm < 0 || a.Dimensions.BreadthCm < 0 || a.Dimensions.HeightCm < 0 {
		return fmt.Errorf("%w: weight and dimensions must be >= 0", ErrNegativeValue)
	}
	for name, fee := range map[string]*Money{
		"itemPackingFee":       a.ItemPackingFee,
		"transportationFee":    a.TransportationFee,
		"warehousingRatePerKg": a.WarehousingRatePerKg,
	} {
		if fee != nil && fee.IsNegative() {
			return fmt.Errorf("%w: %s must be >= 0", ErrNegativeValue, name)
		}
	}
	if a.PackingType != "" && !a.PackingType.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidPackingType, a.PackingType)
	}
	return nil
}

// Product is a merchant SKU with the attributes fees are derived from
type Product struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProductID         string             `bson:"productId" json:"productId"`
	MerchantID        string             `bson:"merchantId" json:"merchantId"`
	ProductAttributes `bson:",inline"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewProduct creates a product for a merchant
func NewProduct(merchantID string, attrs ProductAttributes) (*Product, error) {
	if merchantID == "" {
		return nil, ErrMerchantRequired
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if attrs.PackingType == "" {
		attrs.PackingType = PackingTypeNormal
	}

	now := time.Now().UTC()
	return &Product{
		ProductID:         fmt.Sprintf("PRD-%s", uuid.New().String()[:8]),
		MerchantID:        merchantID,
		ProductAttributes: attrs,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Update replaces the product attributes
func (p *Product) Update(attrs ProductAttributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	if attrs.PackingType == "" {
		attrs.PackingType = PackingTypeNormal
	}
	p.ProductAttributes = attrs
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// VolumetricWeightKg returns the volumetric weight of one unit
func (p *Product) VolumetricWeightKg() float64 {
	return VolumetricWeightKg(p.Dimensions.LengthCm, p.Dimensions.BreadthCm, p.Dimensions.HeightCm)
}

// BillableWeightKg returns max(actual, volumetric) for one unit
func (p *Product) BillableWeightKg() float64 {
	return BillableWeightKg(p.WeightKg, p.VolumetricWeightKg())
}

// ProductLookup resolves products by ID. A miss is not an error.
type ProductLookup interface {
	LookupProduct(productID string) (*Product, bool)
}

// ProductLookupFunc adapts a function to ProductLookup
type ProductLookupFunc func(productID string) (*Product, bool)

// LookupProduct calls f(productID)
func (f ProductLookupFunc) LookupProduct(productID string) (*Product, bool) {
	return f(productID)
}

// ProductCatalog is an in-memory product snapshot keyed by product ID
type ProductCatalog map[string]*Product

// NewProductCatalog builds a catalog from products
func NewProductCatalog(products ...*Product) ProductCatalog {
	catalog := make(ProductCatalog, len(products))
	for _, p := range products {
		if p != nil {
			catalog[p.ProductID] = p
		}
	}
	return catalog
}

// LookupProduct implements ProductLookup
func (c ProductCatalog) LookupProduct(productID string) (*Product, bool) {
	p, ok := c[productID]
	return p, ok && p != nil
}

// Get returns the product or an UnknownProductError
func (c ProductCatalog) Get(productID string) (*Product, error) {
	if p, ok := c.LookupProduct(productID); ok {
		return p, nil
	}
	return nil, &UnknownProductError{ProductID: productID}
}
