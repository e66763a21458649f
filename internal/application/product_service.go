package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

// ProductService handles product catalog use cases
type ProductService struct {
	products domain.ProductRepository
	fees     *domain.FeeCalculator
	logger   *logging.Logger
}

// NewProductService creates a new ProductService
func NewProductService(deps Dependencies) *ProductService {
	deps = deps.withDefaults()
	return &ProductService{
		products: deps.Products,
		fees:     domain.NewFeeCalculator(deps.Schedule),
		logger:   deps.Logger.WithComponent("product-service"),
	}
}

// CreateProduct registers a merchant product
func (s *ProductService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*ProductDTO, error) {
	attrs, err := ToProductAttributes(cmd.ProductAttributesInput)
	if err != nil {
		return nil, mapDomainError(err)
	}

	product, err := domain.NewProduct(cmd.MerchantID, attrs)
	if err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.products.Save(ctx, product); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save product", "productId", product.ProductID)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.WithContext(ctx).Info("Product created",
		"productId", product.ProductID,
		"merchantId", product.MerchantID,
		"packingType", product.PackingType,
	)
	return ToProductDTO(product), nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, productID string) (*ProductDTO, error) {
	product, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ToProductDTO(product), nil
}

// UpdateProduct replaces a product's attributes. Orders already dispatched
// keep the fees frozen at dispatch.
func (s *ProductService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (*ProductDTO, error) {
	product, err := s.find(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}

	attrs, err := ToProductAttributes(cmd.ProductAttributesInput)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if err := product.Update(attrs); err != nil {
		return nil, mapDomainError(err)
	}

	if err := s.products.Save(ctx, product); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save product", "productId", product.ProductID)
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.WithContext(ctx).Info("Product updated", "productId", product.ProductID)
	return ToProductDTO(product), nil
}

// ListProducts lists a merchant's products
func (s *ProductService) ListProducts(ctx context.Context, query ListQuery) (*PageDTO[ProductDTO], error) {
	if query.MerchantID == "" {
		return nil, errors.ErrValidation("merchantId is required")
	}

	pagination := domain.Pagination{Page: query.Page, PageSize: query.PageSize}.Normalize()
	products, err := s.products.FindByMerchant(ctx, query.MerchantID, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	total, err := s.products.CountByMerchant(ctx, query.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = *ToProductDTO(p)
	}
	return pageOf(dtos, pagination, total), nil
}

// GetProductFees returns the per-unit fee split of a product
func (s *ProductService) GetProductFees(ctx context.Context, productID string) (*ProductFeesDTO, error) {
	product, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}

	volumetric := s.fees.VolumetricWeightKg(product.Dimensions)
	return &ProductFeesDTO{
		ProductID:          product.ProductID,
		PackingType:        string(product.PackingType),
		VolumetricWeightKg: volumetric,
		BillableWeightKg:   domain.BillableWeightKg(product.WeightKg, volumetric),
		Components:         ToFeeComponentsDTO(s.fees.PerItemFeeComponents(product)),
	}, nil
}

func (s *ProductService) find(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, errors.ErrNotFoundWithID("product", productID)
	}
	return product, nil
}
