package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	service *application.ProductService
	logger  *logging.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(service *application.ProductService, logger *logging.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var cmd application.CreateProductCommand
	if !bindJSON(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c.Request.Context(),
		attribute.String("merchant.id", cmd.MerchantID),
		attribute.String("product.packing_type", cmd.PackingType),
	)

	result, err := h.service.CreateProduct(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	created(c, result)
}

// GetProduct handles GET /api/v1/products/:productId
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID := c.Param("productId")
	middleware.AddSpanAttributes(c.Request.Context(), attribute.String("product.id", productID))

	result, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// UpdateProduct handles PUT /api/v1/products/:productId
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	cmd := application.UpdateProductCommand{ProductID: c.Param("productId")}
	if !bindJSON(c, &cmd.ProductAttributesInput) {
		return
	}

	middleware.AddSpanAttributes(c.Request.Context(), attribute.String("product.id", cmd.ProductID))

	result, err := h.service.UpdateProduct(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// ListProducts handles GET /api/v1/products?merchantId=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var query application.ListQuery
	if !bindQuery(c, &query) {
		return
	}

	result, err := h.service.ListProducts(c.Request.Context(), query)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// GetProductFees handles GET /api/v1/products/:productId/fees
func (h *ProductHandler) GetProductFees(c *gin.Context) {
	productID := c.Param("productId")
	middleware.AddSpanAttributes(c.Request.Context(), attribute.String("product.id", productID))

	result, err := h.service.GetProductFees(c.Request.Context(), productID)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}
