package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// InventoryHandler handles HTTP requests for merchant stock records
type InventoryHandler struct {
	service *application.InventoryService
	logger  *logging.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service *application.InventoryService, logger *logging.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		logger:  logger,
	}
}

type listInventoryQuery struct {
	application.ListQuery
	LowStock bool `form:"lowStock"`
}

// ListInventory handles GET /api/v1/inventory?merchantId=&lowStock=
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	var query listInventoryQuery
	if !bindQuery(c, &query) {
		return
	}

	if !query.LowStock {
		result, err := h.service.ListInventory(c.Request.Context(), query.ListQuery)
		if err != nil {
			middleware.RespondWithError(c, h.logger, err)
			return
		}
		ok(c, result)
		return
	}

	if query.MerchantID == "" {
		middleware.AbortWithAppError(c, errors.ErrValidation("merchantId is required"))
		return
	}
	result, err := h.service.ListLowStock(c.Request.Context(), query.MerchantID)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}
	ok(c, gin.H{"items": result})
}

// GetInventory handles GET /api/v1/inventory/:merchantId/:productId
func (h *InventoryHandler) GetInventory(c *gin.Context) {
	merchantID, productID := c.Param("merchantId"), c.Param("productId")
	h.annotate(c, merchantID, productID)

	result, err := h.service.GetInventory(c.Request.Context(), merchantID, productID)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// AdjustInventory handles PUT /api/v1/inventory/:merchantId/:productId
func (h *InventoryHandler) AdjustInventory(c *gin.Context) {
	cmd := application.AdjustInventoryCommand{
		MerchantID: c.Param("merchantId"),
		ProductID:  c.Param("productId"),
	}
	if !bindJSON(c, &cmd) {
		return
	}
	h.annotate(c, cmd.MerchantID, cmd.ProductID)

	result, err := h.service.AdjustInventory(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// SetThresholds handles PUT /api/v1/inventory/:merchantId/:productId/thresholds
func (h *InventoryHandler) SetThresholds(c *gin.Context) {
	cmd := application.SetThresholdsCommand{
		MerchantID: c.Param("merchantId"),
		ProductID:  c.Param("productId"),
	}
	if !bindJSON(c, &cmd) {
		return
	}
	h.annotate(c, cmd.MerchantID, cmd.ProductID)

	result, err := h.service.SetThresholds(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

func (h *InventoryHandler) annotate(c *gin.Context, merchantID, productID string) {
	middleware.AddSpanAttributes(c.Request.Context(),
		attribute.String("merchant.id", merchantID),
		attribute.String("product.id", productID),
	)
}
