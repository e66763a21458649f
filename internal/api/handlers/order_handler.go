package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// OrderHandler handles HTTP requests for orders and returns
type OrderHandler struct {
	service *application.OrderService
	logger  *logging.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *application.OrderService, logger *logging.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var cmd application.CreateOrderCommand
	if !bindJSON(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c.Request.Context(),
		attribute.String("merchant.id", cmd.MerchantID),
		attribute.Int("order.items", len(cmd.Items)),
	)

	result, err := h.service.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	created(c, result)
}

// CreateReturn handles POST /api/v1/returns
func (h *OrderHandler) CreateReturn(c *gin.Context) {
	var cmd application.CreateReturnCommand
	if !bindJSON(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c.Request.Context(),
		attribute.String("merchant.id", cmd.MerchantID),
		attribute.String("order.return_type", cmd.ReturnType),
	)

	result, err := h.service.CreateReturn(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	created(c, result)
}

// GetOrder handles GET /api/v1/orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := h.orderID(c)

	result, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// ListOrders handles GET /api/v1/orders?merchantId=&status=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query application.ListOrdersQuery
	if !bindQuery(c, &query) {
		return
	}

	result, err := h.service.ListOrders(c.Request.Context(), query)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// ReplaceItems handles PUT /api/v1/orders/:orderId/items
func (h *OrderHandler) ReplaceItems(c *gin.Context) {
	cmd := application.ReplaceItemsCommand{OrderID: h.orderID(c)}
	if !bindJSON(c, &cmd) {
		return
	}

	result, err := h.service.ReplaceItems(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// PackOrder handles POST /api/v1/orders/:orderId/pack
func (h *OrderHandler) PackOrder(c *gin.Context) {
	cmd := application.PackOrderCommand{OrderID: h.orderID(c)}
	if !bindOptional(c, &cmd) {
		return
	}

	result, err := h.service.PackOrder(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// DispatchOrder handles POST /api/v1/orders/:orderId/dispatch
func (h *OrderHandler) DispatchOrder(c *gin.Context) {
	cmd := application.DispatchOrderCommand{OrderID: h.orderID(c)}
	if !bindOptional(c, &cmd) {
		return
	}

	result, err := h.service.DispatchOrder(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// DeliverOrder handles POST /api/v1/orders/:orderId/deliver
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	result, err := h.service.DeliverOrder(c.Request.Context(), h.orderID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// CancelOrder handles POST /api/v1/orders/:orderId/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	cmd := application.CancelCommand{ID: h.orderID(c)}
	if !bindOptional(c, &cmd) {
		return
	}

	result, err := h.service.CancelOrder(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// GetOrderFees handles GET /api/v1/orders/:orderId/fees
func (h *OrderHandler) GetOrderFees(c *gin.Context) {
	result, err := h.service.GetOrderFees(c.Request.Context(), h.orderID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

func (h *OrderHandler) orderID(c *gin.Context) string {
	orderID := c.Param("orderId")
	middleware.AddSpanAttributes(c.Request.Context(), attribute.String("order.id", orderID))
	return orderID
}
