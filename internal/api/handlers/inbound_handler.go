package handlers

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// InboundHandler handles HTTP requests for inbound and outbound requests
type InboundHandler struct {
	service *application.InboundService
	logger  *logging.Logger
}

// NewInboundHandler creates a new InboundHandler
func NewInboundHandler(service *application.InboundService, logger *logging.Logger) *InboundHandler {
	return &InboundHandler{
		service: service,
		logger:  logger,
	}
}

// CreateRequest handles POST /api/v1/inbound-requests
func (h *InboundHandler) CreateRequest(c *gin.Context) {
	var cmd application.CreateInboundCommand
	if !bindJSON(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c.Request.Context(),
		attribute.String("merchant.id", cmd.MerchantID),
		attribute.String("inbound.type", cmd.Type),
		attribute.Bool("inbound.schedule_pickup", cmd.SchedulePickup),
	)

	result, err := h.service.CreateRequest(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	created(c, result)
}

// GetRequest handles GET /api/v1/inbound-requests/:requestId
func (h *InboundHandler) GetRequest(c *gin.Context) {
	result, err := h.service.GetRequest(c.Request.Context(), h.requestID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// ListRequests handles GET /api/v1/inbound-requests?merchantId=&status=&type=
func (h *InboundHandler) ListRequests(c *gin.Context) {
	var query application.ListInboundQuery
	if !bindQuery(c, &query) {
		return
	}

	result, err := h.service.ListRequests(c.Request.Context(), query)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// InitiatePickup handles POST /api/v1/inbound-requests/:requestId/initiate-pickup
func (h *InboundHandler) InitiatePickup(c *gin.Context) {
	result, err := h.service.InitiatePickup(c.Request.Context(), h.requestID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// MarkPickedUp handles POST /api/v1/inbound-requests/:requestId/pick-up
func (h *InboundHandler) MarkPickedUp(c *gin.Context) {
	result, err := h.service.MarkPickedUp(c.Request.Context(), h.requestID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// CompleteRequest handles POST /api/v1/inbound-requests/:requestId/complete
func (h *InboundHandler) CompleteRequest(c *gin.Context) {
	result, err := h.service.CompleteRequest(c.Request.Context(), h.requestID(c))
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// CancelRequest handles POST /api/v1/inbound-requests/:requestId/cancel
func (h *InboundHandler) CancelRequest(c *gin.Context) {
	cmd := application.CancelCommand{ID: h.requestID(c)}
	if !bindOptional(c, &cmd) {
		return
	}

	result, err := h.service.CancelRequest(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

func (h *InboundHandler) requestID(c *gin.Context) string {
	requestID := c.Param("requestId")
	middleware.AddSpanAttributes(c.Request.Context(), attribute.String("inbound.request_id", requestID))
	return requestID
}
