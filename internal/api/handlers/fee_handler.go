package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// FeeHandler prices parcels without touching any stored state
type FeeHandler struct {
	service *application.FeeService
	logger  *logging.Logger
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(service *application.FeeService, logger *logging.Logger) *FeeHandler {
	return &FeeHandler{
		service: service,
		logger:  logger,
	}
}

// QuoteDispatch handles POST /api/v1/fees/dispatch
func (h *FeeHandler) QuoteDispatch(c *gin.Context) {
	var cmd application.DispatchFeeQuoteCommand
	if !bindJSON(c, &cmd) {
		return
	}

	result, err := h.service.QuoteDispatch(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}

// QuoteInbound handles POST /api/v1/fees/inbound
func (h *FeeHandler) QuoteInbound(c *gin.Context) {
	var cmd application.InboundFeeQuoteCommand
	if !bindJSON(c, &cmd) {
		return
	}

	result, err := h.service.QuoteInbound(c.Request.Context(), cmd)
	if err != nil {
		middleware.RespondWithError(c, h.logger, err)
		return
	}

	ok(c, result)
}
