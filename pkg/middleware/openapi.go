package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// RequestValidator validates an incoming request against an API contract
type RequestValidator interface {
	ValidateRequest(ctx context.Context, req *http.Request) error
}

// OpenAPIValidation rejects requests that do not match the API contract with
// 400 VALIDATION_ERROR. Requests for undocumented routes pass through so the
// router answers them.
func OpenAPIValidation(validator RequestValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := validator.ValidateRequest(c.Request.Context(), c.Request)
		if err == nil {
			c.Next()
			return
		}

		if stderrors.Is(err, routers.ErrPathNotFound) || stderrors.Is(err, routers.ErrMethodNotAllowed) {
			c.Next()
			return
		}

		AbortWithAppError(c, errors.ErrValidation("request does not match the API contract").
			WithDetail("contract", err.Error()))
	}
}
