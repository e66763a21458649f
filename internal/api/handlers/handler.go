package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

// bindOptional binds a JSON body when one was sent; action endpoints accept
// an empty body
func bindOptional(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj any) bool {
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj any) bool {
	if appErr := middleware.BindQuery(c, obj); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return false
	}
	return true
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}
