package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

// APIErrorResponse represents a standardized error response
type APIErrorResponse struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Details    map[string]string  `json:"details,omitempty"`
	Violations []errors.Violation `json:"violations,omitempty"`
	RequestID  string             `json:"requestId,omitempty"`
	Timestamp  string             `json:"timestamp"`
	Path       string             `json:"path"`
}

func newErrorResponse(c *gin.Context, code, message string) APIErrorResponse {
	return APIErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	}
}

func responseFromAppError(c *gin.Context, appErr *errors.AppError) APIErrorResponse {
	resp := newErrorResponse(c, appErr.Code, appErr.Message)
	resp.Details = appErr.Details
	resp.Violations = appErr.Violations
	return resp
}

// ErrorHandler renders the last error attached to the context
func ErrorHandler(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := errors.MapError(c.Errors.Last().Err)
		logError(logger, c, appErr)
		c.JSON(appErr.HTTPStatus, responseFromAppError(c, appErr))
	}
}

// RespondWithError logs err and writes it using the standard envelope
func RespondWithError(c *gin.Context, logger *logging.Logger, err error) {
	appErr := errors.MapError(err)
	logError(logger, c, appErr)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		SetSpanError(c.Request.Context(), err)
	}
	AbortWithAppError(c, appErr)
}

// AbortWithError aborts the request with an error
func AbortWithError(c *gin.Context, err error) {
	AbortWithAppError(c, errors.MapError(err))
}

// AbortWithAppError aborts the request with an AppError
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, responseFromAppError(c, appErr))
}

func logError(logger *logging.Logger, c *gin.Context, appErr *errors.AppError) {
	if logger == nil {
		return
	}

	level := slog.LevelError
	if appErr.HTTPStatus < http.StatusInternalServerError {
		level = slog.LevelWarn
	}

	attrs := []any{
		"code", appErr.Code,
		"message", appErr.Message,
		"status", appErr.HTTPStatus,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"requestId", GetRequestID(c),
	}
	if appErr.Err != nil {
		attrs = append(attrs, "error", appErr.Err.Error())
	}
	if len(appErr.Details) > 0 {
		attrs = append(attrs, "details", appErr.Details)
	}
	if len(appErr.Violations) > 0 {
		attrs = append(attrs, "violations", len(appErr.Violations))
	}

	logger.Log(c.Request.Context(), level, "API error", attrs...)
}
