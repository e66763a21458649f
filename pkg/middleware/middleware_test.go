package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Setup(router, DefaultConfig("fulfillment-test", logging.NewNop()))
	return router
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	router := newTestRouter()
	var fromCtx string
	router.GET("/ping", func(c *gin.Context) {
		fromCtx = logging.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set(HeaderCorrelationID, "corr-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "corr-1", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, "corr-1", fromCtx)
}

func TestRequestID_Generated(t *testing.T) {
	router := newTestRouter()
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

func TestErrorHandler_RendersAppError(t *testing.T) {
	router := newTestRouter()
	router.POST("/orders/:id/dispatch", WrapHandler(func(c *gin.Context) error {
		return errors.ErrInsufficientStock("insufficient stock").WithViolations([]errors.Violation{
			{ProductID: "p1", MerchantID: "m1", Requested: 3, Available: 1, Message: "insufficient stock"},
		})
	}))

	req := httptest.NewRequest(http.MethodPost, "/orders/ORD-1/dispatch", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, errors.CodeInsufficientStock, resp.Code)
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, "/orders/ORD-1/dispatch", resp.Path)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "p1", resp.Violations[0].ProductID)
	assert.Equal(t, 1, resp.Violations[0].Available)
}

func TestErrorHandler_PlainErrorIsInternal(t *testing.T) {
	router := newTestRouter()
	router.GET("/boom", WrapHandler(func(c *gin.Context) error {
		return stderrors.New("connection reset")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, rec).Code)
}

func TestRecovery(t *testing.T) {
	router := newTestRouter()
	router.GET("/panic", func(c *gin.Context) { panic("bad things") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errors.CodeInternalError, decodeError(t, rec).Code)
}

func TestNoRouteAndNoMethod(t *testing.T) {
	router := newTestRouter()
	router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decodeError(t, rec).Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/orders", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig("fulfillment-test", logging.NewNop())
	cfg.CORSOrigins = []string{"https://portal.example.com"}
	router := gin.New()
	Setup(router, cfg)
	router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	preflight.Header.Set("Origin", "https://portal.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://portal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestContentType(t *testing.T) {
	router := newTestRouter()
	router.POST("/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("merchantId=m1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

type packingRequest struct {
	PackingType string `json:"packingType" binding:"packing_type"`
	ReturnType  string `json:"returnType" binding:"required,return_type"`
	Quantity    int    `json:"quantity" binding:"gt=0"`
}

func TestBindAndValidate(t *testing.T) {
	router := newTestRouter()
	router.POST("/validate", func(c *gin.Context) {
		var req packingRequest
		if appErr := BindAndValidate(c, &req); appErr != nil {
			AbortWithAppError(c, appErr)
			return
		}
		c.JSON(http.StatusOK, req)
	})

	tests := []struct {
		name   string
		body   string
		status int
		fields []string
	}{
		{name: "valid", body: `{"packingType":"fragile","returnType":"RTO","quantity":1}`, status: http.StatusOK},
		{name: "bad enums", body: `{"packingType":"glass","returnType":"Lost","quantity":1}`, status: http.StatusBadRequest, fields: []string{"packingType", "returnType"}},
		{name: "zero quantity", body: `{"returnType":"Damaged","quantity":0}`, status: http.StatusBadRequest, fields: []string{"quantity"}},
		{name: "fractional quantity", body: `{"returnType":"RTO","quantity":1.5}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if len(tt.fields) > 0 {
				resp := decodeError(t, rec)
				for _, f := range tt.fields {
					assert.Contains(t, resp.Details, f)
				}
			}
		})
	}
}

func TestReadinessCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ready := true
	router.GET("/ready", ReadinessCheck("fulfillment-test", func(_ context.Context) error {
		if !ready {
			return stderrors.New("mongo unreachable")
		}
		return nil
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	ready = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "mongo unreachable")
}

type fakeRequestValidator struct{ err error }

func (v fakeRequestValidator) ValidateRequest(context.Context, *http.Request) error { return v.err }

func TestOpenAPIValidation(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "valid", status: http.StatusOK},
		{name: "undocumented route passes", err: fmt.Errorf("lookup: %w", routers.ErrPathNotFound), status: http.StatusOK},
		{name: "contract violation", err: stderrors.New("property \"quantity\" is missing"), status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter()
			router.Use(OpenAPIValidation(fakeRequestValidator{err: tt.err}))
			router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusBadRequest {
				resp := decodeError(t, rec)
				assert.Equal(t, "VALIDATION_ERROR", resp.Code)
				assert.Contains(t, resp.Details["contract"], "quantity")
			}
		})
	}
}
