package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/api"
	"github.com/wms-platform/fulfillment-service/internal/application"
	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/contracts/openapi"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
)

const merchantID = "merchant-1"

type testServer struct {
	router    *gin.Engine
	contract  *openapi.Validator
	inventory *memoryInventory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	contract, err := openapi.NewValidator(api.OpenAPI)
	require.NoError(t, err)

	inventory := &memoryInventory{records: make(map[domain.InventoryKey]domain.InventoryRecord)}
	logger := logging.NewNop()
	deps := application.Dependencies{
		Products:  &memoryProducts{products: make(map[string]domain.Product)},
		Inventory: inventory,
		Orders:    &memoryOrders{orders: make(map[string]domain.Order)},
		Inbound:   &memoryInbound{requests: make(map[string]domain.InboundRequest)},
		Logger:    logger,
		Metrics:   metrics.New(metrics.DefaultConfig("test")),
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("fulfillment-service", logger))
	router.Use(middleware.OpenAPIValidation(contract))
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Products:  NewProductHandler(application.NewProductService(deps), logger),
		Fees:      NewFeeHandler(application.NewFeeService(deps), logger),
		Inventory: NewInventoryHandler(application.NewInventoryService(deps), logger),
		Orders:    NewOrderHandler(application.NewOrderService(deps), logger),
		Inbound:   NewInboundHandler(application.NewInboundService(deps), logger),
	})

	return &testServer{router: router, contract: contract, inventory: inventory}
}

// do serves the request and checks the response against the HTTP contract
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	contractReq := httptest.NewRequest(method, path, nil)
	assert.NoError(t, s.contract.ValidateResponse(context.Background(), contractReq, rec.Code, rec.Header(), rec.Body.Bytes()),
		"%s %s returned a response outside the contract: %s", method, path, rec.Body.String())
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.APIErrorResponse {
	t.Helper()
	var resp middleware.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) createProduct(t *testing.T, packingType string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/products", gin.H{
		"merchantId":  merchantID,
		"name":        "Ceramic mug",
		"weightKg":    1.2,
		"lengthCm":    20,
		"breadthCm":   10,
		"heightCm":    10,
		"packingType": packingType,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData(t, rec)["productId"].(string)
}

func (s *testServer) stock(t *testing.T, productID string, quantity int) {
	t.Helper()
	rec := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/inventory/%s/%s", merchantID, productID), gin.H{"quantity": quantity})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) quantity(productID string) int {
	r, _ := s.inventory.FindByKey(context.Background(), productID, merchantID)
	if r == nil {
		return 0
	}
	return r.Quantity
}

func TestProductHandlers(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "fragile")

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fragile", decodeData(t, rec)["packingType"])

	rec = s.do(t, http.MethodPut, "/api/v1/products/"+productID, gin.H{
		"name":     "Steel mug",
		"weightKg": 0.4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	product := decodeData(t, rec)
	assert.Equal(t, "Steel mug", product["name"])
	assert.Equal(t, "normal", product["packingType"])

	rec = s.do(t, http.MethodGet, "/api/v1/products/"+productID+"/fees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fees := decodeData(t, rec)
	assert.Equal(t, 0.4, fees["billableWeightKg"])
	assert.Equal(t, 7.0, fees["components"].(map[string]any)["packing"])

	rec = s.do(t, http.MethodGet, "/api/v1/products?merchantId="+merchantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decodeData(t, rec)["total"])
}

func TestProductHandlers_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "unknown product",
			method: http.MethodGet,
			path:   "/api/v1/products/PRD-missing",
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "negative weight",
			method: http.MethodPost,
			path:   "/api/v1/products",
			body:   gin.H{"merchantId": merchantID, "weightKg": -1},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "unknown packing type",
			method: http.MethodPost,
			path:   "/api/v1/products",
			body:   gin.H{"merchantId": merchantID, "packingType": "bubble"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "list without merchant",
			method: http.MethodGet,
			path:   "/api/v1/products",
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestFeeHandlers(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		body gin.H
		fee  float64
	}{
		{
			name: "normal dispatch",
			path: "/api/v1/fees/dispatch",
			body: gin.H{"actualWeightKg": 1.2, "lengthCm": 20, "breadthCm": 10, "heightCm": 10},
			fee:  11,
		},
		{
			name: "fragile dispatch at volumetric weight",
			path: "/api/v1/fees/dispatch",
			body: gin.H{"actualWeightKg": 0.2, "lengthCm": 50, "breadthCm": 10, "heightCm": 10, "packingType": "fragile"},
			fee:  15,
		},
		{
			name: "inbound",
			path: "/api/v1/fees/inbound",
			body: gin.H{"actualWeightKg": 1.2},
			fee:  15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.fee, decodeData(t, rec)["fee"])
		})
	}
}

func TestOrderHandlers_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")
	s.stock(t, productID, 5)

	rec := s.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"merchantId": merchantID,
		"items":      []gin.H{{"productId": productID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeData(t, rec)
	orderID := order["orderId"].(string)
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, 14.0, order["price"])

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/pack", gin.H{
		"packedWeightKg": 1.5,
		"boxFee":         10,
		"boxCutting":     true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "packed", decodeData(t, rec)["to"])
	assert.Equal(t, 5, s.quantity(productID))

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/dispatch", gin.H{"trackingCode": "TRK-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	transition := decodeData(t, rec)
	assert.Equal(t, "dispatched", transition["to"])
	// 2 x 11 per item, box 10, cutting 2, tracking 3
	assert.Equal(t, 37.0, transition["order"].(map[string]any)["packingFee"])
	assert.Len(t, transition["movements"], 1)
	assert.Equal(t, 3, s.quantity(productID))

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/deliver", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "delivered", decodeData(t, rec)["to"])

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+orderID+"/fees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 37.0, decodeData(t, rec)["breakdown"].(map[string]any)["total"])

	rec = s.do(t, http.MethodGet, "/api/v1/orders?merchantId="+merchantID+"&status=delivered", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decodeData(t, rec)["total"])
}

func TestOrderHandlers_DispatchInsufficientStock(t *testing.T) {
	s := newTestServer(t)
	first := s.createProduct(t, "normal")
	second := s.createProduct(t, "normal")
	s.stock(t, first, 1)
	s.stock(t, second, 10)

	rec := s.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"merchantId": merchantID,
		"items": []gin.H{
			{"productId": first, "quantity": 3},
			{"productId": second, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeData(t, rec)["orderId"].(string)

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/pack", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/dispatch", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", apiErr.Code)
	require.Len(t, apiErr.Violations, 1)
	assert.Equal(t, first, apiErr.Violations[0].ProductID)
	assert.Equal(t, 3, apiErr.Violations[0].Requested)
	assert.Equal(t, 1, apiErr.Violations[0].Available)

	// all or nothing
	assert.Equal(t, 1, s.quantity(first))
	assert.Equal(t, 10, s.quantity(second))

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+orderID, nil)
	assert.Equal(t, "packed", decodeData(t, rec)["status"])
}

func TestOrderHandlers_InvalidTransitions(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/orders", gin.H{
		"merchantId": merchantID,
		"items":      []gin.H{{"productId": "PRD-1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeData(t, rec)["orderId"].(string)

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/deliver", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", gin.H{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code)
	order := decodeData(t, rec)["order"].(map[string]any)
	assert.Equal(t, "cancelled", order["status"])
	assert.Equal(t, "duplicate", order["cancelReason"])

	rec = s.do(t, http.MethodPut, "/api/v1/orders/"+orderID+"/items", gin.H{
		"items": []gin.H{{"productId": "PRD-1", "quantity": 2}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/orders/ORD-missing/pack", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandlers_CreateOrderValidation(t *testing.T) {
	s := newTestServer(t)

	for name, body := range map[string]gin.H{
		"no items":      {"merchantId": merchantID, "items": []gin.H{}},
		"zero quantity": {"merchantId": merchantID, "items": []gin.H{{"productId": "PRD-1", "quantity": 0}}},
		"bad merchant":  {"merchantId": "merchant 1", "items": []gin.H{{"productId": "PRD-1", "quantity": 1}}},
	} {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/orders", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
		})
	}
}

func TestReturnHandler(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")
	s.stock(t, productID, 2)

	rec := s.do(t, http.MethodPost, "/api/v1/returns", gin.H{
		"merchantId": merchantID,
		"returnType": "RTO",
		"items":      []gin.H{{"productId": productID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "return", decodeData(t, rec)["to"])
	assert.Equal(t, 5, s.quantity(productID))

	rec = s.do(t, http.MethodPost, "/api/v1/returns", gin.H{
		"merchantId": merchantID,
		"returnType": "Damaged",
		"items":      []gin.H{{"productId": productID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 5, s.quantity(productID))

	rec = s.do(t, http.MethodPost, "/api/v1/returns", gin.H{
		"merchantId": merchantID,
		"returnType": "Lost",
		"items":      []gin.H{{"productId": productID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryHandlers(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")
	s.stock(t, productID, 4)

	path := fmt.Sprintf("/api/v1/inventory/%s/%s", merchantID, productID)
	rec := s.do(t, http.MethodPut, path+"/thresholds", gin.H{"minStockLevel": 5, "maxStockLevel": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeData(t, rec)["lowStock"])

	rec = s.do(t, http.MethodPut, path+"/thresholds", gin.H{"minStockLevel": 10, "maxStockLevel": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, decodeData(t, rec)["quantity"])

	rec = s.do(t, http.MethodGet, "/api/v1/inventory?merchantId="+merchantID+"&lowStock=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData(t, rec)["items"], 1)

	rec = s.do(t, http.MethodGet, "/api/v1/inventory?merchantId="+merchantID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decodeData(t, rec)["total"])

	rec = s.do(t, http.MethodPut, path, gin.H{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/%s/PRD-missing", merchantID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInventoryHandlers_ForeignProduct(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")

	rec := s.do(t, http.MethodPut, "/api/v1/inventory/merchant-2/"+productID, gin.H{"quantity": 3})
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Less(t, rec.Code, http.StatusInternalServerError)
	assert.Equal(t, 0, s.quantity(productID))
}

func TestInboundHandlers_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")

	rec := s.do(t, http.MethodPost, "/api/v1/inbound-requests", gin.H{
		"merchantId": merchantID,
		"type":       "inbound",
		"items":      []gin.H{{"productId": productID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decodeData(t, rec)
	requestID := req["requestId"].(string)
	assert.Equal(t, "pending", req["status"])
	// 4 x 1.2 kg = 4.8 kg, 10 steps of 0.5 kg
	assert.InDelta(t, 4.8, req["totalWeightKg"], 1e-9)
	assert.Equal(t, 50.0, req["fee"])

	base := "/api/v1/inbound-requests/" + requestID

	rec = s.do(t, http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for action, status := range map[string]string{"initiate-pickup": "initiated_pickup", "pick-up": "picked_up"} {
		rec = s.do(t, http.MethodPost, base+"/"+action, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, status, decodeData(t, rec)["to"])
	}
	assert.Equal(t, 0, s.quantity(productID))

	rec = s.do(t, http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decodeData(t, rec)["to"])
	assert.Equal(t, 4, s.quantity(productID))

	rec = s.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeData(t, rec)["alreadyCompleted"])
	assert.Equal(t, 4, s.quantity(productID))

	rec = s.do(t, http.MethodGet, "/api/v1/inbound-requests?merchantId="+merchantID+"&status=completed&type=inbound", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decodeData(t, rec)["total"])
}

func TestInboundHandlers_Cancel(t *testing.T) {
	s := newTestServer(t)
	productID := s.createProduct(t, "normal")

	rec := s.do(t, http.MethodPost, "/api/v1/inbound-requests", gin.H{
		"merchantId": merchantID,
		"type":       "outbound",
		"items":      []gin.H{{"productId": productID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	req := decodeData(t, rec)
	assert.Equal(t, 0.0, req["fee"])

	rec = s.do(t, http.MethodPost, "/api/v1/inbound-requests/"+req["requestId"].(string)+"/cancel", gin.H{"reason": "merchant withdrew"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	transition := decodeData(t, rec)
	assert.Equal(t, "cancelled", transition["to"])
	assert.Equal(t, "merchant withdrew", transition["request"].(map[string]any)["cancelReason"])

	rec = s.do(t, http.MethodGet, "/api/v1/inbound-requests/INB-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
