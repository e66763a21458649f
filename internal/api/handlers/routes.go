package handlers

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP handlers of the service
type Handlers struct {
	Products  *ProductHandler
	Fees      *FeeHandler
	Inventory *InventoryHandler
	Orders    *OrderHandler
	Inbound   *InboundHandler
}

// RegisterRoutes mounts the API under v1
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers) {
	// Products
	products := v1.Group("/products")
	{
		products.POST("", h.Products.CreateProduct)
		products.GET("", h.Products.ListProducts)
		products.GET("/:productId", h.Products.GetProduct)
		products.PUT("/:productId", h.Products.UpdateProduct)
		products.GET("/:productId/fees", h.Products.GetProductFees)
	}

	// Fee quotes
	fees := v1.Group("/fees")
	{
		fees.POST("/dispatch", h.Fees.QuoteDispatch)
		fees.POST("/inbound", h.Fees.QuoteInbound)
	}

	// Inventory
	inventory := v1.Group("/inventory")
	{
		inventory.GET("", h.Inventory.ListInventory)
		inventory.GET("/:merchantId/:productId", h.Inventory.GetInventory)
		inventory.PUT("/:merchantId/:productId", h.Inventory.AdjustInventory)
		inventory.PUT("/:merchantId/:productId/thresholds", h.Inventory.SetThresholds)
	}

	// Orders
	orders := v1.Group("/orders")
	{
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:orderId", h.Orders.GetOrder)
		orders.PUT("/:orderId/items", h.Orders.ReplaceItems)
		orders.POST("/:orderId/pack", h.Orders.PackOrder)
		orders.POST("/:orderId/dispatch", h.Orders.DispatchOrder)
		orders.POST("/:orderId/deliver", h.Orders.DeliverOrder)
		orders.POST("/:orderId/cancel", h.Orders.CancelOrder)
		orders.GET("/:orderId/fees", h.Orders.GetOrderFees)
	}

	v1.POST("/returns", h.Orders.CreateReturn)

	// Inbound and outbound requests
	inbound := v1.Group("/inbound-requests")
	{
		inbound.POST("", h.Inbound.CreateRequest)
		inbound.GET("", h.Inbound.ListRequests)
		inbound.GET("/:requestId", h.Inbound.GetRequest)
		inbound.POST("/:requestId/initiate-pickup", h.Inbound.InitiatePickup)
		inbound.POST("/:requestId/pick-up", h.Inbound.MarkPickedUp)
		inbound.POST("/:requestId/complete", h.Inbound.CompleteRequest)
		inbound.POST("/:requestId/cancel", h.Inbound.CancelRequest)
	}
}
