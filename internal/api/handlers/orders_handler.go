package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/models"
	"example.com/cloudkitchen/services/ordering/internal/services"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
)

// OrdersHandler serves the order listing, history search, stock review and
// catalog maintenance screens.
type OrdersHandler struct {
	ordering *services.OrderingService
	tracer   tracing.Tracer
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(ordering *services.OrderingService, tracer tracing.Tracer) *OrdersHandler {
	return &OrdersHandler{
		ordering: ordering,
		tracer:   tracer,
	}
}

// UpdateAssemblyRequest carries edited catalog rows.
type UpdateAssemblyRequest struct {
	CloudKitchenID int                  `json:"cloudKitchenId" binding:"required"`
	Items          []models.CatalogItem `json:"items" binding:"required,min=1"`
}

// HandleListOrders lists orders by status class, "A" (active, default) or
// "D" (delivered).
func (h *OrdersHandler) HandleListOrders(c *gin.Context) {
	statusClass := c.DefaultQuery("status", "A")
	if statusClass != "A" && statusClass != "D" {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "status must be A or D"})
		return
	}

	orders, err := h.ordering.ListOrders(c, statusClass)
	if err != nil {
		log.Error().Err(err).Str("status", statusClass).Msg("Failed to list orders")
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

// HandleSearchOrders searches the indexed order history for one kitchen.
func (h *OrdersHandler) HandleSearchOrders(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-search-orders")
	defer h.tracer.EndTransaction(txn)

	kitchenID, err := strconv.Atoi(c.Query("kitchenId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "kitchenId is required"})
		return
	}

	docs, err := h.ordering.SearchOrderHistory(c, kitchenID, c.Query("q"))
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	respondOK(c, docs)
}

// HandleGetCatalog returns the kitchen's assembly item catalog.
func (h *OrdersHandler) HandleGetCatalog(c *gin.Context) {
	kitchenID, err := strconv.Atoi(c.Param("kitchenId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "invalid kitchen id"})
		return
	}

	catalog, err := h.ordering.Catalog(c, kitchenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, catalog)
}

// HandleUpdateAssemblyItems pushes edited storage type and capacity details
// for catalog items.
func (h *OrdersHandler) HandleUpdateAssemblyItems(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-assembly-items")
	defer h.tracer.EndTransaction(txn)

	var req UpdateAssemblyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}

	if err := h.ordering.UpdateAssemblyItems(c, req.CloudKitchenID, req.Items); err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": len(req.Items)})
}

// HandleGetStock returns the latest uploaded stock count for review.
func (h *OrdersHandler) HandleGetStock(c *gin.Context) {
	kitchenID, err := strconv.Atoi(c.Param("kitchenId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "invalid kitchen id"})
		return
	}

	data, err := h.ordering.StockData(c, kitchenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, data)
}

// HandleSaveStock persists reviewed stock rows.
func (h *OrdersHandler) HandleSaveStock(c *gin.Context) {
	var req client.StockSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}

	if err := h.ordering.SaveStockData(c, req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"saved": len(req.DataValue)})
}

// RegisterRoutes registers the handler's routes
func (h *OrdersHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/orders", h.HandleListOrders)
	router.GET("/orders/search", h.HandleSearchOrders)
	router.GET("/catalog/:kitchenId", h.HandleGetCatalog)
	router.POST("/assembly-items", h.HandleUpdateAssemblyItems)
	router.GET("/stock/:kitchenId", h.HandleGetStock)
	router.POST("/stock", h.HandleSaveStock)
}
