package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"example.com/cloudkitchen/services/ordering/internal/adjust"
	"example.com/cloudkitchen/services/ordering/internal/models"
	"example.com/cloudkitchen/services/ordering/internal/services"
	"example.com/cloudkitchen/services/ordering/internal/store"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
	"example.com/cloudkitchen/services/ordering/internal/view"
)

// OrderingHandler handles the interactive ordering endpoints
type OrderingHandler struct {
	ordering *services.OrderingService
	tracer   tracing.Tracer
}

// NewOrderingHandler creates a new ordering handler
func NewOrderingHandler(ordering *services.OrderingService, tracer tracing.Tracer) *OrderingHandler {
	return &OrderingHandler{
		ordering: ordering,
		tracer:   tracer,
	}
}

// StartSessionRequest opens an ordering session for a kitchen with one or
// more delivery-date configurations.
type StartSessionRequest struct {
	CloudKitchenID     int                       `json:"cloudKitchenId" binding:"required"`
	Groups             []models.GroupConfig      `json:"groups" binding:"required,min=1"`
	ConsolidationRules []store.ConsolidationRule `json:"consolidationRules"`
}

// QuantityRequest carries a direct quantity edit.
type QuantityRequest struct {
	Qty int `json:"qty"`
}

// StorageTypeRequest reclassifies an item's storage.
type StorageTypeRequest struct {
	StorageType models.StorageType `json:"storageType" binding:"required"`
}

// MoveRequest names the destination group of a move. A negative destination
// on a checked-subset move means "the other group" in two-group layouts.
type MoveRequest struct {
	ToGroup int `json:"toGroup"`
}

// CheckRequest sets the checkbox state of the visible subset.
type CheckRequest struct {
	Checked bool             `json:"checked"`
	Filter  view.FilterState `json:"filter"`
}

// AdjustRequest is one bulk arithmetic edit.
type AdjustRequest struct {
	Operator    adjust.Operator    `json:"operator" binding:"required"`
	Magnitude   float64            `json:"magnitude" binding:"required"`
	Mode        adjust.Mode        `json:"mode"`
	StorageType models.StorageType `json:"storageType"`
	Source      string             `json:"source"`
}

// AddItemRequest adds a catalog item to a group.
type AddItemRequest struct {
	ItemCode int `json:"itemCode" binding:"required"`
	MeasCode int `json:"measCode" binding:"required"`
}

// HandleStartSession opens a session and fetches every group concurrently.
func (h *OrderingHandler) HandleStartSession(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-start-session")
	defer h.tracer.EndTransaction(txn)

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "kitchen_id", req.CloudKitchenID)
	h.tracer.AddAttribute(txn, "groups", len(req.Groups))

	sess, err := h.ordering.StartSession(c, req.CloudKitchenID, req.Groups, req.ConsolidationRules)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ordering session")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Status: true, Object: sess})
}

// HandleBuildCart resolves the session's primary items into assembly rows.
func (h *OrderingHandler) HandleBuildCart(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-build-cart")
	defer h.tracer.EndTransaction(txn)

	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	sess, err := h.ordering.BuildCart(c, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build cart")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleGetSession returns the session's full state.
func (h *OrderingHandler) HandleGetSession(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	sess, err := h.ordering.Get(c, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleVisibleItems returns one group's rows through the active filter,
// together with the header checkbox state for that subset.
func (h *OrderingHandler) HandleVisibleItems(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	fs := filterFromQuery(c)
	items, err := h.ordering.Visible(c, sessionID, group, fs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"items":      items,
		"allChecked": view.AllChecked(items),
	})
}

// HandleAddItem adds a catalog item to the group with zero quantities.
func (h *OrderingHandler) HandleAddItem(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}

	sess, err := h.ordering.AddCatalogItem(c, sessionID, group, req.ItemCode, req.MeasCode)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleDeleteItem removes one item. Unknown ids are a silent no-op.
func (h *OrderingHandler) HandleDeleteItem(c *gin.Context) {
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.DeleteItem(group, itemID)
	})
}

// HandleToggleItem flips one item's checkbox.
func (h *OrderingHandler) HandleToggleItem(c *gin.Context) {
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.ToggleItem(group, itemID)
	})
}

// HandleUpdateQuantity sets one item's requested quantity.
func (h *OrderingHandler) HandleUpdateQuantity(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.UpdateReqQty(group, itemID, req.Qty)
	})
}

// HandleSetStorageType reclassifies one item's storage.
func (h *OrderingHandler) HandleSetStorageType(c *gin.Context) {
	var req StorageTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.SetStorageType(group, itemID, req.StorageType)
	})
}

// HandleSetMaxQty updates one item's capacity ceiling.
func (h *OrderingHandler) HandleSetMaxQty(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.SetMaxQty(group, itemID, req.Qty)
	})
}

// HandleMoveItem moves one item into another delivery group.
func (h *OrderingHandler) HandleMoveItem(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	h.mutateWithItem(c, func(st store.State, group, itemID int) (store.State, error) {
		return st.MoveItem(group, req.ToGroup, itemID)
	})
}

// HandleCheckAll sets the checkbox state of exactly the visible subset.
func (h *OrderingHandler) HandleCheckAll(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}

	sess, err := h.ordering.SetVisibleChecked(c, sessionID, group, req.Filter, req.Checked)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleDeleteChecked removes the checked subset of a group.
func (h *OrderingHandler) HandleDeleteChecked(c *gin.Context) {
	h.mutateGroup(c, func(st store.State, group int) (store.State, error) {
		return st.DeleteChecked(group)
	})
}

// HandleMoveChecked moves the checked subset into the destination group.
func (h *OrderingHandler) HandleMoveChecked(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	h.mutateGroup(c, func(st store.State, group int) (store.State, error) {
		return st.MoveChecked(group, req.ToGroup)
	})
}

// HandleAdjustChecked applies a bulk arithmetic edit to the checked subset.
func (h *OrderingHandler) HandleAdjustChecked(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: err.Error()})
		return
	}
	if req.Mode == "" {
		req.Mode = adjust.ModePercent
	}

	sess, err := h.ordering.AdjustChecked(c, sessionID, group, req.Operator, req.Magnitude, req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleAdjustStorage applies a percentage edit to one storage classification
// within a group.
func (h *OrderingHandler) HandleAdjustStorage(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StorageType == "" {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "operator, magnitude and storageType are required"})
		return
	}

	sess, err := h.ordering.AdjustByStorageType(c, sessionID, group, req.StorageType, req.Operator, req.Magnitude)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleAdjustSource applies a percentage edit across all groups by demand
// source tag.
func (h *OrderingHandler) HandleAdjustSource(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Source == "" {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "operator, magnitude and source are required"})
		return
	}

	sess, err := h.ordering.AdjustBySource(c, sessionID, req.Source, req.Operator, req.Magnitude)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// HandleSubmit places an order containing the group's dirty rows.
func (h *OrderingHandler) HandleSubmit(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-submit-order")
	defer h.tracer.EndTransaction(txn)

	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}

	order, err := h.ordering.Submit(c, sessionID, group)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Status: true, Message: "Order placed", Object: order})
}

func (h *OrderingHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderingHandler) groupIndex(c *gin.Context) (int, bool) {
	group, err := strconv.Atoi(c.Param("group"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "invalid group index"})
		return 0, false
	}
	return group, true
}

func (h *OrderingHandler) itemID(c *gin.Context) (int, bool) {
	itemID, err := strconv.Atoi(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Status: false, Message: "invalid item id"})
		return 0, false
	}
	return itemID, true
}

func (h *OrderingHandler) mutateGroup(c *gin.Context, fn func(store.State, int) (store.State, error)) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}
	sess, err := h.ordering.Mutate(c, sessionID, func(st store.State) (store.State, error) {
		return fn(st, group)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

func (h *OrderingHandler) mutateWithItem(c *gin.Context, fn func(store.State, int, int) (store.State, error)) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	group, ok := h.groupIndex(c)
	if !ok {
		return
	}
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}
	sess, err := h.ordering.Mutate(c, sessionID, func(st store.State) (store.State, error) {
		return fn(st, group, itemID)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sess)
}

// filterFromQuery builds the per-group filter from query parameters.
func filterFromQuery(c *gin.Context) view.FilterState {
	fs := view.FilterState{
		Search: c.Query("search"),
		Toggle: view.Toggle(c.Query("toggle")),
	}
	if op := c.Query("qtyOp"); op != "" {
		threshold, err := strconv.Atoi(c.Query("qtyThreshold"))
		if err == nil {
			fs.Qty = &view.QtyFilter{Op: view.CmpOp(op), Threshold: threshold}
		}
	}
	return fs
}

// RegisterRoutes registers the handler's routes
func (h *OrderingHandler) RegisterRoutes(router *gin.Engine) {
	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.HandleStartSession)
		sessions.GET("/:id", h.HandleGetSession)
		sessions.POST("/:id/cart", h.HandleBuildCart)
		sessions.POST("/:id/adjust-source", h.HandleAdjustSource)

		groups := sessions.Group("/:id/groups/:group")
		{
			groups.GET("/items", h.HandleVisibleItems)
			groups.POST("/items", h.HandleAddItem)
			groups.DELETE("/items/:itemId", h.HandleDeleteItem)
			groups.POST("/items/:itemId/toggle", h.HandleToggleItem)
			groups.PUT("/items/:itemId/quantity", h.HandleUpdateQuantity)
			groups.PUT("/items/:itemId/storage", h.HandleSetStorageType)
			groups.PUT("/items/:itemId/max-qty", h.HandleSetMaxQty)
			groups.POST("/items/:itemId/move", h.HandleMoveItem)
			groups.POST("/check-all", h.HandleCheckAll)
			groups.POST("/delete-checked", h.HandleDeleteChecked)
			groups.POST("/move-checked", h.HandleMoveChecked)
			groups.POST("/adjust", h.HandleAdjustChecked)
			groups.POST("/adjust-storage", h.HandleAdjustStorage)
			groups.POST("/submit", h.HandleSubmit)
		}
	}
}
