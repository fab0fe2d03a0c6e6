package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jdsmith2004/stockroom/internal/repository"
	"github.com/jdsmith2004/stockroom/internal/service/audit"
	"github.com/jdsmith2004/stockroom/internal/service/ledger"
	"github.com/jdsmith2004/stockroom/internal/service/query"
)

// InventoryHandler adapts the ledger and query services to HTTP.
type InventoryHandler struct {
	ledger   *ledger.Service
	querySvc *query.Service
	logger   *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(ledgerSvc *ledger.Service, querySvc *query.Service, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{ledger: ledgerSvc, querySvc: querySvc, logger: logger}
}

type createItemRequest struct {
	Name    string          `json:"name" binding:"required"`
	Price   decimal.Decimal `json:"price"`
	Popular bool            `json:"popular"`
	Qty     int64           `json:"qty"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// Create handles POST /items.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.ledger.CreateItem(c.Request.Context(), req.Name, req.Price, req.Qty, req.Popular)
	if err != nil && !errors.Is(err, audit.ErrLogWriteFailed) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationBody(item, err))
}

// Add handles POST /items/:name/add.
func (h *InventoryHandler) Add(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.ledger.AddQuantity(c.Request.Context(), c.Param("name"), req.Amount)
	if err != nil && !errors.Is(err, audit.ErrLogWriteFailed) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationBody(item, err))
}

// Use handles POST /items/:name/use.
func (h *InventoryHandler) Use(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.ledger.UseQuantity(c.Request.Context(), c.Param("name"), req.Amount)
	if err != nil && !errors.Is(err, audit.ErrLogWriteFailed) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationBody(item, err))
}

// Delete handles DELETE /items/:name.
func (h *InventoryHandler) Delete(c *gin.Context) {
	err := h.ledger.DeleteItem(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, audit.ErrLogWriteFailed) {
			c.JSON(http.StatusOK, gin.H{"warning": err.Error()})
			return
		}
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get handles GET /items/:name.
func (h *InventoryHandler) Get(c *gin.Context) {
	item, err := h.ledger.GetItem(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Search handles GET /items?filter=...
func (h *InventoryHandler) Search(c *gin.Context) {
	items, err := h.querySvc.SearchAll(c.Request.Context(), c.Query("filter"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// mutationBody attaches the audit warning to an otherwise successful outcome,
// so callers can tell the trail is incomplete without losing the result.
func mutationBody(item any, err error) gin.H {
	body := gin.H{"item": item}
	if err != nil {
		body["warning"] = err.Error()
	}
	return body
}

func (h *InventoryHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyExists), errors.Is(err, ledger.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidName), errors.Is(err, query.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrContention), errors.Is(err, repository.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.logger.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
