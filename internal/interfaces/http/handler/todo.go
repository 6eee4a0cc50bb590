package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/cartbridge/backend/internal/application/shoppinglist"
	"github.com/cartbridge/backend/internal/interfaces/http/dto"
)

// TodoHandler exposes an account's shopping cart as a to-do list
type TodoHandler struct {
	BaseHandler
	service *shoppinglist.Service
}

// NewTodoHandler creates a new TodoHandler
func NewTodoHandler(service *shoppinglist.Service) *TodoHandler {
	return &TodoHandler{service: service}
}

// CreateTodoItemRequest adds an entry to the list. Product and quantity
// may be given explicitly or recovered from the summary and description
// text.
type CreateTodoItemRequest struct {
	Summary     string           `json:"summary" binding:"required,max=255"`
	Description string           `json:"description" binding:"omitempty,max=2000"`
	ProductID   string           `json:"product_id" binding:"omitempty,numeric"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"omitempty"`
	Unit        string           `json:"unit" binding:"omitempty,max=16"`
	Measurement string           `json:"measurement_type" binding:"omitempty,oneof=piece weight volume"`
}

// UpdateTodoItemRequest edits an entry. Setting status to completed
// removes the cart line.
type UpdateTodoItemRequest struct {
	Summary     string           `json:"summary" binding:"omitempty,max=255"`
	Description string           `json:"description" binding:"omitempty,max=2000"`
	Status      string           `json:"status" binding:"omitempty,oneof=needs_action completed"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"omitempty"`
	Unit        string           `json:"unit" binding:"omitempty,max=16"`
	Measurement string           `json:"measurement_type" binding:"omitempty,oneof=piece weight volume"`
}

// SetQuantityTodoRequest changes only the quantity of an entry.
type SetQuantityTodoRequest struct {
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Unit        string          `json:"unit" binding:"omitempty,max=16"`
	Measurement string          `json:"measurement_type" binding:"omitempty,oneof=piece weight volume"`
}

// List returns the account's cart as to-do entries
func (h *TodoHandler) List(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	items, err := h.service.ListItems(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Create adds a product to the cart
func (h *TodoHandler) Create(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	var req CreateTodoItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Quantity != nil && !req.Quantity.IsPositive() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "quantity must be positive")
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), id, shoppinglist.CreateItemRequest{
		Summary:     req.Summary,
		Description: req.Description,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Measurement: req.Measurement,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Update edits an entry, or removes it when status is completed
func (h *TodoHandler) Update(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}
	uid := c.Param("uid")
	if uid == "" {
		h.BadRequest(c, "Item uid is required")
		return
	}

	var req UpdateTodoItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Quantity != nil && !req.Quantity.IsPositive() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "quantity must be positive")
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), id, shoppinglist.UpdateItemRequest{
		UID:         uid,
		Summary:     req.Summary,
		Description: req.Description,
		Status:      shoppinglist.TodoStatus(req.Status),
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Measurement: req.Measurement,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// SetQuantity changes the quantity of an entry
func (h *TodoHandler) SetQuantity(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}
	uid := c.Param("uid")
	if uid == "" {
		h.BadRequest(c, "Item uid is required")
		return
	}

	var req SetQuantityTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if !req.Quantity.IsPositive() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "quantity must be positive")
		return
	}

	item, err := h.service.SetQuantity(c.Request.Context(), id, shoppinglist.SetQuantityRequest{
		UID:         uid,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Measurement: req.Measurement,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// Delete removes an entry from the cart
func (h *TodoHandler) Delete(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}
	uid := c.Param("uid")
	if uid == "" {
		h.BadRequest(c, "Item uid is required")
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), id, uid); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Search queries the retailer catalog
func (h *TodoHandler) Search(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		h.ErrorWithCode(c, dto.ErrCodeValidationRequired, "query is required")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "limit must be a non-negative integer")
			return
		}
	}

	results, err := h.service.SearchProducts(c.Request.Context(), id, query, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}
