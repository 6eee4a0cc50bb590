package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appaccount "github.com/cartbridge/backend/internal/application/account"
	"github.com/cartbridge/backend/internal/domain/account"
)

// AccountHandler manages registered retailer accounts
type AccountHandler struct {
	BaseHandler
	service *appaccount.Service
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service *appaccount.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterAccountRequest is the account registration payload
type RegisterAccountRequest struct {
	Name     string `json:"name" binding:"omitempty,max=255"`
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
	StoreID  string `json:"store_id" binding:"omitempty,numeric"`
}

// UpdateCredentialsRequest is the credential update payload. The
// password is required because the new credentials are verified with a
// live retailer login.
type UpdateCredentialsRequest struct {
	Username string `json:"username" binding:"omitempty,max=255"`
	Password string `json:"password" binding:"required"`
	StoreID  string `json:"store_id" binding:"omitempty,numeric"`
}

// SetActiveRequest pauses or resumes an account
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AccountResponse is the public view of an account. Credentials are
// never echoed back.
type AccountResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Username          string     `json:"username"`
	StoreID           string     `json:"store_id"`
	Active            bool       `json:"active"`
	LastRefreshAt     *time.Time `json:"last_refresh_at,omitempty"`
	LastRefreshStatus string     `json:"last_refresh_status"`
	LastRefreshError  string     `json:"last_refresh_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toAccountResponse(a *account.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID.String(),
		Name:              a.Name,
		Username:          a.Username,
		StoreID:           a.StoreID,
		Active:            a.Active,
		LastRefreshAt:     a.LastRefreshAt,
		LastRefreshStatus: string(a.LastRefreshStatus),
		LastRefreshError:  a.LastRefreshError,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// Register validates credentials against the retailer and creates the
// account
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	acc, err := h.service.Register(c.Request.Context(), appaccount.RegisterRequest{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		StoreID:  req.StoreID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAccountResponse(acc))
}

// List returns every registered account
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, toAccountResponse(acc))
	}
	h.Success(c, responses)
}

// Get returns one account
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	acc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAccountResponse(acc))
}

// UpdateCredentials replaces the retailer credentials after verifying
// them with a live login
func (h *AccountHandler) UpdateCredentials(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	var req UpdateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	acc, err := h.service.UpdateCredentials(c.Request.Context(), id, appaccount.UpdateCredentialsRequest{
		Username: req.Username,
		Password: req.Password,
		StoreID:  req.StoreID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAccountResponse(acc))
}

// SetActive pauses or resumes scheduled refreshes for an account
func (h *AccountHandler) SetActive(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "active is required")
		return
	}

	acc, err := h.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAccountResponse(acc))
}

// Delete removes an account and its cached state
func (h *AccountHandler) Delete(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Refresh pulls the account's cart immediately
func (h *AccountHandler) Refresh(c *gin.Context) {
	id, err := getAccountID(c)
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	acc, err := h.service.Refresh(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAccountResponse(acc))
}
