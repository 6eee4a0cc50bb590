package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/cartbridge/backend/internal/infrastructure/auth"
	"github.com/cartbridge/backend/internal/interfaces/http/dto"
)

// AuthHandler exchanges the configured API key for bearer tokens
type AuthHandler struct {
	BaseHandler
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

// TokenRequest is the API-key exchange payload
type TokenRequest struct {
	APIKey     string `json:"api_key" binding:"required"`
	ClientName string `json:"client_name" binding:"omitempty,max=64"`
}

// TokenResponse carries the issued bearer token
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"`
}

// Token exchanges a valid API key for a short-lived JWT
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "api_key is required")
		return
	}

	token, err := h.jwtService.Exchange(req.APIKey, req.ClientName)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidAPIKey) {
			h.Error(c, dto.GetHTTPStatus(dto.ErrCodeUnauthorized), dto.ErrCodeUnauthorized, "Invalid API key")
			return
		}
		h.InternalError(c, "Failed to issue token")
		return
	}

	h.Success(c, TokenResponse{
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresAt: token.ExpiresAt.Unix(),
	})
}
