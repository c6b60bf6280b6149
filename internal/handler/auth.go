package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type AuthHandler struct {
	authService service.IAuthService
}

func NewAuthHandler(authService service.IAuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req service.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.authService.IssueToken(c.Request.Context(), &req)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh with the current token as bearer.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
		return
	}

	resp, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondAuthError reports credential failures as 401 rather than 403.
func respondAuthError(c *gin.Context, err error) {
	switch err {
	case service.ErrInvalidCredentials, service.ErrInvalidToken:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		respondError(c, err)
	}
}
