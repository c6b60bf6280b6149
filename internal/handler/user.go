package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type UserHandler struct {
	userService  service.IUserService
	adminService service.IAdminService
}

func NewUserHandler(userService service.IUserService, adminService service.IAdminService) *UserHandler {
	return &UserHandler{userService: userService, adminService: adminService}
}

// Get handles GET /users/:identity
func (h *UserHandler) Get(c *gin.Context) {
	identity, ok := paramInt64(c, "identity")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type banRequest struct {
	Reason string     `json:"reason"`
	Until  *time.Time `json:"until"`
}

// Ban handles PUT /users/:identity/ban
func (h *UserHandler) Ban(c *gin.Context) {
	identity, ok := paramInt64(c, "identity")
	if !ok {
		return
	}
	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.userService.Ban(c.Request.Context(), identity, req.Reason, req.Until); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unban handles DELETE /users/:identity/ban
func (h *UserHandler) Unban(c *gin.Context) {
	identity, ok := paramInt64(c, "identity")
	if !ok {
		return
	}

	if err := h.userService.Unban(c.Request.Context(), identity); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Admins handles GET /admins
func (h *UserHandler) Admins(c *gin.Context) {
	admins, err := h.adminService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

type callAdminsRequest struct {
	Caller     int64  `json:"caller" binding:"required"`
	CallerName string `json:"caller_name"`
	Text       string `json:"text" binding:"required"`
}

// CallAdmins handles POST /admins/call
func (h *UserHandler) CallAdmins(c *gin.Context) {
	var req callAdminsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	reached, err := h.adminService.CallAdmins(c.Request.Context(), req.Caller, req.CallerName, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reached": reached})
}
