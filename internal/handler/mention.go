package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type MentionHandler struct {
	mentionService service.MentionService
	broadcaster    *service.Broadcaster
}

func NewMentionHandler(mentionService service.MentionService, broadcaster *service.Broadcaster) *MentionHandler {
	return &MentionHandler{mentionService: mentionService, broadcaster: broadcaster}
}

type registerMentionRequest struct {
	User      int64  `json:"user" binding:"required"`
	Identity  int64  `json:"identity"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Register handles POST /chats/:chat/mentions
func (h *MentionHandler) Register(c *gin.Context) {
	chat, ok := paramInt64(c, "chat")
	if !ok {
		return
	}
	var req registerMentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Identity == 0 {
		req.Identity = req.User
	}

	err := h.mentionService.Register(c.Request.Context(), chat, req.User, req.Identity, req.Username, req.FirstName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Members handles GET /chats/:chat/mentions
func (h *MentionHandler) Members(c *gin.Context) {
	chat, ok := paramInt64(c, "chat")
	if !ok {
		return
	}

	members, err := h.mentionService.Members(c.Request.Context(), chat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// IsRegistered handles GET /chats/:chat/mentions/:user
func (h *MentionHandler) IsRegistered(c *gin.Context) {
	chat, ok := paramInt64(c, "chat")
	if !ok {
		return
	}
	user, ok := paramInt64(c, "user")
	if !ok {
		return
	}

	registered, err := h.mentionService.IsRegistered(c.Request.Context(), chat, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

type broadcastRequest struct {
	Caller service.Mentionee `json:"caller"`
	Text   string            `json:"text"`
}

// Broadcast handles POST /chats/:chat/broadcasts
func (h *MentionHandler) Broadcast(c *gin.Context) {
	chat, ok := paramInt64(c, "chat")
	if !ok {
		return
	}
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Caller.Identity == 0 {
		badRequest(c, "caller identity is required")
		return
	}

	out, err := h.broadcaster.Broadcast(c.Request.Context(), chat, req.Caller, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
