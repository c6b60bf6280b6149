package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type FeedbackHandler struct {
	feedbackService service.IFeedbackService
	statsService    service.IStatsService
}

func NewFeedbackHandler(feedbackService service.IFeedbackService, statsService service.IStatsService) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		statsService:    statsService,
	}
}

// Submit handles POST /messages
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.feedbackService.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

type replyRequest struct {
	Admin int64  `json:"admin" binding:"required"`
	Text  string `json:"text"`
}

// Reply handles POST /messages/:id/replies
func (h *FeedbackHandler) Reply(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	reply, err := h.feedbackService.Reply(c.Request.Context(), id, req.Admin, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// ListForUser handles GET /users/:identity/messages
func (h *FeedbackHandler) ListForUser(c *gin.Context) {
	identity, ok := paramInt64(c, "identity")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	messages, err := h.feedbackService.ListForUser(c.Request.Context(), identity, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListNew handles GET /messages/new
func (h *FeedbackHandler) ListNew(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	messages, err := h.feedbackService.ListNew(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Cleanup handles POST /messages/cleanup
func (h *FeedbackHandler) Cleanup(c *gin.Context) {
	deleted, err := h.feedbackService.CleanupExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Stats handles GET /stats?days=
func (h *FeedbackHandler) Stats(c *gin.Context) {
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}

	stats, err := h.statsService.WindowStats(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
