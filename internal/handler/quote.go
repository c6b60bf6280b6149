package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type QuoteHandler struct {
	quoteService service.IQuoteService
}

func NewQuoteHandler(quoteService service.IQuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Random handles GET /quotes/random?category=
func (h *QuoteHandler) Random(c *gin.Context) {
	quote, err := h.quoteService.Random(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// List handles GET /quotes?category=
func (h *QuoteHandler) List(c *gin.Context) {
	quotes, err := h.quoteService.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// Categories handles GET /quotes/categories
func (h *QuoteHandler) Categories(c *gin.Context) {
	categories, err := h.quoteService.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Add handles POST /quotes
func (h *QuoteHandler) Add(c *gin.Context) {
	var req service.AddQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	quote, err := h.quoteService.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// Delete handles DELETE /quotes/:id
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.quoteService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
