package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type TeamHandler struct {
	teamService   service.ITeamService
	digestService service.IDigestService
}

func NewTeamHandler(teamService service.ITeamService, digestService service.IDigestService) *TeamHandler {
	return &TeamHandler{teamService: teamService, digestService: digestService}
}

// Create handles POST /teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req service.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

type addMemberRequest struct {
	Actor  int64  `json:"actor" binding:"required"`
	Member int64  `json:"member" binding:"required"`
	Role   string `json:"role"`
}

// AddMember handles POST /teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.teamService.AddMember(c.Request.Context(), id, req.Actor, req.Member, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Members handles GET /teams/:id/members
func (h *TeamHandler) Members(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	members, err := h.teamService.Members(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// TeamsOf handles GET /users/:identity/teams
func (h *TeamHandler) TeamsOf(c *gin.Context) {
	identity, ok := paramInt64(c, "identity")
	if !ok {
		return
	}

	teams, err := h.teamService.TeamsOf(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

type motivateRequest struct {
	Actor    int64  `json:"actor" binding:"required"`
	Category string `json:"category"`
}

// Motivate handles POST /teams/:id/motivate
func (h *TeamHandler) Motivate(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req motivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sent, err := h.digestService.Motivate(c.Request.Context(), req.Actor, id, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
