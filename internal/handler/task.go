package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/FeedbackBot/internal/service"
)

type TaskHandler struct {
	taskService service.ITaskService
}

func NewTaskHandler(taskService service.ITaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Get handles GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type assignRequest struct {
	Assignee int64 `json:"assignee" binding:"required"`
}

// Assign handles PUT /tasks/:id/assignee
func (h *TaskHandler) Assign(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.taskService.Assign(c.Request.Context(), id, req.Assignee); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Actor  int64  `json:"actor" binding:"required"`
}

// SetStatus handles PUT /tasks/:id/status
func (h *TaskHandler) SetStatus(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.taskService.SetStatus(c.Request.Context(), id, req.Status, req.Actor); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /tasks/:id?actor=
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	actor, ok := queryInt64Ptr(c, "actor")
	if !ok {
		return
	}
	if actor == nil {
		badRequest(c, "actor is required")
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), id, *actor); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /tasks. With an assignee the list is ordered for that
// assignee's work queue, otherwise newest first.
func (h *TaskHandler) List(c *gin.Context) {
	assignee, ok := queryInt64Ptr(c, "assignee")
	if !ok {
		return
	}
	status := c.Query("status")

	if assignee != nil && c.Query("priority") == "" && c.Query("created_by") == "" {
		tasks, err := h.taskService.ListForAssignee(c.Request.Context(), *assignee, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
		return
	}

	createdBy, ok := queryInt64Ptr(c, "created_by")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	tasks, err := h.taskService.ListAll(c.Request.Context(), service.TaskFilter{
		Status:     status,
		Priority:   c.Query("priority"),
		AssignedTo: assignee,
		CreatedBy:  createdBy,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Overdue handles GET /tasks/overdue
func (h *TaskHandler) Overdue(c *gin.Context) {
	tasks, err := h.taskService.Overdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}
