package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prayerflow/internal/service"
)

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Name               string `json:"name"`
	EstimatedPomodoros int    `json:"estimated_pomodoros"`
	Priority           string `json:"priority"`
}

// UpdateTaskRequest is the body of PUT /api/tasks/:id. Every field is required.
type UpdateTaskRequest struct {
	Name               *string `json:"name"`
	EstimatedPomodoros *int    `json:"estimated_pomodoros"`
	CompletedPomodoros *int    `json:"completed_pomodoros"`
	IsComplete         *bool   `json:"is_complete"`
	Priority           *string `json:"priority"`
}

func (r UpdateTaskRequest) toUpdate() (service.TaskUpdate, error) {
	if r.Name == nil || r.EstimatedPomodoros == nil || r.CompletedPomodoros == nil || r.IsComplete == nil || r.Priority == nil {
		return service.TaskUpdate{}, errors.New("name, estimated_pomodoros, completed_pomodoros, is_complete and priority are all required")
	}
	return service.TaskUpdate{
		Name:               *r.Name,
		EstimatedPomodoros: *r.EstimatedPomodoros,
		CompletedPomodoros: *r.CompletedPomodoros,
		IsComplete:         *r.IsComplete,
		Priority:           *r.Priority,
	}, nil
}

// NotesRequest is the body of PUT /api/tasks/:id/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ListTasks GET /api/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.Tasks.ListTasks(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTask POST /api/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	task, err := h.Tasks.CreateTask(c.Request.Context(), service.TaskInput{
		Name:               req.Name,
		EstimatedPomodoros: req.EstimatedPomodoros,
		Priority:           req.Priority,
	})
	if err != nil {
		respondError(c, "failed to create task", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask GET /api/tasks/:id
func (h *Handler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.Tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to fetch task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask PUT /api/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	task, err := h.Tasks.UpdateTask(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, "failed to update task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask DELETE /api/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Tasks.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, "failed to delete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// SetNotes PUT /api/tasks/:id/notes
func (h *Handler) SetNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	task, err := h.Tasks.SetNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, "failed to update notes", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CompletePomodoro POST /api/tasks/:id/pomodoros
func (h *Handler) CompletePomodoro(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.Tasks.CompletePomodoro(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to record pomodoro", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Summary GET /api/summary
func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.Tasks.Summary(c.Request.Context())
	if err != nil {
		respondError(c, "failed to build summary", err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// DebugDB GET /api/debug/db
func (h *Handler) DebugDB(c *gin.Context) {
	info, err := h.Tasks.SchemaInfo(c.Request.Context())
	if err != nil {
		respondError(c, "failed to inspect database", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "database": info})
}
