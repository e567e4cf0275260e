package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prayerflow/internal/logger"
	"prayerflow/internal/service"
)

// Handler serves the task API on top of TaskService. Prayers is optional.
type Handler struct {
	Tasks   *service.TaskService
	Prayers *service.PrayerService
}

func NewHandler(tasks *service.TaskService, prayers *service.PrayerService) *Handler {
	return &Handler{Tasks: tasks, Prayers: prayers}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUpstream):
		status = http.StatusBadGateway
		logger.Warn(msg, "err", err)
	default:
		logger.Error(msg, "err", err, "path", c.Request.URL.Path)
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: msg, Details: err.Error()})
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// parseID reads the :id path parameter as a positive task id.
func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid task id", nil)
		return 0, false
	}
	return uint(id), true
}
