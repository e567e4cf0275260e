package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the task database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers the probes the desktop shell polls while the backend
// starts.
type HealthHandler struct {
	db      Pinger
	started time.Time
	version string
}

func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now(), version: version}
}

// Liveness only proves the process serves HTTP.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness is 200 once the task database answers a ping, 503 otherwise.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	body := gin.H{
		"status":   "healthy",
		"version":  h.version,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"database": "ok",
	}
	if err := h.db.Ping(ctx); err != nil {
		body["status"] = "unhealthy"
		body["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
