package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prayerflow/internal/http/handlers"
	"prayerflow/internal/http/middleware"
	"prayerflow/internal/service"
)

// Options configure the router.
type Options struct {
	Version       string
	AllowedOrigin string
	// Events serves the websocket change feed; /ws is not mounted when nil.
	Events http.Handler
	// Prayers backs /api/prayer-times, which is not mounted when nil.
	Prayers *service.PrayerService
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(tasks *service.TaskService, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.Metrics(), middleware.CORS(opts.AllowedOrigin))
	RegisterRoutes(r, tasks, opts)
	return r
}

func RegisterRoutes(r *gin.Engine, tasks *service.TaskService, opts Options) {
	h := handlers.NewHandler(tasks, opts.Prayers)
	health := handlers.NewHealthHandler(tasks, opts.Version)

	r.GET("/health", health.Readiness)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/tasks", h.ListTasks)
		api.POST("/tasks", h.CreateTask)
		api.GET("/tasks/:id", h.GetTask)
		api.PUT("/tasks/:id", h.UpdateTask)
		api.DELETE("/tasks/:id", h.DeleteTask)
		api.PUT("/tasks/:id/notes", h.SetNotes)
		api.POST("/tasks/:id/pomodoros", h.CompletePomodoro)
		api.GET("/summary", h.Summary)
		api.GET("/debug/db", h.DebugDB)
		if opts.Prayers != nil {
			api.GET("/prayer-times", h.PrayerTimes)
		}
	}

	if opts.Events != nil {
		r.GET("/ws", gin.WrapH(opts.Events))
	}
}
