package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets the desktop shell's webview call the API. Browser requests from
// any other origin are refused with 403; requests without an Origin header
// pass through. An empty or "*" origin allows everyone.
func CORS(allowedOrigin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if allowedOrigin == "" || allowedOrigin == "*" {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}

	cfg.AllowOrigins = []string{allowedOrigin}
	// Shell origins such as tauri://localhost use their own scheme.
	if scheme, _, ok := strings.Cut(allowedOrigin, "://"); ok && scheme != "http" && scheme != "https" {
		cfg.CustomSchemas = []string{scheme + "://"}
	}
	return cors.New(cfg)
}
