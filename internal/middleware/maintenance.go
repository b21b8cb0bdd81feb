package middleware

import (
	"net/http" // Status codes

	"lottery_system/internal/web" // Error pages

	"github.com/gin-gonic/gin" // Gin web framework
)

// Maintenance answers every page with 503 while enabled. Metrics stay reachable
func Maintenance(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled && c.Request.URL.Path != "/metrics" {
			web.RenderError(c, http.StatusServiceUnavailable) // Site is down for maintenance
			return
		}
		c.Next()
	}
}
