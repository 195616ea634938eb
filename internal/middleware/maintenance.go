// ========================================
// internal/middleware/maintenance.go
// Maintenance mode rejects operator traffic while leaving two paths
// open: the health check, and the plugin webhook. Game servers keep
// reporting events mid-match regardless of what the operators are
// doing, and the plugin does not retry rejected posts, so closing
// /api/events during maintenance would punch holes in the event log.

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaintenanceMode returns 503 for everything except the health check
// and the plugin event webhook.
func MaintenanceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || (path == "/api/events" && c.Request.Method == http.MethodPost) {
			c.Next()
			return
		}

		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Service temporarily unavailable for maintenance",
			"message": "The tournament is paused for maintenance; back shortly",
		})
		c.Abort()
	}
}
