// ========================================
// internal/middleware/logger.go
// Request logging with the fields operators actually grep for during a
// running bracket: request id, match slug when the route carries one,
// and a slow-request marker for the RCON-backed admin endpoints.

package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// slowRequestThreshold flags handlers that sat on an RCON round-trip.
const slowRequestThreshold = 2 * time.Second

// Logger creates the request logging middleware
func Logger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		// Process request
		c.Next()

		latency := time.Since(start)

		// Matches are the unit of operation; surface the slug so one
		// grep follows a match across webhook, admin, and view traffic.
		slug := c.Param("slug")
		if slug == "" {
			slug = c.Param("teamId")
		}
		if slug != "" {
			slug = " match=" + slug
		}

		slow := ""
		if latency > slowRequestThreshold {
			slow = " SLOW"
		}

		logger.Printf("[%s] %s %s %d %v %s%s%s %s",
			c.GetString("request_id"),
			c.ClientIP(),
			c.Request.Method,
			c.Writer.Status(),
			latency,
			path,
			slug,
			slow,
			c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
