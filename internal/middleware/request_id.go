// ========================================
// internal/middleware/request_id.go
// Request ids for tracing a webhook or admin call through the logs.
// The game plugin never sends one, so most ids are minted here; an
// operator-supplied X-Request-ID is honored for cross-system tracing.

package middleware

import (
	"github.com/gin-gonic/gin"

	"matchzy-auto-tournament/internal/utils"
)

// RequestIDHeader carries the id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with a unique id, echoed in the response
// so an operator can quote it when reporting a stuck match.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}
