// ========================================
// internal/middleware/rate_limiter.go
// Rate limiting to prevent abuse

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"matchzy-auto-tournament/internal/cache"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client IP in Redis. Every request
// resets the counter's one-minute TTL, so the count only clears after a
// full minute without requests from that IP.
func RateLimiter(c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := fmt.Sprintf("rate_limit:ip:%s", ctx.ClientIP())

		// 300 requests per minute; live scoreboards poll aggressively
		limit := 300
		window := time.Minute

		count, err := c.Increment(ctx.Request.Context(), key, window)
		if err != nil {
			// Don't block on rate limit errors
			ctx.Next()
			return
		}

		if count > limit {
			ctx.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			ctx.Abort()
			return
		}

		// Add rate limit headers
		ctx.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		ctx.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-count))
		ctx.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		ctx.Next()
	}
}
