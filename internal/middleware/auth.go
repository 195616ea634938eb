// internal/middleware/auth.go
// Token authentication: operator requests carry the static API bearer
// token, plugin webhooks carry the preshared server token. Both are
// compared constant-time.

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServerTokenHeader is the header the game plugin sends its preshared
// secret under, as configured via matchzy_remote_log_header_key.
const ServerTokenHeader = "X-MatchZy-Token"

// RequireOperator validates the bearer token on operator routes.
func RequireOperator(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		if !tokensEqual(parts[1], apiToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}

// RequireServerToken validates the plugin webhook secret.
func RequireServerToken(serverToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tokensEqual(c.GetHeader(ServerTokenHeader), serverToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid server token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// tokensEqual compares secrets in constant time; an empty configured
// secret never matches.
func tokensEqual(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}
