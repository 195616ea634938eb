// internal/api/health.go
// Health check endpoint: liveness plus a store probe, so a monitor can
// tell "process up" apart from "process up but the bracket is stuck
// because a database went away".

package api

import (
	"context"
	"net/http"
	"time"

	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/database"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns a health check handler
func HealthCheck(cfg *config.Config, db *database.Connections) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		stores := "operational"
		code := http.StatusOK

		if db != nil {
			probeCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(probeCtx); err != nil {
				status = "degraded"
				stores = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":      status,
			"environment": cfg.Environment,
			"version":     "1.0.0",
			"services": gin.H{
				"stores":    stores,
				"websocket": cfg.Features.EnableWebSocket,
				"steam":     cfg.External.SteamAPIKey != "",
			},
		})
	}
}
