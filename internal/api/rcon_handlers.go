// internal/api/rcon_handlers.go
// Admin RPC surface: thin RCON passthroughs to the server bound to a
// match. These never mutate persisted match state directly; the plugin
// events they provoke do.

package api

import (
	"context"
	"net/http"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store"

	"github.com/gin-gonic/gin"
)

// adminCommands maps route actions onto plugin console commands.
var adminCommands = map[string]string{
	"pause":       "css_pause",
	"unpause":     "css_unpause",
	"start-match": "css_start",
	"end-warmup":  "css_endwarmup",
}

// HandleAdminRCON dispatches one admin command to a server. The server
// must be bound to a loaded or live match; racing a series_end means
// the command loses and conflicts.
func HandleAdminRCON(deps *Deps, action string) gin.HandlerFunc {
	command := adminCommands[action]
	return func(c *gin.Context) {
		var req struct {
			ServerID string `json:"serverId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		server, err := deps.Store.GetServer(ctx, req.ServerID)
		if err != nil {
			respondError(c, err)
			return
		}

		if err := deps.requireActiveMatch(ctx, server.ID); err != nil {
			respondError(c, err)
			return
		}

		raw, err := deps.sendToServer(ctx, server, command)
		if err != nil {
			respondError(c, apperrors.Wrap(apperrors.Upstream, "rcon command failed", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "raw": raw})
	}
}

// requireActiveMatch ensures a loaded or live match is bound to the
// server, so admin commands against a finished match conflict cleanly.
func (deps *Deps) requireActiveMatch(ctx context.Context, serverID string) error {
	matches, err := deps.Store.ListMatches(ctx, store.MatchFilter{ServerRef: serverID})
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.Status == models.MatchLoaded || m.Status == models.MatchLive {
			return nil
		}
	}
	return apperrors.Conflictf("match not live on server %s", serverID)
}

func (deps *Deps) sendToServer(ctx context.Context, server *models.Server, command string) (string, error) {
	password, err := deps.Sealer.Open(server.RCONPassword)
	if err != nil {
		return "", err
	}
	cmdCtx, cancel := context.WithTimeout(ctx, deps.Config.Scheduler.RCONTimeout)
	defer cancel()
	return deps.RCON.SendCommand(cmdCtx, server.Addr(), password, command)
}

// HandleBroadcastMessage says a message on several servers at once.
func HandleBroadcastMessage(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Message   string   `json:"message" binding:"required"`
			ServerIDs []string `json:"serverIds" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		ctx := c.Request.Context()
		successful, failed := 0, 0
		for _, id := range req.ServerIDs {
			server, err := deps.Store.GetServer(ctx, id)
			if err != nil {
				failed++
				continue
			}
			if _, err := deps.sendToServer(ctx, server, "css_say "+req.Message); err != nil {
				deps.Logger.Printf("Broadcast to %s failed: %v", id, err)
				failed++
				continue
			}
			successful++
		}

		c.JSON(http.StatusOK, gin.H{
			"success": failed == 0,
			"message": "Broadcast dispatched",
			"stats": gin.H{
				"total":      len(req.ServerIDs),
				"successful": successful,
				"failed":     failed,
			},
		})
	}
}
