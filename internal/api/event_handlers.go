// internal/api/event_handlers.go
// Webhook ingestion and event-log reads. The ingest endpoint responds
// success only after the event is durably appended and queued for
// interpretation; interpretation failures never bounce the plugin.

package api

import (
	"net/http"
	"strconv"

	"matchzy-auto-tournament/internal/cache"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/models"

	"github.com/gin-gonic/gin"
)

// HandleIngestEvent accepts one plugin webhook event.
func HandleIngestEvent(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
			return
		}

		ev, err := ingest.Normalize(raw)
		if err != nil {
			respondError(c, err)
			return
		}

		// Durable append first; the response promises nothing more
		// than "logged and scheduled".
		if _, err := deps.Store.AppendEvent(c.Request.Context(), ev.Event()); err != nil {
			respondError(c, err)
			return
		}
		deps.Events.Enqueue(ev)

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event received"})
	}
}

// HandleListEvents lists a match's event log, optionally filtered by kind.
func HandleListEvents(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		kind := c.Query("type")

		events, err := deps.Store.ListEvents(c.Request.Context(), slug, 0, 0)
		if err != nil {
			respondError(c, err)
			return
		}

		filtered := make([]*models.MatchEvent, 0, len(events))
		for _, ev := range events {
			if kind != "" && ev.EventKind != kind {
				continue
			}
			filtered = append(filtered, ev)
		}
		if limit > 0 && len(filtered) > limit {
			filtered = filtered[len(filtered)-limit:]
		}
		c.JSON(http.StatusOK, gin.H{"events": filtered, "count": len(filtered)})
	}
}

// HandleEventView dispatches /events/live/{slug} and
// /events/connections/{slug}, which share a wildcard route.
func HandleEventView(deps *Deps) gin.HandlerFunc {
	live := HandleLiveStats(deps)
	connections := HandleConnections(deps)
	return func(c *gin.Context) {
		switch c.Param("slug") {
		case "live":
			live(c)
		case "connections":
			connections(c)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown event view"})
		}
	}
}

// HandleLiveStats serves the latest scoreboard snapshot: the active
// interpreter's state when it is running, the cache next, and an event
// log replay as the cold path.
func HandleLiveStats(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("sub")

		if stats, ok := deps.Events.LiveStats(slug); ok {
			c.JSON(http.StatusOK, gin.H{"liveStats": stats})
			return
		}

		var cached models.LiveStats
		if deps.Cache != nil && deps.Cache.Get(c.Request.Context(), cache.LiveStatsKey(slug), &cached) == nil {
			c.JSON(http.StatusOK, gin.H{"liveStats": cached})
			return
		}

		events, err := deps.Store.ListEvents(c.Request.Context(), slug, 0, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		tracker := ingest.Rebuild(slug, events)
		c.JSON(http.StatusOK, gin.H{"liveStats": tracker.Snapshot()})
	}
}

// HandleConnections serves the connected-player roster for a match.
func HandleConnections(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("sub")

		if players, ok := deps.Events.ConnectedPlayers(slug); ok {
			c.JSON(http.StatusOK, gin.H{"connections": players})
			return
		}

		var cached []models.ConnectedPlayer
		if deps.Cache != nil && deps.Cache.Get(c.Request.Context(), cache.ConnectedPlayersKey(slug), &cached) == nil {
			c.JSON(http.StatusOK, gin.H{"connections": cached})
			return
		}

		events, err := deps.Store.ListEvents(c.Request.Context(), slug, 0, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		tracker := ingest.Rebuild(slug, events)
		c.JSON(http.StatusOK, gin.H{"connections": tracker.ConnectedPlayers()})
	}
}
