// internal/api/match_handlers.go
// Match HTTP handlers, including the public plugin-facing config
// document at /api/matches/{slug}.json.

package api

import (
	"net/http"
	"strings"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/middleware"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store"

	"github.com/gin-gonic/gin"
)

// HandleListMatches lists matches, optionally filtered by status.
func HandleListMatches(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.MatchFilter{Status: models.MatchStatus(c.Query("status"))}
		matches, err := deps.Store.ListMatches(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// HandleGetMatch serves both the operator match view and the public
// plugin config document. The two share one route because the slug
// parameter swallows the ".json" suffix; the suffix decides the shape
// and the auth requirement.
func HandleGetMatch(deps *Deps) gin.HandlerFunc {
	operatorAuth := middleware.RequireOperator(deps.Config.Auth.APIToken)
	return func(c *gin.Context) {
		slug := c.Param("slug")

		if strings.HasSuffix(slug, ".json") {
			serveMatchConfig(deps, c, strings.TrimSuffix(slug, ".json"))
			return
		}

		operatorAuth(c)
		if c.IsAborted() {
			return
		}

		match, err := deps.Store.GetMatch(c.Request.Context(), slug)
		if err != nil {
			respondError(c, err)
			return
		}

		response := gin.H{"match": match}
		if veto, err := deps.Store.GetVeto(c.Request.Context(), slug); err == nil {
			response["veto"] = veto
		}
		c.JSON(http.StatusOK, response)
	}
}

// matchConfigDoc is the exact document the plugin loads. Field names
// are fixed by the plugin.
type matchConfigDoc struct {
	MatchID        string                  `json:"matchid"`
	Team1          models.MatchConfigTeam  `json:"team1"`
	Team2          models.MatchConfigTeam  `json:"team2"`
	MapList        []string                `json:"maplist"`
	NumMaps        int                     `json:"num_maps"`
	PlayersPerTeam int                     `json:"players_per_team"`
	SkipVeto       bool                    `json:"skip_veto"`
	MapSides       []string                `json:"map_sides"`
}

func serveMatchConfig(deps *Deps, c *gin.Context, slug string) {
	match, err := deps.Store.GetMatch(c.Request.Context(), slug)
	if err != nil {
		respondError(c, err)
		return
	}
	if !match.VetoCompleted || len(match.Config.MapList) == 0 {
		respondError(c, apperrors.Conflictf("match %s has no finalized map list yet", slug))
		return
	}

	c.JSON(http.StatusOK, matchConfigDoc{
		MatchID:        match.Slug,
		Team1:          match.Config.Team1,
		Team2:          match.Config.Team2,
		MapList:        match.Config.MapList,
		NumMaps:        match.Config.NumMaps,
		PlayersPerTeam: match.Config.PlayersPerTeam,
		SkipVeto:       true,
		MapSides:       match.Config.MapSides,
	})
}

// HandleLoadMatch manually pushes a match's configuration to a server.
// ?skipWebhook=true only re-sends the load command, leaving the
// server's webhook wiring untouched.
func HandleLoadMatch(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		skipWebhook := c.Query("skipWebhook") == "true"

		if err := deps.Scheduler.LoadMatch(c.Request.Context(), slug, skipWebhook); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Match load pushed"})
	}
}

// HandleForceCompleteMatch ends a live match by operator decision.
func HandleForceCompleteMatch(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Winner string `json:"winner" binding:"required,oneof=team1 team2"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		match, err := deps.Machine.ForceComplete(c.Request.Context(), c.Param("slug"), models.TeamSide(req.Winner))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}
