// internal/api/tournament_handlers.go
// Tournament lifecycle HTTP handlers

package api

import (
	"net/http"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store"
	"matchzy-auto-tournament/internal/utils"

	"github.com/gin-gonic/gin"
)

// TournamentRequest configures the singleton tournament while it is in
// setup.
type TournamentRequest struct {
	Name    string   `json:"name" binding:"required"`
	Type    string   `json:"type" binding:"required"`
	Format  string   `json:"format" binding:"required"`
	MapPool []string `json:"mapPool" binding:"required"`
	TeamIDs []string `json:"teamIds" binding:"required"`
}

// HandleGetTournament returns the singleton tournament.
func HandleGetTournament(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tournament, err := deps.Store.GetTournament(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tournament": tournament})
	}
}

// HandleUpsertTournament creates or reconfigures the tournament. Only
// allowed while no bracket is running.
func HandleUpsertTournament(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TournamentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		tournament, err := deps.tournamentFromRequest(c, req)
		if err != nil {
			respondError(c, err)
			return
		}

		existing, err := deps.Store.GetTournament(c.Request.Context())
		if err == nil && existing.Status != models.TournamentSetup && existing.Status != models.TournamentReady {
			respondError(c, apperrors.Conflictf("tournament is %s and cannot be reconfigured", existing.Status))
			return
		}
		if existing != nil {
			tournament.CreatedAt = existing.CreatedAt
		}

		if err := deps.Store.UpsertTournament(c.Request.Context(), tournament); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tournament": tournament})
	}
}

// tournamentFromRequest validates the type/format/team-count/map-pool
// constraints against the stored teams.
func (deps *Deps) tournamentFromRequest(c *gin.Context, req TournamentRequest) (*models.Tournament, error) {
	tournamentType := models.TournamentType(req.Type)
	switch tournamentType {
	case models.TypeSingleElim, models.TypeDoubleElim, models.TypeRoundRobin, models.TypeSwiss:
	default:
		return nil, apperrors.Validationf("unknown tournament type %q", req.Type)
	}

	format := models.MatchFormat(req.Format)
	switch format {
	case models.FormatBo1, models.FormatBo3, models.FormatBo5:
	default:
		return nil, apperrors.Validationf("unknown format %q", req.Format)
	}

	if len(req.TeamIDs) < 2 {
		return nil, apperrors.Validationf("at least 2 teams are required, have %d", len(req.TeamIDs))
	}
	if len(req.MapPool) < format.NumMaps() {
		return nil, apperrors.Validationf("map pool of %d is too small for %s", len(req.MapPool), format)
	}

	seen := make(map[string]bool)
	for _, id := range req.TeamIDs {
		if seen[id] {
			return nil, apperrors.Validationf("team %q listed twice", id)
		}
		seen[id] = true
		if _, err := deps.Store.GetTeam(c.Request.Context(), id); err != nil {
			return nil, err
		}
	}

	return &models.Tournament{
		ID:      models.SingletonID,
		Name:    req.Name,
		Type:    tournamentType,
		Format:  format,
		MapPool: req.MapPool,
		TeamIDs: req.TeamIDs,
		Status:  models.TournamentSetup,
	}, nil
}

// HandleStartTournament generates the bracket and runs the first
// allocation pass.
func HandleStartTournament(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BaseURL string `json:"baseUrl"`
		}
		// The body is optional; the configured BASE_URL is the default.
		c.ShouldBindJSON(&req)

		allocated, err := deps.Scheduler.StartTournament(c.Request.Context(), req.BaseURL)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "allocated": allocated})
	}
}

// HandleResetTournament clears matches and events and returns to setup.
func HandleResetTournament(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Scheduler.Reset(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Tournament reset"})
	}
}

// HandleWipeDatabase removes everything: teams, servers, tournament,
// matches, and the event log.
func HandleWipeDatabase(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Store.WipeDatabase(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Database wiped"})
	}
}

// HandleWipeTable removes one table's rows.
func HandleWipeTable(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Param("table")
		if err := deps.Store.WipeTable(c.Request.Context(), table); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Table wiped: " + table})
	}
}

// HandleGetBracket returns the tournament with all matches and the
// total round count, the document the bracket view renders from.
func HandleGetBracket(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tournament, err := deps.Store.GetTournament(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		matches, err := deps.Store.ListMatches(c.Request.Context(), store.MatchFilter{})
		if err != nil {
			respondError(c, err)
			return
		}

		totalRounds := 0
		for _, m := range matches {
			totalRounds = utils.MaxInt(totalRounds, m.Round)
		}

		c.JSON(http.StatusOK, gin.H{
			"tournament":  tournament,
			"matches":     matches,
			"totalRounds": totalRounds,
		})
	}
}
