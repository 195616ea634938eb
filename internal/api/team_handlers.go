// internal/api/team_handlers.go
// Team management and public team-view HTTP handlers

package api

import (
	"context"
	"net/http"
	"strconv"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/steam"
	"matchzy-auto-tournament/internal/store"
	"matchzy-auto-tournament/internal/utils"

	"github.com/gin-gonic/gin"
)

// TeamRequest is the operator payload for creating or updating a team.
type TeamRequest struct {
	Name          string          `json:"name" binding:"required"`
	Tag           string          `json:"tag"`
	DiscordRoleID *string         `json:"discordRoleId"`
	Players       []models.Player `json:"players"`
}

func (r *TeamRequest) toTeam() (*models.Team, error) {
	if err := utils.ValidateTeamName(r.Name); err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	if err := utils.ValidateTeamTag(r.Tag); err != nil {
		return nil, apperrors.Validationf("%v", err)
	}
	for _, p := range r.Players {
		if err := utils.ValidateSteamID64(p.SteamID64); err != nil {
			return nil, apperrors.Validationf("%v", err)
		}
	}
	return &models.Team{
		ID:            utils.TeamID(r.Name),
		Name:          r.Name,
		Tag:           r.Tag,
		DiscordRoleID: r.DiscordRoleID,
		Players:       r.Players,
	}, nil
}

// HandleListTeams lists all teams
func HandleListTeams(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		teams, err := deps.Store.ListTeams(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teams": teams})
	}
}

// HandleCreateTeam creates a team; ?upsert=true overwrites an existing
// one with the same derived id.
func HandleCreateTeam(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		team, err := req.toTeam()
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("upsert") != "true" {
			if _, err := deps.Store.GetTeam(c.Request.Context(), team.ID); err == nil {
				respondError(c, apperrors.Conflictf("team %q already exists", team.ID))
				return
			}
		}

		if err := deps.Store.UpsertTeam(c.Request.Context(), team); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"team": team})
	}
}

// HandleBatchCreateTeams creates a whole team list in one call.
func HandleBatchCreateTeams(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reqs []TeamRequest
		if err := c.ShouldBindJSON(&reqs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		teams := make([]*models.Team, 0, len(reqs))
		for _, req := range reqs {
			team, err := req.toTeam()
			if err != nil {
				respondError(c, err)
				return
			}
			teams = append(teams, team)
		}

		err := deps.Store.Transaction(c.Request.Context(), func(ctx context.Context) error {
			for _, team := range teams {
				if err := deps.Store.UpsertTeam(ctx, team); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"teams": teams, "count": len(teams)})
	}
}

// HandleUpdateTeam updates a team in place, keeping its id.
func HandleUpdateTeam(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		existing, err := deps.Store.GetTeam(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		var req TeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}
		team, err := req.toTeam()
		if err != nil {
			respondError(c, err)
			return
		}
		team.ID = existing.ID
		team.CreatedAt = existing.CreatedAt

		if err := deps.Store.UpsertTeam(c.Request.Context(), team); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"team": team})
	}
}

// HandleDeleteTeam deletes a team unless a non-completed match holds it.
func HandleDeleteTeam(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Store.DeleteTeam(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
	}
}

// HandleSteamResolve resolves operator input to a steam identity.
func HandleSteamResolve(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Input string `json:"input" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}

		player, err := deps.Steam.Resolve(c.Request.Context(), req.Input)
		if err != nil {
			if err == steam.ErrNotConfigured {
				c.JSON(http.StatusOK, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"player": player})
	}
}

// --- public team view ---

// HandleTeamCurrentMatch returns the team's current match from its own
// perspective. Server connect info appears only once the match is
// loaded or live.
func HandleTeamCurrentMatch(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamId")
		ctx := c.Request.Context()

		tournament, err := deps.Store.GetTournament(ctx)
		tournamentStatus := ""
		if err == nil {
			tournamentStatus = string(tournament.Status)
		}

		matches, err := deps.Store.ListMatches(ctx, store.MatchFilter{})
		if err != nil {
			respondError(c, err)
			return
		}

		current := pickCurrentMatch(matches, teamID)
		if current == nil {
			c.JSON(http.StatusOK, gin.H{
				"match":            nil,
				"tournamentStatus": tournamentStatus,
			})
			return
		}

		response := gin.H{
			"match":            current,
			"isTeam1":          current.Team1Ref != nil && *current.Team1Ref == teamID,
			"tournamentStatus": tournamentStatus,
		}
		if (current.Status == models.MatchLoaded || current.Status == models.MatchLive) && current.ServerRef != nil {
			if server, err := deps.Store.GetServer(ctx, *current.ServerRef); err == nil {
				response["server"] = gin.H{
					"id":   server.ID,
					"name": server.Name,
					"host": server.Host,
					"port": server.Port,
				}
			}
		}
		c.JSON(http.StatusOK, response)
	}
}

// pickCurrentMatch prefers the most active of the team's undecided
// matches: live over loaded over ready over pending, then bracket order.
func pickCurrentMatch(matches []*models.Match, teamID string) *models.Match {
	rank := map[models.MatchStatus]int{
		models.MatchLive:    0,
		models.MatchLoaded:  1,
		models.MatchReady:   2,
		models.MatchPending: 3,
	}
	var best *models.Match
	for _, m := range matches {
		if m.Status == models.MatchCompleted || !involvesTeam(m, teamID) {
			continue
		}
		if best == nil || rank[m.Status] < rank[best.Status] ||
			(rank[m.Status] == rank[best.Status] && m.Round < best.Round) {
			best = m
		}
	}
	return best
}

func involvesTeam(m *models.Match, teamID string) bool {
	return (m.Team1Ref != nil && *m.Team1Ref == teamID) ||
		(m.Team2Ref != nil && *m.Team2Ref == teamID)
}

// HandleTeamHistory lists a team's completed matches, newest first.
func HandleTeamHistory(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamId")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		matches, err := deps.Store.ListMatches(c.Request.Context(), store.MatchFilter{Status: models.MatchCompleted})
		if err != nil {
			respondError(c, err)
			return
		}

		var history []*models.Match
		for i := len(matches) - 1; i >= 0 && len(history) < limit; i-- {
			if involvesTeam(matches[i], teamID) {
				history = append(history, matches[i])
			}
		}
		c.JSON(http.StatusOK, gin.H{"matches": history})
	}
}

// HandleTeamStats aggregates a team's results across the tournament.
func HandleTeamStats(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamId")
		matches, err := deps.Store.ListMatches(c.Request.Context(), store.MatchFilter{Status: models.MatchCompleted})
		if err != nil {
			respondError(c, err)
			return
		}

		wins, losses, mapsWon, mapsLost, roundsWon, roundsLost := 0, 0, 0, 0, 0, 0
		for _, m := range matches {
			if !involvesTeam(m, teamID) {
				continue
			}
			isTeam1 := m.Team1Ref != nil && *m.Team1Ref == teamID
			if m.WinnerRef != nil && *m.WinnerRef == teamID {
				wins++
			} else {
				losses++
			}
			if isTeam1 {
				mapsWon += m.Team1SeriesScore
				mapsLost += m.Team2SeriesScore
			} else {
				mapsWon += m.Team2SeriesScore
				mapsLost += m.Team1SeriesScore
			}
			for _, r := range m.MapResults {
				if isTeam1 {
					roundsWon += r.Team1Score
					roundsLost += r.Team2Score
				} else {
					roundsWon += r.Team2Score
					roundsLost += r.Team1Score
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"teamId":     teamID,
			"wins":       wins,
			"losses":     losses,
			"mapsWon":    mapsWon,
			"mapsLost":   mapsLost,
			"roundsWon":  roundsWon,
			"roundsLost": roundsLost,
		})
	}
}
