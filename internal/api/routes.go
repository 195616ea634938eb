// internal/api/routes.go
// Central route registration for all API endpoints

package api

import (
	"matchzy-auto-tournament/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterTeamRoutes registers team management and the public
// team-perspective views.
func RegisterTeamRoutes(router *gin.RouterGroup, deps *Deps) {
	operator := middleware.RequireOperator(deps.Config.Auth.APIToken)

	teams := router.Group("/teams")
	teams.Use(operator)
	{
		teams.GET("", HandleListTeams(deps))
		teams.POST("", HandleCreateTeam(deps))
		teams.POST("/batch", HandleBatchCreateTeams(deps))
		teams.PUT("/:id", HandleUpdateTeam(deps))
		teams.DELETE("/:id", HandleDeleteTeam(deps))
	}

	router.POST("/steam/resolve", operator, HandleSteamResolve(deps))

	// Public: the team view polls these without credentials.
	team := router.Group("/team")
	{
		team.GET("/:teamId/match", HandleTeamCurrentMatch(deps))
		team.GET("/:teamId/history", HandleTeamHistory(deps))
		team.GET("/:teamId/stats", HandleTeamStats(deps))
	}
}

// RegisterServerRoutes registers game-server management routes.
func RegisterServerRoutes(router *gin.RouterGroup, deps *Deps) {
	servers := router.Group("/servers")
	servers.Use(middleware.RequireOperator(deps.Config.Auth.APIToken))
	{
		servers.GET("", HandleListServers(deps))
		servers.POST("", HandleCreateServer(deps))
		servers.POST("/batch", HandleBatchCreateServers(deps))
		servers.PUT("/:id", HandleUpdateServer(deps))
		servers.DELETE("/:id", HandleDeleteServer(deps))
	}
}

// RegisterTournamentRoutes registers tournament lifecycle routes.
func RegisterTournamentRoutes(router *gin.RouterGroup, deps *Deps) {
	tournament := router.Group("/tournament")
	tournament.Use(middleware.RequireOperator(deps.Config.Auth.APIToken))
	{
		tournament.GET("", HandleGetTournament(deps))
		tournament.PUT("", HandleUpsertTournament(deps))
		tournament.POST("/start", HandleStartTournament(deps))
		tournament.POST("/reset", HandleResetTournament(deps))
		tournament.POST("/wipe-database", HandleWipeDatabase(deps))
		tournament.POST("/wipe-table/:table", HandleWipeTable(deps))
		tournament.GET("/bracket", HandleGetBracket(deps))
	}
}

// RegisterMatchRoutes registers match routes. GET /matches/:slug doubles
// as the public plugin config endpoint when the slug carries a .json
// suffix, so its auth check lives inside the handler.
func RegisterMatchRoutes(router *gin.RouterGroup, deps *Deps) {
	operator := middleware.RequireOperator(deps.Config.Auth.APIToken)

	matches := router.Group("/matches")
	{
		matches.GET("", operator, HandleListMatches(deps))
		matches.GET("/:slug", HandleGetMatch(deps))
		matches.POST("/:slug/load", operator, HandleLoadMatch(deps))
		matches.POST("/:slug/force-complete", operator, HandleForceCompleteMatch(deps))
	}
}

// RegisterEventRoutes registers webhook ingestion (server token) and
// event-log reads (operator token).
func RegisterEventRoutes(router *gin.RouterGroup, deps *Deps) {
	router.POST("/events", middleware.RequireServerToken(deps.Config.Auth.ServerToken), HandleIngestEvent(deps))

	events := router.Group("/events")
	events.Use(middleware.RequireOperator(deps.Config.Auth.APIToken))
	{
		events.GET("/:slug", HandleListEvents(deps))
		// gin's tree cannot mix the literal "live"/"connections"
		// segments with the :slug wildcard above, so the two-segment
		// views share one route and dispatch on the first segment.
		events.GET("/:slug/:sub", HandleEventView(deps))
	}
}

// RegisterRCONRoutes registers the admin RPC passthroughs.
func RegisterRCONRoutes(router *gin.RouterGroup, deps *Deps) {
	rcon := router.Group("/rcon")
	rcon.Use(middleware.RequireOperator(deps.Config.Auth.APIToken))
	{
		rcon.POST("/pause", HandleAdminRCON(deps, "pause"))
		rcon.POST("/unpause", HandleAdminRCON(deps, "unpause"))
		rcon.POST("/start-match", HandleAdminRCON(deps, "start-match"))
		rcon.POST("/end-warmup", HandleAdminRCON(deps, "end-warmup"))
		rcon.POST("/broadcast", HandleBroadcastMessage(deps))
	}
}

// RegisterDemoRoutes registers demo downloads.
func RegisterDemoRoutes(router *gin.RouterGroup, deps *Deps) {
	demos := router.Group("/demos")
	demos.Use(middleware.RequireOperator(deps.Config.Auth.APIToken))
	{
		demos.GET("/:slug/download", HandleDownloadDemo(deps))
		demos.GET("/:slug/download/:mapNumber", HandleDownloadDemo(deps))
	}
}
