// internal/server/server.go
// HTTP server setup with dependency injection. Every component is
// constructed here and handed its collaborators explicitly; there is no
// package-level state.

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"matchzy-auto-tournament/internal/api"
	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/cache"
	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/database"
	"matchzy-auto-tournament/internal/discord"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/matchstate"
	"matchzy-auto-tournament/internal/middleware"
	"matchzy-auto-tournament/internal/rcon"
	"matchzy-auto-tournament/internal/scheduler"
	"matchzy-auto-tournament/internal/secrets"
	"matchzy-auto-tournament/internal/steam"
	"matchzy-auto-tournament/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server and the background runtime around it
type Server struct {
	config *config.Config
	router *gin.Engine
	logger *log.Logger
	server *http.Server

	scheduler *scheduler.Scheduler
	events    *ingest.Router
	hub       *broadcast.Hub

	backgroundCtx    context.Context
	cancelBackground context.CancelFunc
}

// New creates a new server with all dependencies
func New(cfg *config.Config, db *database.Connections, logger *log.Logger) (*Server, error) {
	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sealer, err := secrets.NewSealer(cfg.Auth.SealKey)
	if err != nil {
		return nil, fmt.Errorf("initialize sealer: %w", err)
	}

	cacheClient := cache.New(db.Redis, logger)
	eventLog := store.NewEventLog(db.MongoDB)
	st := store.NewMySQLStore(db.MySQL, eventLog)

	hub := broadcast.NewHub(logger)
	machine := matchstate.NewMachine(st, hub, logger)

	backgroundCtx, cancel := context.WithCancel(context.Background())
	eventRouter := ingest.NewRouter(backgroundCtx, machine, hub, cacheClient, logger)

	rconClient := rcon.NewClient()
	sched := scheduler.New(st, rconClient, hub, machine, sealer, cacheClient,
		cfg.Scheduler, cfg.Auth.ServerToken, cfg.External.BaseURL, logger)
	machine.SetAdvancer(sched)
	if cfg.Features.EnableDiscord && cfg.External.DiscordWebhookURL != "" {
		sched.SetNotifier(discord.NewNotifier(cfg.External.DiscordWebhookURL, logger))
	}

	deps := &api.Deps{
		Store:     st,
		Cache:     cacheClient,
		Events:    eventRouter,
		Scheduler: sched,
		Machine:   machine,
		RCON:      rconClient,
		Sealer:    sealer,
		Steam:     steam.NewClient(cfg.External.SteamAPIKey, logger),
		Config:    cfg,
		Logger:    logger,
	}

	router := setupRouter(cfg, db, deps, hub, cacheClient, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		config:           cfg,
		router:           router,
		logger:           logger,
		server:           srv,
		scheduler:        sched,
		events:           eventRouter,
		hub:              hub,
		backgroundCtx:    backgroundCtx,
		cancelBackground: cancel,
	}, nil
}

// setupRouter configures all routes and middleware
func setupRouter(cfg *config.Config, db *database.Connections, deps *api.Deps, hub *broadcast.Hub, cacheClient *cache.Cache, logger *log.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimiter(cacheClient))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.External.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.ServerTokenHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * 3600, // 12 hours
	}))

	// Maintenance mode middleware
	if cfg.Features.MaintenanceMode {
		router.Use(middleware.MaintenanceMode())
	}

	// Health check (always available)
	router.GET("/health", api.HealthCheck(cfg, db))

	// API routes
	apiGroup := router.Group("/api")
	{
		api.RegisterTeamRoutes(apiGroup, deps)
		api.RegisterServerRoutes(apiGroup, deps)
		api.RegisterTournamentRoutes(apiGroup, deps)
		api.RegisterMatchRoutes(apiGroup, deps)
		api.RegisterEventRoutes(apiGroup, deps)
		api.RegisterRCONRoutes(apiGroup, deps)
		api.RegisterDemoRoutes(apiGroup, deps)
	}

	// Push channel (if enabled)
	if cfg.Features.EnableWebSocket {
		router.GET("/ws", broadcast.HandleConnection(hub))
	}

	return router
}

// Start launches the background goroutines and begins listening for
// HTTP requests.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.events.Run()
	go s.scheduler.Run(s.backgroundCtx)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server: HTTP drains first, then
// the background context is cancelled. It returns without waiting for
// the scheduler or the per-match interpreter goroutines to exit, so an
// in-flight RCON push is aborted rather than finished.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down server...")
	err := s.server.Shutdown(ctx)
	s.cancelBackground()
	return err
}
