// cmd/server/main.go
// This is the main entry point for the tournament control plane.
// It initializes all dependencies and starts the HTTP server.
// Exit codes: 0 clean shutdown, 1 unrecoverable configuration error,
// 2 store migration failure.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/database"
	"matchzy-auto-tournament/internal/server"
	"matchzy-auto-tournament/internal/store"
)

func main() {
	// Load configuration from environment variables and config files
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Environment)

	// Initialize database connections with retry logic
	dbConnections, err := initializeDatabases(cfg, logger)
	if err != nil {
		logger.Printf("Failed to initialize databases: %v", err)
		os.Exit(1)
	}
	defer dbConnections.Close()

	// Bootstrap the schema before anything touches the store
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(migrateCtx, dbConnections.MySQL); err != nil {
		cancelMigrate()
		logger.Printf("Store migration failed: %v", err)
		os.Exit(2)
	}
	cancelMigrate()

	// Create and configure the HTTP server with all dependencies
	srv, err := server.New(cfg, dbConnections, logger)
	if err != nil {
		logger.Printf("Failed to build server: %v", err)
		os.Exit(1)
	}

	// Start server in a goroutine to allow for graceful shutdown
	go func() {
		logger.Printf("Starting server on port %s in %s mode", cfg.Server.Port, cfg.Environment)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	gracefulShutdown(srv, logger)
}

// initializeDatabases sets up all database connections with health checks
func initializeDatabases(cfg *config.Config, logger *log.Logger) (*database.Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return database.Initialize(ctx, database.Config{
		MySQL: database.MySQLConfig{
			DSN:             cfg.Database.MySQL.DSN,
			MaxOpenConns:    cfg.Database.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.MySQL.ConnMaxLifetime,
		},
		MongoDB: database.MongoConfig{
			URI:      cfg.Database.MongoDB.URI,
			Database: cfg.Database.MongoDB.Database,
		},
		Redis: database.RedisConfig{
			Addr:     cfg.Database.Redis.Addr,
			Password: cfg.Database.Redis.Password,
			DB:       cfg.Database.Redis.DB,
		},
	}, logger)
}

// setupLogger configures logging based on the environment
func setupLogger(env string) *log.Logger {
	prefix := "[auto-tournament] "
	if env != "production" {
		prefix = "[auto-tournament:" + env + "] "
	}
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile)
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(srv *server.Server, logger *log.Logger) {
	quit := make(chan os.Signal, 1)
	// Listen for interrupt signals
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server exited")
}
