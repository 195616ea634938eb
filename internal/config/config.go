// internal/config/config.go
// Configuration management using environment variables and optional config files

package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	External    ExternalConfig
	Scheduler   SchedulerConfig
	Features    FeatureFlags
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig contains all database connection settings
type DatabaseConfig struct {
	MySQL   MySQLConfig
	MongoDB MongoDBConfig
	Redis   RedisConfig
}

// MySQLConfig contains MySQL-specific settings
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoDBConfig contains MongoDB-specific settings
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig contains Redis-specific settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig contains the two static secrets the system authenticates with:
// the operator bearer token and the plugin webhook token. SealKey encrypts
// RCON passwords at rest.
type AuthConfig struct {
	APIToken    string
	ServerToken string
	SealKey     []byte
}

// ExternalConfig contains third-party service configurations
type ExternalConfig struct {
	SteamAPIKey       string
	BaseURL           string
	DiscordWebhookURL string
	FrontendURL       string
	DataDir           string
	DemoDir           string
}

// SchedulerConfig tunes the allocation loop and veto timing
type SchedulerConfig struct {
	AllocationTick  time.Duration
	RCONTimeout     time.Duration
	RCONRetries     int
	RCONBackoffBase time.Duration
	VetoStepTimeout time.Duration
	StaleLoadedAge  time.Duration
}

// FeatureFlags allows toggling features without code changes
type FeatureFlags struct {
	EnableWebSocket bool
	EnableDiscord   bool
	MaintenanceMode bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist in production
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	sealKey, err := loadSealKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8080"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			MySQL: MySQLConfig{
				DSN:             getEnvOrDefault("MYSQL_DSN", ""),
				MaxOpenConns:    getIntOrDefault("MYSQL_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getIntOrDefault("MYSQL_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: getDurationOrDefault("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
			},
			MongoDB: MongoDBConfig{
				URI:      getEnvOrDefault("MONGO_URI", ""),
				Database: getEnvOrDefault("MONGO_DATABASE", "auto_tournament"),
			},
			Redis: RedisConfig{
				Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getIntOrDefault("REDIS_DB", 0),
			},
		},
		Auth: AuthConfig{
			APIToken:    getEnvOrDefault("API_TOKEN", ""),
			ServerToken: getEnvOrDefault("SERVER_TOKEN", ""),
			SealKey:     sealKey,
		},
		External: ExternalConfig{
			SteamAPIKey:       getEnvOrDefault("STEAM_API_KEY", ""),
			BaseURL:           getEnvOrDefault("BASE_URL", "http://localhost:8080"),
			DiscordWebhookURL: getEnvOrDefault("DISCORD_WEBHOOK_URL", ""),
			FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
			DataDir:           getEnvOrDefault("DATA_DIR", "./data"),
			DemoDir:           getEnvOrDefault("DEMO_DIR", "./demos"),
		},
		Scheduler: SchedulerConfig{
			AllocationTick:  getDurationOrDefault("ALLOCATION_TICK", 2*time.Second),
			RCONTimeout:     getDurationOrDefault("RCON_TIMEOUT", 3*time.Second),
			RCONRetries:     getIntOrDefault("RCON_RETRIES", 3),
			RCONBackoffBase: getDurationOrDefault("RCON_BACKOFF_BASE", 500*time.Millisecond),
			VetoStepTimeout: getDurationOrDefault("VETO_STEP_TIMEOUT", 120*time.Second),
			StaleLoadedAge:  getDurationOrDefault("STALE_LOADED_AGE", 5*time.Minute),
		},
		Features: FeatureFlags{
			EnableWebSocket: getBoolOrDefault("ENABLE_WEBSOCKET", true),
			EnableDiscord:   getBoolOrDefault("ENABLE_DISCORD", true),
			MaintenanceMode: getBoolOrDefault("MAINTENANCE_MODE", false),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadSealKey decodes the 32-byte RCON password sealing key from SEAL_KEY.
func loadSealKey() ([]byte, error) {
	encoded := os.Getenv("SEAL_KEY")
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("SEAL_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("SEAL_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Database.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.Database.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.Auth.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	if c.Auth.ServerToken == "" {
		return fmt.Errorf("SERVER_TOKEN is required")
	}
	if c.Auth.SealKey == nil {
		return fmt.Errorf("SEAL_KEY is required")
	}
	return nil
}

// Helper functions to read environment variables with defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
