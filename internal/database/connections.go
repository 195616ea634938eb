// internal/database/connections.go
// Connection bootstrap for the three stores behind the control plane:
// MySQL holds the transactional entities (teams, servers, tournament,
// matches, veto states), MongoDB holds the append-only match event log,
// and Redis carries the live-state caches and rate-limit counters.
// Every dial retries with exponential backoff so the process survives
// databases that come up after it does (compose, k8s rollouts).

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	dialAttempts    = 5
	dialBackoffBase = 500 * time.Millisecond
)

// Connections holds the three live store handles.
type Connections struct {
	MySQL   *sql.DB
	MongoDB *mongo.Database
	Redis   *redis.Client
	logger  *log.Logger
}

// Config holds configuration for all three stores
type Config struct {
	MySQL   MySQLConfig
	MongoDB MongoConfig
	Redis   RedisConfig
}

// MySQLConfig contains MySQL connection parameters
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoConfig contains MongoDB connection parameters
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig contains Redis connection parameters
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Initialize dials all three stores. Any failure closes whatever was
// already opened and returns the error; the caller treats it as fatal.
func Initialize(ctx context.Context, cfg Config, logger *log.Logger) (*Connections, error) {
	conn := &Connections{logger: logger}

	if err := conn.dial(ctx, "entity store (MySQL)", func(ctx context.Context) error {
		return conn.initMySQL(ctx, cfg.MySQL)
	}); err != nil {
		return nil, err
	}

	if err := conn.dial(ctx, "event log (MongoDB)", func(ctx context.Context) error {
		return conn.initMongoDB(ctx, cfg.MongoDB)
	}); err != nil {
		conn.Close()
		return nil, err
	}

	if err := conn.dial(ctx, "live-state cache (Redis)", func(ctx context.Context) error {
		return conn.initRedis(ctx, cfg.Redis)
	}); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Println("Entity store, event log, and cache connected")
	return conn, nil
}

// dial retries one store's init with exponential backoff, the same
// retry discipline the scheduler applies to RCON pushes.
func (c *Connections) dial(ctx context.Context, name string, init func(ctx context.Context) error) error {
	backoff := dialBackoffBase
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		if lastErr = init(ctx); lastErr == nil {
			c.logger.Printf("Connected to %s", name)
			return nil
		}
		c.logger.Printf("Connecting to %s failed (attempt %d/%d): %v", name, attempt, dialAttempts, lastErr)
		if attempt == dialAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("%s unreachable after %d attempts: %w", name, dialAttempts, lastErr)
}

func (c *Connections) initMySQL(ctx context.Context, cfg MySQLConfig) error {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	c.MySQL = db
	return nil
}

func (c *Connections) initMongoDB(ctx context.Context, cfg MongoConfig) error {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return err
	}
	c.MongoDB = client.Database(cfg.Database)
	return nil
}

func (c *Connections) initRedis(ctx context.Context, cfg RedisConfig) error {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}
	c.Redis = client
	return nil
}

// Close releases whatever subset of the connections is open.
func (c *Connections) Close() {
	if c.MySQL != nil {
		if err := c.MySQL.Close(); err != nil {
			c.logger.Printf("Closing entity store: %v", err)
		}
	}

	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.MongoDB.Client().Disconnect(ctx); err != nil {
			c.logger.Printf("Closing event log: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Printf("Closing cache: %v", err)
		}
	}
}

// HealthCheck pings all three stores; the first failure wins.
func (c *Connections) HealthCheck(ctx context.Context) error {
	if err := c.MySQL.PingContext(ctx); err != nil {
		return fmt.Errorf("entity store health check failed: %w", err)
	}
	if err := c.MongoDB.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("event log health check failed: %w", err)
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
