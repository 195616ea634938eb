// internal/store/migrate.go
// Idempotent schema bootstrap for the MySQL tables. Run once at startup;
// a failure here is unrecoverable and the process exits with code 2.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id              VARCHAR(64)  PRIMARY KEY,
		name            VARCHAR(255) NOT NULL,
		tag             VARCHAR(8)   NOT NULL DEFAULT '',
		discord_role_id VARCHAR(64)  NULL,
		players         JSON         NOT NULL,
		created_at      DATETIME(3)  NOT NULL,
		updated_at      DATETIME(3)  NOT NULL,
		version         INT          NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS servers (
		id                   VARCHAR(64)  PRIMARY KEY,
		name                 VARCHAR(255) NOT NULL,
		host                 VARCHAR(255) NOT NULL,
		port                 INT          NOT NULL,
		rcon_password_sealed TEXT         NOT NULL,
		enabled              BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at           DATETIME(3)  NOT NULL,
		updated_at           DATETIME(3)  NOT NULL,
		version              INT          NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS tournament (
		id         VARCHAR(32)  PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		type       VARCHAR(32)  NOT NULL,
		format     VARCHAR(8)   NOT NULL,
		map_pool   JSON         NOT NULL,
		team_ids   JSON         NOT NULL,
		status     VARCHAR(32)  NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		updated_at DATETIME(3)  NOT NULL,
		version    INT          NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id                 VARCHAR(64)  PRIMARY KEY,
		slug               VARCHAR(255) NOT NULL UNIQUE,
		round              INT          NOT NULL,
		match_number       INT          NOT NULL,
		bracket_tag        VARCHAR(64)  NOT NULL DEFAULT '',
		team1_ref          VARCHAR(64)  NULL,
		team2_ref          VARCHAR(64)  NULL,
		winner_ref         VARCHAR(64)  NULL,
		server_ref         VARCHAR(64)  NULL,
		status             VARCHAR(32)  NOT NULL,
		created_at         DATETIME(3)  NOT NULL,
		ready_at           DATETIME(3)  NULL,
		loaded_at          DATETIME(3)  NULL,
		completed_at       DATETIME(3)  NULL,
		veto_completed     BOOLEAN      NOT NULL DEFAULT FALSE,
		match_phase        VARCHAR(32)  NOT NULL DEFAULT 'none',
		config             JSON         NOT NULL,
		map_results        JSON         NOT NULL,
		team1_score        INT          NOT NULL DEFAULT 0,
		team2_score        INT          NOT NULL DEFAULT 0,
		team1_series_score INT          NOT NULL DEFAULT 0,
		team2_series_score INT          NOT NULL DEFAULT 0,
		demo_file_paths    JSON         NOT NULL,
		next_match_slot    JSON         NULL,
		loser_next_slot    JSON         NULL,
		notes              TEXT         NULL,
		version            INT          NOT NULL DEFAULT 1,
		INDEX idx_matches_status (status),
		INDEX idx_matches_server (server_ref)
	)`,
	`CREATE TABLE IF NOT EXISTS veto_states (
		match_slug VARCHAR(255) PRIMARY KEY,
		state      JSON         NOT NULL,
		updated_at DATETIME(3)  NOT NULL
	)`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
