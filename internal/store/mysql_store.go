// internal/store/mysql_store.go
// MySQL-backed implementation of Store for the transactional entities
// (teams, servers, tournament, matches, veto states): explicit column
// lists, QueryRowContext/QueryContext, manual scanning. The append-only
// event log lives in Mongo (event_log.go) instead.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
)

type txKey struct{}

// MySQLStore implements Store against MySQL plus a Mongo-backed EventLog
// for the append-only event stream.
type MySQLStore struct {
	db     *sql.DB
	events *EventLog
}

func NewMySQLStore(db *sql.DB, events *EventLog) *MySQLStore {
	return &MySQLStore{db: db, events: events}
}

// execer abstracts *sql.DB / *sql.Tx so every method works inside or
// outside an active Transaction call.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *MySQLStore) conn(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// Transaction runs fn with a MySQL transaction at repeatable-read
// isolation (snapshot isolation), committing on success and rolling
// back on any error. A Transaction call inside an active transaction
// joins it instead of opening a second one, so store methods that wrap
// themselves (CreateMatches, UpdateMatch, the cascade deletes) stay in
// their caller's snapshot and commit with it, not before it.
func (s *MySQLStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return apperrors.Wrap(apperrors.Upstream, "begin transaction", err)
	}
	defer tx.Rollback()

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.Upstream, "commit transaction", err)
	}
	return nil
}

// --- Teams ---

func (s *MySQLStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, tag, discord_role_id, players, created_at, updated_at, version
		FROM teams WHERE id = ?`, id)

	var t models.Team
	var playersJSON []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Tag, &t.DiscordRoleID, &playersJSON, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("team %q not found", id)
		}
		return nil, apperrors.Wrap(apperrors.Internal, "get team", err)
	}
	if len(playersJSON) > 0 {
		if err := json.Unmarshal(playersJSON, &t.Players); err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "decode team players", err)
		}
	}
	return &t, nil
}

func (s *MySQLStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, tag, discord_role_id, players, created_at, updated_at, version
		FROM teams ORDER BY name`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "list teams", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		var playersJSON []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Tag, &t.DiscordRoleID, &playersJSON, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "scan team", err)
		}
		if len(playersJSON) > 0 {
			json.Unmarshal(playersJSON, &t.Players)
		}
		teams = append(teams, &t)
	}
	return teams, nil
}

func (s *MySQLStore) UpsertTeam(ctx context.Context, team *models.Team) error {
	playersJSON, err := json.Marshal(team.Players)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "encode team players", err)
	}
	now := time.Now()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	team.UpdatedAt = now

	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO teams (id, name, tag, discord_role_id, players, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), tag = VALUES(tag), discord_role_id = VALUES(discord_role_id),
			players = VALUES(players), updated_at = VALUES(updated_at), version = version + 1`,
		team.ID, team.Name, team.Tag, team.DiscordRoleID, playersJSON, team.CreatedAt, team.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "upsert team", err)
	}
	return nil
}

// DeleteTeam fails with Conflict while the team is referenced by a
// non-completed match.
func (s *MySQLStore) DeleteTeam(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		var count int
		row := s.conn(ctx).QueryRowContext(ctx, `
			SELECT COUNT(*) FROM matches
			WHERE (team1_ref = ? OR team2_ref = ?) AND status != ?`,
			id, id, models.MatchCompleted)
		if err := row.Scan(&count); err != nil {
			return apperrors.Wrap(apperrors.Internal, "check team references", err)
		}
		if count > 0 {
			return apperrors.Conflictf("team %q is referenced by %d non-completed match(es)", id, count)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id); err != nil {
			return apperrors.Wrap(apperrors.Internal, "delete team", err)
		}
		return nil
	})
}

// --- Servers ---

func (s *MySQLStore) GetServer(ctx context.Context, id string) (*models.Server, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, host, port, rcon_password_sealed, enabled, created_at, updated_at, version
		FROM servers WHERE id = ?`, id)

	var srv models.Server
	if err := row.Scan(&srv.ID, &srv.Name, &srv.Host, &srv.Port, &srv.RCONPassword, &srv.Enabled, &srv.CreatedAt, &srv.UpdatedAt, &srv.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("server %q not found", id)
		}
		return nil, apperrors.Wrap(apperrors.Internal, "get server", err)
	}
	return &srv, nil
}

func (s *MySQLStore) ListServers(ctx context.Context) ([]*models.Server, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, name, host, port, rcon_password_sealed, enabled, created_at, updated_at, version
		FROM servers ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "list servers", err)
	}
	defer rows.Close()

	servers := make([]*models.Server, 0)
	for rows.Next() {
		var srv models.Server
		if err := rows.Scan(&srv.ID, &srv.Name, &srv.Host, &srv.Port, &srv.RCONPassword, &srv.Enabled, &srv.CreatedAt, &srv.UpdatedAt, &srv.Version); err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "scan server", err)
		}
		servers = append(servers, &srv)
	}
	return servers, nil
}

// UpsertServer enforces the (host, port) uniqueness invariant among
// enabled servers inside a transaction.
func (s *MySQLStore) UpsertServer(ctx context.Context, srv *models.Server) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		if srv.Enabled {
			var count int
			row := s.conn(ctx).QueryRowContext(ctx, `
				SELECT COUNT(*) FROM servers WHERE host = ? AND port = ? AND enabled = 1 AND id != ?`,
				srv.Host, srv.Port, srv.ID)
			if err := row.Scan(&count); err != nil {
				return apperrors.Wrap(apperrors.Internal, "check server uniqueness", err)
			}
			if count > 0 {
				return apperrors.Conflictf("server %s:%d already in use by an enabled server", srv.Host, srv.Port)
			}
		}

		now := time.Now()
		if srv.CreatedAt.IsZero() {
			srv.CreatedAt = now
		}
		srv.UpdatedAt = now

		_, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO servers (id, name, host, port, rcon_password_sealed, enabled, created_at, updated_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name), host = VALUES(host), port = VALUES(port),
				rcon_password_sealed = VALUES(rcon_password_sealed), enabled = VALUES(enabled),
				updated_at = VALUES(updated_at), version = version + 1`,
			srv.ID, srv.Name, srv.Host, srv.Port, srv.RCONPassword, srv.Enabled, srv.CreatedAt, srv.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(apperrors.Internal, "upsert server", err)
		}
		return nil
	})
}

func (s *MySQLStore) DeleteServer(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		var count int
		row := s.conn(ctx).QueryRowContext(ctx, `
			SELECT COUNT(*) FROM matches WHERE server_ref = ? AND status != ?`,
			id, models.MatchCompleted)
		if err := row.Scan(&count); err != nil {
			return apperrors.Wrap(apperrors.Internal, "check server references", err)
		}
		if count > 0 {
			return apperrors.Conflictf("server %q is bound to %d non-completed match(es)", id, count)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id); err != nil {
			return apperrors.Wrap(apperrors.Internal, "delete server", err)
		}
		return nil
	})
}

// --- Tournament (singleton) ---

func (s *MySQLStore) GetTournament(ctx context.Context) (*models.Tournament, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, type, format, map_pool, team_ids, status, created_at, updated_at, version
		FROM tournament WHERE id = ?`, models.SingletonID)

	var t models.Tournament
	var mapPoolJSON, teamIDsJSON []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Format, &mapPoolJSON, &teamIDsJSON, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("tournament not configured")
		}
		return nil, apperrors.Wrap(apperrors.Internal, "get tournament", err)
	}
	json.Unmarshal(mapPoolJSON, &t.MapPool)
	json.Unmarshal(teamIDsJSON, &t.TeamIDs)
	return &t, nil
}

func (s *MySQLStore) UpsertTournament(ctx context.Context, t *models.Tournament) error {
	t.ID = models.SingletonID
	mapPoolJSON, _ := json.Marshal(t.MapPool)
	teamIDsJSON, _ := json.Marshal(t.TeamIDs)
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO tournament (id, name, type, format, map_pool, team_ids, status, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), type = VALUES(type), format = VALUES(format),
			map_pool = VALUES(map_pool), team_ids = VALUES(team_ids), status = VALUES(status),
			updated_at = VALUES(updated_at), version = version + 1`,
		t.ID, t.Name, t.Type, t.Format, mapPoolJSON, teamIDsJSON, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "upsert tournament", err)
	}
	return nil
}

// ResetTournament clears matches and events and returns the tournament
// to setup, as required before a fresh bracket can be regenerated.
func (s *MySQLStore) ResetTournament(ctx context.Context) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx, `UPDATE servers SET version = version`); err != nil {
			return apperrors.Wrap(apperrors.Internal, "touch servers", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM matches`); err != nil {
			return apperrors.Wrap(apperrors.Internal, "clear matches", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM veto_states`); err != nil {
			return apperrors.Wrap(apperrors.Internal, "clear veto states", err)
		}
		if _, err := s.conn(ctx).ExecContext(ctx, `
			UPDATE tournament SET status = ?, updated_at = ?, version = version + 1 WHERE id = ?`,
			models.TournamentSetup, time.Now(), models.SingletonID); err != nil {
			return apperrors.Wrap(apperrors.Internal, "reset tournament status", err)
		}
		if s.events != nil {
			if err := s.events.Clear(ctx); err != nil {
				return apperrors.Wrap(apperrors.Internal, "clear event log", err)
			}
		}
		return nil
	})
}

// WipeDatabase additionally removes teams, servers, and the tournament row.
func (s *MySQLStore) WipeDatabase(ctx context.Context) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		for _, table := range []string{"veto_states", "matches", "servers", "teams", "tournament"} {
			if _, err := s.conn(ctx).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
				return apperrors.Wrap(apperrors.Internal, "wipe "+table, err)
			}
		}
		if s.events != nil {
			if err := s.events.Clear(ctx); err != nil {
				return apperrors.Wrap(apperrors.Internal, "clear event log", err)
			}
		}
		return nil
	})
}

var wipeableTables = map[string]bool{
	"teams": true, "servers": true, "tournament": true, "matches": true,
}

func (s *MySQLStore) WipeTable(ctx context.Context, table string) error {
	if !wipeableTables[table] {
		return apperrors.Validationf("unknown table %q", table)
	}
	_, err := s.conn(ctx).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table))
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "wipe table", err)
	}
	return nil
}

// --- Matches ---

// CreateMatches inserts an entire bracket atomically.
func (s *MySQLStore) CreateMatches(ctx context.Context, batch []*models.Match) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		for _, m := range batch {
			if err := s.insertMatch(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MySQLStore) insertMatch(ctx context.Context, m *models.Match) error {
	configJSON, _ := json.Marshal(m.Config)
	mapResultsJSON, _ := json.Marshal(m.MapResults)
	demoPathsJSON, _ := json.Marshal(m.DemoFilePaths)
	nextSlotJSON := marshalSlot(m.NextMatchSlot)
	loserSlotJSON := marshalSlot(m.LoserNextSlot)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO matches (
			id, slug, round, match_number, bracket_tag, team1_ref, team2_ref,
			winner_ref, server_ref, status, created_at, ready_at, loaded_at,
			completed_at, veto_completed, match_phase, config, map_results,
			team1_score, team2_score, team1_series_score, team2_series_score,
			demo_file_paths, next_match_slot, loser_next_slot, notes, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		m.ID, m.Slug, m.Round, m.MatchNumber, m.BracketTag, m.Team1Ref, m.Team2Ref,
		m.WinnerRef, m.ServerRef, m.Status, m.CreatedAt, m.ReadyAt, m.LoadedAt,
		m.CompletedAt, m.VetoCompleted, m.MatchPhase, configJSON, mapResultsJSON,
		m.Team1Score, m.Team2Score, m.Team1SeriesScore, m.Team2SeriesScore,
		demoPathsJSON, nextSlotJSON, loserSlotJSON, m.Notes)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "insert match "+m.Slug, err)
	}
	return nil
}

// marshalSlot keeps absent bracket links as SQL NULL rather than "null" JSON.
func marshalSlot(slot *models.NextSlot) []byte {
	if slot == nil {
		return nil
	}
	data, _ := json.Marshal(slot)
	return data
}

const matchColumns = `
	id, slug, round, match_number, bracket_tag, team1_ref, team2_ref,
	winner_ref, server_ref, status, created_at, ready_at, loaded_at,
	completed_at, veto_completed, match_phase, config, map_results,
	team1_score, team2_score, team1_series_score, team2_series_score,
	demo_file_paths, next_match_slot, loser_next_slot, notes, version`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var configJSON, mapResultsJSON, demoPathsJSON, nextSlotJSON, loserSlotJSON []byte
	err := row.Scan(
		&m.ID, &m.Slug, &m.Round, &m.MatchNumber, &m.BracketTag, &m.Team1Ref, &m.Team2Ref,
		&m.WinnerRef, &m.ServerRef, &m.Status, &m.CreatedAt, &m.ReadyAt, &m.LoadedAt,
		&m.CompletedAt, &m.VetoCompleted, &m.MatchPhase, &configJSON, &mapResultsJSON,
		&m.Team1Score, &m.Team2Score, &m.Team1SeriesScore, &m.Team2SeriesScore,
		&demoPathsJSON, &nextSlotJSON, &loserSlotJSON, &m.Notes, &m.Version)
	if err != nil {
		return nil, err
	}
	json.Unmarshal(configJSON, &m.Config)
	json.Unmarshal(mapResultsJSON, &m.MapResults)
	json.Unmarshal(demoPathsJSON, &m.DemoFilePaths)
	if len(nextSlotJSON) > 0 {
		json.Unmarshal(nextSlotJSON, &m.NextMatchSlot)
	}
	if len(loserSlotJSON) > 0 {
		json.Unmarshal(loserSlotJSON, &m.LoserNextSlot)
	}
	return &m, nil
}

func (s *MySQLStore) GetMatch(ctx context.Context, slug string) (*models.Match, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE slug = ?`, slug)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("match %q not found", slug)
		}
		return nil, apperrors.Wrap(apperrors.Internal, "get match", err)
	}
	return m, nil
}

func (s *MySQLStore) ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.BracketTag != "" {
		query += ` AND bracket_tag = ?`
		args = append(args, filter.BracketTag)
	}
	if filter.ServerRef != "" {
		query += ` AND server_ref = ?`
		args = append(args, filter.ServerRef)
	}
	if filter.HasRound {
		query += ` AND round = ?`
		args = append(args, filter.Round)
	}
	query += ` ORDER BY round ASC, match_number ASC, created_at ASC`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "list matches", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "scan match", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// UpdateMatch applies patch under an optimistic lock on the version
// column. A version mismatch returns apperrors.Stale; callers reload
// and retry.
func (s *MySQLStore) UpdateMatch(ctx context.Context, slug string, patch MatchPatch) (*models.Match, error) {
	var updated *models.Match
	err := s.Transaction(ctx, func(ctx context.Context) error {
		m, err := s.GetMatch(ctx, slug)
		if err != nil {
			return err
		}
		if m.Version != patch.ExpectedVersion {
			return apperrors.New(apperrors.Stale, fmt.Sprintf("match %q version mismatch: have %d, expected %d", slug, m.Version, patch.ExpectedVersion))
		}

		applyMatchPatch(m, patch)
		configJSON, _ := json.Marshal(m.Config)
		mapResultsJSON, _ := json.Marshal(m.MapResults)
		demoPathsJSON, _ := json.Marshal(m.DemoFilePaths)

		res, err := s.conn(ctx).ExecContext(ctx, `
			UPDATE matches SET
				status = ?, match_phase = ?, team1_ref = ?, team2_ref = ?, winner_ref = ?,
				server_ref = ?, ready_at = ?, loaded_at = ?, completed_at = ?, veto_completed = ?,
				config = ?, map_results = ?, team1_score = ?, team2_score = ?,
				team1_series_score = ?, team2_series_score = ?, demo_file_paths = ?, notes = ?,
				version = version + 1
			WHERE slug = ? AND version = ?`,
			m.Status, m.MatchPhase, m.Team1Ref, m.Team2Ref, m.WinnerRef,
			m.ServerRef, m.ReadyAt, m.LoadedAt, m.CompletedAt, m.VetoCompleted,
			configJSON, mapResultsJSON, m.Team1Score, m.Team2Score,
			m.Team1SeriesScore, m.Team2SeriesScore, demoPathsJSON, m.Notes,
			slug, patch.ExpectedVersion)
		if err != nil {
			return apperrors.Wrap(apperrors.Internal, "update match", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return apperrors.New(apperrors.Stale, fmt.Sprintf("match %q was modified concurrently", slug))
		}
		m.Version++
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyMatchPatch(m *models.Match, patch MatchPatch) {
	now := time.Now()
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if patch.MatchPhase != nil {
		m.MatchPhase = *patch.MatchPhase
	}
	if patch.Team1Ref != nil {
		m.Team1Ref = *patch.Team1Ref
	}
	if patch.Team2Ref != nil {
		m.Team2Ref = *patch.Team2Ref
	}
	if patch.WinnerRef != nil {
		m.WinnerRef = *patch.WinnerRef
	}
	if patch.ServerRef != nil {
		m.ServerRef = *patch.ServerRef
	}
	if patch.ReadyAt != nil && *patch.ReadyAt && m.ReadyAt == nil {
		m.ReadyAt = &now
	}
	if patch.LoadedAt != nil && *patch.LoadedAt && m.LoadedAt == nil {
		m.LoadedAt = &now
	}
	if patch.CompletedAt != nil && *patch.CompletedAt && m.CompletedAt == nil {
		m.CompletedAt = &now
	}
	if patch.VetoCompleted != nil {
		m.VetoCompleted = *patch.VetoCompleted
	}
	if patch.Config != nil {
		m.Config = *patch.Config
	}
	if patch.MapResults != nil {
		m.MapResults = *patch.MapResults
	}
	if patch.Team1Score != nil {
		m.Team1Score = *patch.Team1Score
	}
	if patch.Team2Score != nil {
		m.Team2Score = *patch.Team2Score
	}
	if patch.Team1SeriesScore != nil {
		m.Team1SeriesScore = *patch.Team1SeriesScore
	}
	if patch.Team2SeriesScore != nil {
		m.Team2SeriesScore = *patch.Team2SeriesScore
	}
	if patch.DemoFilePaths != nil {
		m.DemoFilePaths = *patch.DemoFilePaths
	}
	if patch.Notes != nil {
		m.Notes = *patch.Notes
	}
}

// --- Veto states ---

func (s *MySQLStore) GetVeto(ctx context.Context, matchSlug string) (*models.VetoState, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT state FROM veto_states WHERE match_slug = ?`, matchSlug)

	var stateJSON []byte
	if err := row.Scan(&stateJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("veto state for match %q not found", matchSlug)
		}
		return nil, apperrors.Wrap(apperrors.Internal, "get veto state", err)
	}
	var veto models.VetoState
	if err := json.Unmarshal(stateJSON, &veto); err != nil {
		return nil, apperrors.Wrap(apperrors.Internal, "decode veto state", err)
	}
	return &veto, nil
}

func (s *MySQLStore) SaveVeto(ctx context.Context, veto *models.VetoState) error {
	veto.UpdatedAt = time.Now()
	stateJSON, err := json.Marshal(veto)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "encode veto state", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO veto_states (match_slug, state, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state), updated_at = VALUES(updated_at)`,
		veto.MatchSlug, stateJSON, veto.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "save veto state", err)
	}
	return nil
}

// --- Events (delegated to Mongo-backed EventLog) ---

func (s *MySQLStore) AppendEvent(ctx context.Context, event *models.MatchEvent) (int64, error) {
	return s.events.Append(ctx, event)
}

func (s *MySQLStore) ListEvents(ctx context.Context, matchSlug string, afterID int64, limit int) ([]*models.MatchEvent, error) {
	return s.events.List(ctx, matchSlug, afterID, limit)
}
