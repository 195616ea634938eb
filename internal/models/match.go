// internal/models/match.go
// Match, veto, and event entities

package models

import (
	"encoding/json"
	"time"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchReady     MatchStatus = "ready"
	MatchLoaded    MatchStatus = "loaded"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
)

type MatchPhase string

const (
	PhaseNone      MatchPhase = "none"
	PhaseWarmup    MatchPhase = "warmup"
	PhaseKnife     MatchPhase = "knife"
	PhaseVeto      MatchPhase = "veto"
	PhaseLive      MatchPhase = "live"
	PhasePostMatch MatchPhase = "post_match"
)

// TeamSide identifies which slot of a match a reference belongs to.
type TeamSide string

const (
	Team1 TeamSide = "team1"
	Team2 TeamSide = "team2"
)

// MatchConfig holds the per-match plugin settings; the handler for
// /api/matches/{slug}.json copies them into its own response document
// (matchConfigDoc), whose field names are the wire contract.
type MatchConfig struct {
	MapList             []string          `json:"maplist"`
	NumMaps             int               `json:"num_maps"`
	PlayersPerTeam      int               `json:"players_per_team"`
	ExpectedPlayersTotal int              `json:"expected_players_total"`
	Team1               MatchConfigTeam   `json:"team1"`
	Team2               MatchConfigTeam   `json:"team2"`
	SkipVeto            bool              `json:"skip_veto"`
	MapSides            []string          `json:"map_sides,omitempty"`
}

type MatchConfigTeam struct {
	Name    string            `json:"name"`
	Players map[string]string `json:"players"` // steamId -> name
}

// MapResult records the outcome of a single map within a series.
type MapResult struct {
	MapNumber     int     `json:"mapNumber" db:"map_number"`
	MapName       string  `json:"mapName" db:"map_name"`
	Team1Score    int     `json:"team1Score" db:"team1_score"`
	Team2Score    int     `json:"team2Score" db:"team2_score"`
	DemoFilePath  *string `json:"demoFilePath,omitempty" db:"demo_file_path"`
}

// Match is created by the Scheduler at tournament start and is mutable
// only through the state machine.
type Match struct {
	ID                string       `json:"id" db:"id"`
	Slug              string       `json:"slug" db:"slug"`
	Round             int          `json:"round" db:"round"`
	MatchNumber       int          `json:"matchNumber" db:"match_number"`
	BracketTag        string       `json:"bracketTag" db:"bracket_tag"`
	Team1Ref          *string      `json:"team1Ref,omitempty" db:"team1_ref"`
	Team2Ref          *string      `json:"team2Ref,omitempty" db:"team2_ref"`
	WinnerRef         *string      `json:"winnerRef,omitempty" db:"winner_ref"`
	ServerRef         *string      `json:"serverRef,omitempty" db:"server_ref"`
	Status            MatchStatus  `json:"status" db:"status"`
	CreatedAt         time.Time    `json:"createdAt" db:"created_at"`
	ReadyAt           *time.Time   `json:"readyAt,omitempty" db:"ready_at"`
	LoadedAt          *time.Time   `json:"loadedAt,omitempty" db:"loaded_at"`
	CompletedAt       *time.Time   `json:"completedAt,omitempty" db:"completed_at"`
	VetoCompleted     bool         `json:"vetoCompleted" db:"veto_completed"`
	MatchPhase        MatchPhase   `json:"matchPhase" db:"match_phase"`
	Config            MatchConfig  `json:"config" db:"-"`
	MapResults        []MapResult  `json:"mapResults" db:"-"`
	Team1Score        int          `json:"team1Score" db:"team1_score"`
	Team2Score        int          `json:"team2Score" db:"team2_score"`
	Team1SeriesScore  int          `json:"team1SeriesScore" db:"team1_series_score"`
	Team2SeriesScore  int          `json:"team2SeriesScore" db:"team2_series_score"`
	DemoFilePaths     []string     `json:"demoFilePaths" db:"-"`
	NextMatchSlot     *NextSlot    `json:"nextMatchSlot,omitempty" db:"next_match_slot"`
	LoserNextSlot     *NextSlot    `json:"loserNextSlot,omitempty" db:"loser_next_slot"`
	Notes             *string      `json:"notes,omitempty" db:"notes"`
	Version           int          `json:"version" db:"version"`
}

// NextSlot points at the match and side a winner/loser feeds into.
type NextSlot struct {
	MatchSlug string   `json:"matchSlug"`
	Side      TeamSide `json:"side"`
}

// IsWalkover reports whether exactly one team slot is occupied, meaning
// the match should complete without server allocation.
func (m *Match) IsWalkover() bool {
	return (m.Team1Ref == nil) != (m.Team2Ref == nil)
}

// VetoStep is a single action in the deterministic veto sequence.
type VetoStep struct {
	Actor      TeamSide `json:"actor"`
	Action     string   `json:"action"` // ban | pick | side_pick
	MapKey     string   `json:"mapKey,omitempty"`
	SideChoice string   `json:"sideChoice,omitempty"`
	ActedAt    *time.Time `json:"actedAt,omitempty"`
}

// VetoState tracks per-match map selection progress. UpdatedAt is the
// clock the veto-timeout auto-pick runs against.
type VetoState struct {
	MatchSlug     string     `json:"matchSlug"`
	Steps         []VetoStep `json:"steps"`
	CurrentStep   int        `json:"currentStep"`
	AvailableMaps []string   `json:"availableMaps"`
	PickedMaps    []string   `json:"pickedMaps"`
	Complete      bool       `json:"complete"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// MatchEvent is an append-only record of a normalized plugin webhook.
// Payload keeps the original body verbatim so unrecognized kinds stay
// replayable and render as JSON, not base64.
type MatchEvent struct {
	ID         int64           `json:"id" bson:"_id"`
	MatchSlug  string          `json:"matchSlug" bson:"matchSlug"`
	ReceivedAt time.Time       `json:"receivedAt" bson:"receivedAt"`
	EventKind  string          `json:"eventKind" bson:"eventKind"`
	Payload    json.RawMessage `json:"payload" bson:"payload"`
}

// ConnectedPlayer is derived, rebuildable from the event log.
type ConnectedPlayer struct {
	MatchSlug   string    `json:"matchSlug"`
	SteamID     string    `json:"steamId"`
	Name        string    `json:"name"`
	Team        TeamSide  `json:"team"`
	ConnectedAt time.Time `json:"connectedAt"`
	IsReady     bool      `json:"isReady"`
}

// PlayerStats is the per-player cumulative scoreline kept in LiveStats.
type PlayerStats struct {
	SteamID   string `json:"steamId"`
	Name      string `json:"name"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Headshots int    `json:"headshots"`
	MVPs      int    `json:"mvps"`
}

// LiveStats is the latest materialized snapshot derived from the event log.
type LiveStats struct {
	MatchSlug        string        `json:"matchSlug"`
	Team1Score       int           `json:"team1Score"`
	Team2Score       int           `json:"team2Score"`
	Team1SeriesScore int           `json:"team1SeriesScore"`
	Team2SeriesScore int           `json:"team2SeriesScore"`
	RoundNumber      int           `json:"roundNumber"`
	MapNumber        int           `json:"mapNumber"`
	MapName          string        `json:"mapName"`
	TotalMaps        int           `json:"totalMaps"`
	Status           MatchStatus   `json:"status"`
	Team1Players     []PlayerStats `json:"team1Players"`
	Team2Players     []PlayerStats `json:"team2Players"`
}
