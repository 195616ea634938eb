// internal/ingest/event.go
// Normalization of raw plugin webhook payloads into canonical events.
// The plugin's payloads are loosely shaped (string-or-number matchids,
// three competing player-object spellings), so all the tolerance lives
// here and nowhere else; everything downstream sees CanonicalEvent only.

package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
)

// Recognized event kinds. Anything else is stored but not interpreted.
const (
	KindSeriesStart       = "series_start"
	KindSeriesEnd         = "series_end"
	KindMapResult         = "map_result"
	KindMapPicked         = "map_picked"
	KindMapVetoed         = "map_vetoed"
	KindSidePicked        = "side_picked"
	KindGoingLive         = "going_live"
	KindRoundEnd          = "round_end"
	KindRoundMVP          = "round_mvp"
	KindPlayerConnect     = "player_connect"
	KindPlayerDisconnect  = "player_disconnect"
	KindPlayerDeath       = "player_death"
	KindPlayerStatsUpdate = "player_stats_update"
	KindBombPlanted       = "bomb_planted"
	KindBombDefused       = "bomb_defused"
	KindBombExploded      = "bomb_exploded"
)

var interpretedKinds = map[string]bool{
	KindSeriesStart: true, KindSeriesEnd: true, KindMapResult: true,
	KindMapPicked: true, KindMapVetoed: true, KindSidePicked: true,
	KindGoingLive: true, KindRoundEnd: true, KindRoundMVP: true,
	KindPlayerConnect: true, KindPlayerDisconnect: true, KindPlayerDeath: true,
	KindPlayerStatsUpdate: true, KindBombPlanted: true, KindBombDefused: true,
	KindBombExploded: true,
}

// CanonicalEvent is the normalized shape every recognized webhook
// payload is reduced to before interpretation.
type CanonicalEvent struct {
	MatchSlug       string
	Kind            string
	ActorTeam       models.TeamSide
	Winner          models.TeamSide
	MapName         string
	MapNumber       int
	NumMaps         int
	Score1          int
	Score2          int
	SeriesScore1    int
	SeriesScore2    int
	RoundNumber     int
	Weapon          string
	Headshot        bool
	SteamID         string
	PlayerName      string
	AttackerSteamID string
	VictimSteamID   string
	SideChoice      string
	Stats           *models.PlayerStats
	Timestamp       time.Time

	// Raw preserves the original payload for the append-only log.
	Raw json.RawMessage
}

// Interpreted reports whether the kind has state-machine meaning.
func (e *CanonicalEvent) Interpreted() bool {
	return interpretedKinds[e.Kind]
}

// Normalize converts a raw plugin payload into a CanonicalEvent.
// Unknown kinds normalize successfully (they are logged, not dropped);
// a payload with no matchid at all is a validation error.
func Normalize(raw []byte) (*CanonicalEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.Validation, "malformed event payload", err)
	}

	slug := str(payload, "matchid", "matchId", "match_slug", "matchSlug")
	if slug == "" {
		return nil, apperrors.Validationf("event payload carries no matchid")
	}

	kind := str(payload, "event", "eventKind", "kind")
	if kind == "" {
		return nil, apperrors.Validationf("event payload carries no event kind")
	}

	ev := &CanonicalEvent{
		MatchSlug:       slug,
		Kind:            kind,
		MapName:         str(payload, "map_name", "mapName", "map"),
		MapNumber:       num(payload, "map_number", "mapNumber"),
		NumMaps:         num(payload, "num_maps", "numMaps"),
		RoundNumber:     num(payload, "round_number", "roundNumber", "round"),
		Weapon:          str(payload, "weapon"),
		Headshot:        boolean(payload, "headshot", "isHeadshot"),
		SideChoice:      str(payload, "side", "sideChoice"),
		ActorTeam:       side(str(payload, "team", "actor", "actorTeam")),
		Winner:          side(str(payload, "winner", "winnerTeam")),
		Score1:          num(payload, "team1_score", "score1", "team1Score"),
		Score2:          num(payload, "team2_score", "score2", "team2Score"),
		SeriesScore1:    num(payload, "team1_series_score", "seriesScore1", "team1SeriesScore"),
		SeriesScore2:    num(payload, "team2_series_score", "seriesScore2", "team2SeriesScore"),
		AttackerSteamID: playerSteamID(payload, "attacker", 0),
		VictimSteamID:   playerSteamID(payload, "victim", 1),
		Timestamp:       time.Now(),
		Raw:             json.RawMessage(raw),
	}

	// Single-player events carry one player object (or flat fields).
	if p, name := player(payload, 0); p != "" {
		ev.SteamID = p
		ev.PlayerName = name
	}

	if stats, ok := payload["stats"].(map[string]interface{}); ok {
		ev.Stats = &models.PlayerStats{
			SteamID:   ev.SteamID,
			Name:      ev.PlayerName,
			Kills:     num(stats, "kills"),
			Deaths:    num(stats, "deaths"),
			Headshots: num(stats, "headshots"),
			MVPs:      num(stats, "mvps", "mvp"),
		}
	}

	return ev, nil
}

// Event wraps a CanonicalEvent into the persistable MatchEvent record.
func (e *CanonicalEvent) Event() *models.MatchEvent {
	return &models.MatchEvent{
		MatchSlug:  e.MatchSlug,
		ReceivedAt: e.Timestamp,
		EventKind:  e.Kind,
		Payload:    e.Raw,
	}
}

// --- tolerant field extraction ---

// str returns the first present non-empty string among keys. Numbers
// are stringified, so a numeric matchid still resolves.
func str(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

func num(m map[string]interface{}, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

func boolean(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		switch v := m[k].(type) {
		case bool:
			return v
		case float64:
			return v != 0
		}
	}
	return false
}

func side(s string) models.TeamSide {
	switch s {
	case "team1", "1":
		return models.Team1
	case "team2", "2":
		return models.Team2
	}
	return ""
}

// playerSteamID digs a steam id out of a nested player object under key.
func playerSteamID(m map[string]interface{}, key string, index int) string {
	obj, ok := m[key].(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := extractPlayer(obj, index)
	return id
}

// player resolves the event's primary player from either a nested
// "player" object or flat steamid/name fields.
func player(m map[string]interface{}, index int) (steamID, name string) {
	if obj, ok := m["player"].(map[string]interface{}); ok {
		return extractPlayer(obj, index)
	}
	if id := str(m, "steamid", "steamId", "steam_id"); id != "" {
		return id, str(m, "name", "player_name", "playerName")
	}
	return "", ""
}

// extractPlayer applies the canonical steam-id precedence: an explicit
// "steamid" field, then "steamId", then a nested name.steamId, then a
// synthesized placeholder. The placeholder is a degraded case callers
// should surface as a warning.
func extractPlayer(obj map[string]interface{}, index int) (steamID, name string) {
	name = str(obj, "name", "displayName", "username")
	if id := str(obj, "steamid"); id != "" {
		return id, name
	}
	if id := str(obj, "steamId"); id != "" {
		return id, name
	}
	if nested, ok := obj["name"].(map[string]interface{}); ok {
		name = str(nested, "name", "displayName")
		if id := str(nested, "steamId", "steamid"); id != "" {
			return id, name
		}
	}
	return fmt.Sprintf("player_%d", index), name
}
