// internal/ingest/livestate.go
// Per-match derived state: connected players and the live scoreboard
// snapshot. The event log is the source of truth; a tracker is owned by
// its slug's interpreter goroutine and is fully rebuildable by replay.

package ingest

import (
	"sync"
	"time"

	"matchzy-auto-tournament/internal/models"
)

// LiveTracker accumulates the derived live state for one match slug.
// Mutation happens only on the owning interpreter goroutine; reads take
// a snapshot copy under the lock.
type LiveTracker struct {
	mu sync.RWMutex

	matchSlug string
	stats     models.LiveStats
	connected map[string]*models.ConnectedPlayer
	players   map[string]*models.PlayerStats
	teamOf    map[string]models.TeamSide
	lastEvent time.Time
}

// NewLiveTracker creates an empty tracker for a match slug.
func NewLiveTracker(matchSlug string) *LiveTracker {
	return &LiveTracker{
		matchSlug: matchSlug,
		stats:     models.LiveStats{MatchSlug: matchSlug, Status: models.MatchLoaded},
		connected: make(map[string]*models.ConnectedPlayer),
		players:   make(map[string]*models.PlayerStats),
		teamOf:    make(map[string]models.TeamSide),
	}
}

// Apply folds one event into the derived state.
func (t *LiveTracker) Apply(ev *CanonicalEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case KindSeriesStart:
		t.stats.Status = models.MatchLive
		t.stats.TotalMaps = ev.NumMaps

	case KindSeriesEnd:
		t.stats.Status = models.MatchCompleted
		t.stats.Team1SeriesScore = ev.SeriesScore1
		t.stats.Team2SeriesScore = ev.SeriesScore2

	case KindMapResult:
		if ev.Winner == models.Team1 || ev.Score1 > ev.Score2 {
			t.stats.Team1SeriesScore++
		} else {
			t.stats.Team2SeriesScore++
		}
		t.stats.Team1Score = 0
		t.stats.Team2Score = 0
		t.stats.RoundNumber = 0
		t.stats.MapNumber = ev.MapNumber + 1

	case KindGoingLive:
		t.stats.MapName = ev.MapName
		t.stats.Team1Score = 0
		t.stats.Team2Score = 0
		t.stats.RoundNumber = 0

	case KindRoundEnd:
		t.stats.RoundNumber = ev.RoundNumber
		t.stats.Team1Score = ev.Score1
		t.stats.Team2Score = ev.Score2

	case KindRoundMVP:
		t.player(ev.SteamID, ev.PlayerName).MVPs++

	case KindPlayerConnect:
		t.connected[ev.SteamID] = &models.ConnectedPlayer{
			MatchSlug:   t.matchSlug,
			SteamID:     ev.SteamID,
			Name:        ev.PlayerName,
			Team:        ev.ActorTeam,
			ConnectedAt: ev.Timestamp,
		}
		if ev.ActorTeam != "" {
			t.teamOf[ev.SteamID] = ev.ActorTeam
		}

	case KindPlayerDisconnect:
		delete(t.connected, ev.SteamID)

	case KindPlayerDeath:
		if ev.AttackerSteamID != "" && ev.AttackerSteamID != ev.VictimSteamID {
			attacker := t.player(ev.AttackerSteamID, "")
			attacker.Kills++
			if ev.Headshot {
				attacker.Headshots++
			}
		}
		if ev.VictimSteamID != "" {
			t.player(ev.VictimSteamID, "").Deaths++
		}

	case KindPlayerStatsUpdate:
		// The plugin sends cumulative values; replace, never merge.
		if ev.Stats != nil {
			stats := *ev.Stats
			if stats.Name == "" {
				stats.Name = t.player(ev.SteamID, "").Name
			}
			t.players[ev.SteamID] = &stats
		}
	}
}

// player returns (creating if needed) the stat line for a steam id.
// Callers hold t.mu.
func (t *LiveTracker) player(steamID, name string) *models.PlayerStats {
	p, ok := t.players[steamID]
	if !ok {
		p = &models.PlayerStats{SteamID: steamID, Name: name}
		t.players[steamID] = p
	}
	if p.Name == "" && name != "" {
		p.Name = name
	}
	return p
}

// SetMatchInfo seeds map count and status from the persisted match so a
// snapshot is meaningful before the first scoreboard event arrives.
func (t *LiveTracker) SetMatchInfo(status models.MatchStatus, totalMaps int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Status = status
	if t.stats.TotalMaps == 0 {
		t.stats.TotalMaps = totalMaps
	}
}

// Snapshot returns a copy of the live scoreboard.
func (t *LiveTracker) Snapshot() models.LiveStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.stats
	out.Team1Players = nil
	out.Team2Players = nil
	for id, p := range t.players {
		stat := *p
		if t.teamOf[id] == models.Team2 {
			out.Team2Players = append(out.Team2Players, stat)
		} else {
			out.Team1Players = append(out.Team1Players, stat)
		}
	}
	return out
}

// ConnectedPlayers returns a copy of the current connection roster.
func (t *LiveTracker) ConnectedPlayers() []models.ConnectedPlayer {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ConnectedPlayer, 0, len(t.connected))
	for _, p := range t.connected {
		out = append(out, *p)
	}
	return out
}

// LastEventAt reports when the tracker last saw activity. Zero until
// the first Apply.
func (t *LiveTracker) LastEventAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastEvent
}

// touch records activity time. Called by the owning goroutine.
func (t *LiveTracker) touch(at time.Time) {
	t.mu.Lock()
	t.lastEvent = at
	t.mu.Unlock()
}
