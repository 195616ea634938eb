package ingest

import (
	"strings"
	"testing"

	"matchzy-auto-tournament/internal/models"
)

func TestNormalizeSeriesStart(t *testing.T) {
	raw := `{"matchid":"a_vs_b","event":"series_start","num_maps":3,"team1":{"name":"A"},"team2":{"name":"B"}}`
	ev, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if ev.MatchSlug != "a_vs_b" || ev.Kind != KindSeriesStart || ev.NumMaps != 3 {
		t.Fatalf("got slug=%s kind=%s numMaps=%d", ev.MatchSlug, ev.Kind, ev.NumMaps)
	}
	if !ev.Interpreted() {
		t.Fatal("series_start is an interpreted kind")
	}
}

func TestNormalizeNumericMatchID(t *testing.T) {
	ev, err := Normalize([]byte(`{"matchid":42,"event":"round_end","round_number":"7","team1_score":4,"team2_score":3}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.MatchSlug != "42" {
		t.Fatalf("numeric matchid should stringify, got %q", ev.MatchSlug)
	}
	if ev.RoundNumber != 7 || ev.Score1 != 4 || ev.Score2 != 3 {
		t.Fatalf("round=%d scores=%d-%d", ev.RoundNumber, ev.Score1, ev.Score2)
	}
}

func TestNormalizeRejectsMissingMatchID(t *testing.T) {
	if _, err := Normalize([]byte(`{"event":"round_end"}`)); err == nil {
		t.Fatal("payload without matchid must fail")
	}
	if _, err := Normalize([]byte(`not json`)); err == nil {
		t.Fatal("malformed payload must fail")
	}
}

func TestNormalizeUnknownKindSucceeds(t *testing.T) {
	ev, err := Normalize([]byte(`{"matchid":"a_vs_b","event":"halftime_show"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Interpreted() {
		t.Fatal("unknown kinds are stored, not interpreted")
	}
}

func TestNormalizePlayerShapes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		steamID  string
		wantName string
	}{
		{
			"explicit steamid field",
			`{"matchid":"m","event":"player_connect","player":{"steamid":"76561198000000001","name":"alice"},"team":"team1"}`,
			"76561198000000001", "alice",
		},
		{
			"camelCase steamId field",
			`{"matchid":"m","event":"player_connect","player":{"steamId":"76561198000000002","name":"bob"}}`,
			"76561198000000002", "bob",
		},
		{
			"nested name object",
			`{"matchid":"m","event":"player_connect","player":{"name":{"steamId":"76561198000000003","name":"carol"}}}`,
			"76561198000000003", "carol",
		},
		{
			"flat fields",
			`{"matchid":"m","event":"player_connect","steamid":"76561198000000004","name":"dave"}`,
			"76561198000000004", "dave",
		},
		{
			"nothing usable synthesizes a placeholder",
			`{"matchid":"m","event":"player_connect","player":{"nick":"mystery"}}`,
			"player_0", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Normalize([]byte(tt.payload))
			if err != nil {
				t.Fatal(err)
			}
			if ev.SteamID != tt.steamID {
				t.Errorf("steamID %q, want %q", ev.SteamID, tt.steamID)
			}
			if tt.wantName != "" && ev.PlayerName != tt.wantName {
				t.Errorf("name %q, want %q", ev.PlayerName, tt.wantName)
			}
		})
	}
}

func TestNormalizePlayerDeath(t *testing.T) {
	raw := `{"matchid":"m","event":"player_death",
		"attacker":{"steamid":"76561198000000001"},
		"victim":{"steamid":"76561198000000002"},
		"weapon":"ak47","headshot":true}`
	ev, err := Normalize([]byte(strings.ReplaceAll(raw, "\n", "")))
	if err != nil {
		t.Fatal(err)
	}
	if ev.AttackerSteamID != "76561198000000001" || ev.VictimSteamID != "76561198000000002" {
		t.Fatalf("attacker=%s victim=%s", ev.AttackerSteamID, ev.VictimSteamID)
	}
	if ev.Weapon != "ak47" || !ev.Headshot {
		t.Fatalf("weapon=%s headshot=%v", ev.Weapon, ev.Headshot)
	}
}

func TestNormalizeStatsReplace(t *testing.T) {
	raw := `{"matchid":"m","event":"player_stats_update","steamid":"76561198000000001","name":"alice",
		"stats":{"kills":20,"deaths":15,"headshots":9,"mvps":3}}`
	ev, err := Normalize([]byte(strings.ReplaceAll(raw, "\n", "")))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Stats == nil || ev.Stats.Kills != 20 || ev.Stats.Deaths != 15 || ev.Stats.Headshots != 9 || ev.Stats.MVPs != 3 {
		t.Fatalf("stats %+v", ev.Stats)
	}
}

func TestTrackerStatsUpdateReplacesNotMerges(t *testing.T) {
	tracker := NewLiveTracker("m")

	first, _ := Normalize([]byte(`{"matchid":"m","event":"player_stats_update","steamid":"76561198000000001","stats":{"kills":5,"deaths":2}}`))
	second, _ := Normalize([]byte(`{"matchid":"m","event":"player_stats_update","steamid":"76561198000000001","stats":{"kills":7,"deaths":3}}`))
	tracker.Apply(first)
	tracker.Apply(second)

	snapshot := tracker.Snapshot()
	all := append(snapshot.Team1Players, snapshot.Team2Players...)
	if len(all) != 1 {
		t.Fatalf("expected one player, got %d", len(all))
	}
	if all[0].Kills != 7 || all[0].Deaths != 3 {
		t.Fatalf("cumulative values must replace, got %+v", all[0])
	}
}

func TestTrackerConnectionsAndDeaths(t *testing.T) {
	tracker := NewLiveTracker("m")

	connect, _ := Normalize([]byte(`{"matchid":"m","event":"player_connect","steamid":"76561198000000001","name":"alice","team":"team1"}`))
	tracker.Apply(connect)
	if players := tracker.ConnectedPlayers(); len(players) != 1 || players[0].Team != models.Team1 {
		t.Fatalf("connections %+v", players)
	}

	death, _ := Normalize([]byte(`{"matchid":"m","event":"player_death","attacker":{"steamid":"76561198000000001"},"victim":{"steamid":"76561198000000002"},"headshot":true}`))
	tracker.Apply(death)
	snapshot := tracker.Snapshot()
	var attacker *models.PlayerStats
	for i := range snapshot.Team1Players {
		if snapshot.Team1Players[i].SteamID == "76561198000000001" {
			attacker = &snapshot.Team1Players[i]
		}
	}
	if attacker == nil || attacker.Kills != 1 || attacker.Headshots != 1 {
		t.Fatalf("attacker stats %+v", attacker)
	}

	disconnect, _ := Normalize([]byte(`{"matchid":"m","event":"player_disconnect","steamid":"76561198000000001"}`))
	tracker.Apply(disconnect)
	if players := tracker.ConnectedPlayers(); len(players) != 0 {
		t.Fatalf("player should be gone, got %+v", players)
	}
}

func TestRebuildReplaysTheLog(t *testing.T) {
	records := []*models.MatchEvent{
		{ID: 1, MatchSlug: "m", EventKind: "series_start", Payload: []byte(`{"matchid":"m","event":"series_start","num_maps":1}`)},
		{ID: 2, MatchSlug: "m", EventKind: "round_end", Payload: []byte(`{"matchid":"m","event":"round_end","round_number":3,"team1_score":2,"team2_score":1}`)},
	}
	tracker := Rebuild("m", records)

	snapshot := tracker.Snapshot()
	if snapshot.Status != models.MatchLive || snapshot.RoundNumber != 3 || snapshot.Team1Score != 2 {
		t.Fatalf("rebuilt snapshot %+v", snapshot)
	}
}
