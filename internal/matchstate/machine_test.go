package matchstate

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"

	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store/storetest"
	"matchzy-auto-tournament/internal/utils"
)

type recordingAdvancer struct {
	completed []string
	freed     []string
	vetoed    []string
}

func (a *recordingAdvancer) MatchCompleted(slug string)  { a.completed = append(a.completed, slug) }
func (a *recordingAdvancer) ServerFreed(id string)       { a.freed = append(a.freed, id) }
func (a *recordingAdvancer) VetoCompleted(slug string)   { a.vetoed = append(a.vetoed, slug) }

func newTestMachine(t *testing.T) (*Machine, *storetest.MemStore, *recordingAdvancer) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	st := storetest.New()
	machine := NewMachine(st, broadcast.NewHub(logger), logger)
	advancer := &recordingAdvancer{}
	machine.SetAdvancer(advancer)
	return machine, st, advancer
}

func seedLoadedMatch(t *testing.T, st *storetest.MemStore) {
	t.Helper()
	ctx := context.Background()
	err := st.UpsertTournament(ctx, &models.Tournament{
		Name: "cup", Type: models.TypeSingleElim, Format: models.FormatBo3,
		MapPool: []string{"m1", "m2", "m3", "m4"}, TeamIDs: []string{"a", "b"},
		Status: models.TournamentInProgress,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = st.CreateMatches(ctx, []*models.Match{{
		ID: "1", Slug: "a_vs_b", Round: 1, MatchNumber: 1,
		Team1Ref: utils.StringPtr("a"), Team2Ref: utils.StringPtr("b"),
		ServerRef: utils.StringPtr("s1"),
		Status:    models.MatchLoaded, MatchPhase: models.PhaseWarmup,
		VetoCompleted: true,
		Config: models.MatchConfig{
			MapList: []string{"m1", "m2", "m3"}, NumMaps: 3, PlayersPerTeam: 5,
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
}

func ev(slug, kind string, extra map[string]interface{}) *ingest.CanonicalEvent {
	payload := map[string]interface{}{"matchid": slug, "event": kind}
	for k, v := range extra {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)
	parsed, err := ingest.Normalize(raw)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestSeriesStartTransitionsLoadedToLive(t *testing.T) {
	machine, st, _ := newTestMachine(t)
	seedLoadedMatch(t, st)
	ctx := context.Background()

	if err := machine.HandleEvent(ctx, ev("a_vs_b", "series_start", nil)); err != nil {
		t.Fatal(err)
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchLive || match.MatchPhase != models.PhaseLive {
		t.Fatalf("got status=%s phase=%s", match.Status, match.MatchPhase)
	}
	if match.LoadedAt == nil {
		t.Fatal("series_start should stamp loadedAt when unset")
	}

	// Re-delivery is a no-op, not an error.
	if err := machine.HandleEvent(ctx, ev("a_vs_b", "series_start", nil)); err != nil {
		t.Fatalf("duplicate series_start: %v", err)
	}
}

func TestMapResultIsIdempotentByMapNumber(t *testing.T) {
	machine, st, _ := newTestMachine(t)
	seedLoadedMatch(t, st)
	ctx := context.Background()

	machine.HandleEvent(ctx, ev("a_vs_b", "series_start", nil))

	result := map[string]interface{}{
		"map_number": 0, "map_name": "m1", "team1_score": 13, "team2_score": 7,
	}
	if err := machine.HandleEvent(ctx, ev("a_vs_b", "map_result", result)); err != nil {
		t.Fatal(err)
	}
	// Same result re-posted: the log grows, the state does not.
	if err := machine.HandleEvent(ctx, ev("a_vs_b", "map_result", result)); err != nil {
		t.Fatal(err)
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if len(match.MapResults) != 1 {
		t.Fatalf("expected 1 map result, got %d", len(match.MapResults))
	}
	if match.Team1SeriesScore != 1 || match.Team2SeriesScore != 0 {
		t.Fatalf("series %d-%d, want 1-0", match.Team1SeriesScore, match.Team2SeriesScore)
	}
}

func TestSeriesScoreBoundedByNumMaps(t *testing.T) {
	machine, st, _ := newTestMachine(t)
	seedLoadedMatch(t, st)
	ctx := context.Background()

	machine.HandleEvent(ctx, ev("a_vs_b", "series_start", nil))
	for i, name := range []string{"m1", "m2", "m3"} {
		machine.HandleEvent(ctx, ev("a_vs_b", "map_result", map[string]interface{}{
			"map_number": i, "map_name": name, "team1_score": 13, "team2_score": 7,
		}))
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if match.Team1SeriesScore+match.Team2SeriesScore > match.Config.NumMaps {
		t.Fatalf("series total %d exceeds numMaps %d",
			match.Team1SeriesScore+match.Team2SeriesScore, match.Config.NumMaps)
	}
}

func TestSeriesEndCompletesAndFreesServer(t *testing.T) {
	machine, st, advancer := newTestMachine(t)
	seedLoadedMatch(t, st)
	ctx := context.Background()

	machine.HandleEvent(ctx, ev("a_vs_b", "series_start", nil))
	if err := machine.HandleEvent(ctx, ev("a_vs_b", "series_end", map[string]interface{}{
		"winner": "team2", "team1_series_score": 1, "team2_series_score": 2,
	})); err != nil {
		t.Fatal(err)
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchCompleted {
		t.Fatalf("status %s, want completed", match.Status)
	}
	if match.WinnerRef == nil || *match.WinnerRef != "b" {
		t.Fatalf("winner %v, want b", match.WinnerRef)
	}
	if match.ServerRef != nil {
		t.Fatal("completed match should release its server")
	}
	if match.CompletedAt == nil {
		t.Fatal("completedAt should be stamped")
	}

	if len(advancer.completed) != 1 || advancer.completed[0] != "a_vs_b" {
		t.Fatalf("advancer completions %v", advancer.completed)
	}
	if len(advancer.freed) != 1 || advancer.freed[0] != "s1" {
		t.Fatalf("advancer freed %v", advancer.freed)
	}
}

func TestSeriesEndTieDefersWithTiebreakMap(t *testing.T) {
	machine, st, advancer := newTestMachine(t)
	ctx := context.Background()
	st.UpsertTournament(ctx, &models.Tournament{
		Name: "cup", Type: models.TypeSingleElim, Format: models.FormatBo1,
		MapPool: []string{"m1", "m2", "m3"}, TeamIDs: []string{"a", "b"},
		Status: models.TournamentInProgress,
	})
	st.CreateMatches(ctx, []*models.Match{{
		ID: "1", Slug: "a_vs_b", Round: 1, MatchNumber: 1,
		Team1Ref: utils.StringPtr("a"), Team2Ref: utils.StringPtr("b"),
		ServerRef: utils.StringPtr("s1"),
		Status:    models.MatchLive, VetoCompleted: true,
		Config:    models.MatchConfig{MapList: []string{"m1", "m2"}, NumMaps: 2},
	}})

	if err := machine.HandleEvent(ctx, ev("a_vs_b", "series_end", map[string]interface{}{
		"team1_series_score": 1, "team2_series_score": 1,
	})); err != nil {
		t.Fatal(err)
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchLive {
		t.Fatalf("tied series should stay live, got %s", match.Status)
	}
	if match.Config.NumMaps != 3 || match.Config.MapList[2] != "m3" {
		t.Fatalf("expected tiebreak map m3 appended, got %v", match.Config.MapList)
	}
	if len(advancer.completed) != 0 {
		t.Fatal("tie must not advance the bracket")
	}
}

func TestVetoEventsDriveMatchConfig(t *testing.T) {
	machine, st, advancer := newTestMachine(t)
	ctx := context.Background()
	st.UpsertTournament(ctx, &models.Tournament{
		Name: "cup", Type: models.TypeSingleElim, Format: models.FormatBo1,
		MapPool: []string{"m1", "m2", "m3"}, TeamIDs: []string{"a", "b"},
		Status: models.TournamentInProgress,
	})
	st.CreateMatches(ctx, []*models.Match{{
		ID: "1", Slug: "a_vs_b", Round: 1, MatchNumber: 1,
		Team1Ref: utils.StringPtr("a"), Team2Ref: utils.StringPtr("b"),
		Status:   models.MatchReady, MatchPhase: models.PhaseVeto,
		Config:   models.MatchConfig{NumMaps: 1, PlayersPerTeam: 5},
	}})
	st.SaveVeto(ctx, NewVeto("a_vs_b", models.FormatBo1, []string{"m1", "m2", "m3"}))

	if err := machine.HandleEvent(ctx, ev("a_vs_b", "map_vetoed", map[string]interface{}{
		"map_name": "m1", "team": "team1",
	})); err != nil {
		t.Fatal(err)
	}
	if err := machine.HandleEvent(ctx, ev("a_vs_b", "map_vetoed", map[string]interface{}{
		"map_name": "m3", "team": "team2",
	})); err != nil {
		t.Fatal(err)
	}

	match, _ := st.GetMatch(ctx, "a_vs_b")
	if !match.VetoCompleted {
		t.Fatal("veto should be complete after both bans")
	}
	if len(match.Config.MapList) != 1 || match.Config.MapList[0] != "m2" {
		t.Fatalf("map list %v, want [m2]", match.Config.MapList)
	}
	if len(advancer.vetoed) != 1 {
		t.Fatalf("advancer veto notifications %v", advancer.vetoed)
	}
}

func TestOrphanEventIsIgnored(t *testing.T) {
	machine, _, advancer := newTestMachine(t)
	ctx := context.Background()

	if err := machine.HandleEvent(ctx, ev("ghost", "series_start", nil)); err != nil {
		t.Fatalf("orphan events must not error: %v", err)
	}
	if len(advancer.completed)+len(advancer.freed)+len(advancer.vetoed) != 0 {
		t.Fatal("orphan events must not mutate state")
	}
}
