package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/matchstate"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/secrets"
	"matchzy-auto-tournament/internal/store"
	"matchzy-auto-tournament/internal/store/storetest"
)

// fakeRCON records every command; fail makes all sends error.
type fakeRCON struct {
	mu       sync.Mutex
	commands []string
	fail     bool
}

func (f *fakeRCON) SendCommand(_ context.Context, addr, password, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("connection refused")
	}
	f.commands = append(f.commands, cmd)
	return "ok", nil
}

func (f *fakeRCON) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type fixture struct {
	store     *storetest.MemStore
	scheduler *Scheduler
	machine   *matchstate.Machine
	rcon      *fakeRCON
	sealer    *secrets.Sealer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	st := storetest.New()
	hub := broadcast.NewHub(logger)
	machine := matchstate.NewMachine(st, hub, logger)
	rcon := &fakeRCON{}

	sealer, err := secrets.NewSealer(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.SchedulerConfig{
		AllocationTick:  2 * time.Second,
		RCONTimeout:     100 * time.Millisecond,
		RCONRetries:     2,
		RCONBackoffBase: time.Millisecond,
		VetoStepTimeout: 0, // auto-resolve vetoes every sweep
		StaleLoadedAge:  5 * time.Minute,
	}
	sched := New(st, rcon, hub, machine, sealer, nil, cfg, "secret-token", "http://core.example", logger)
	machine.SetAdvancer(sched)

	return &fixture{store: st, scheduler: sched, machine: machine, rcon: rcon, sealer: sealer}
}

func (f *fixture) seedTeams(t *testing.T, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		players := make([]models.Player, 5)
		for i := range players {
			players[i] = models.Player{
				SteamID64:   "7656119" + id + string(rune('0'+i)) + "000000000",
				DisplayName: id + "-player",
			}
		}
		if err := f.store.UpsertTeam(ctx, &models.Team{ID: id, Name: id, Tag: id, Players: players}); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fixture) seedServer(t *testing.T, id string) {
	t.Helper()
	sealed, err := f.sealer.Seal("rconpass")
	if err != nil {
		t.Fatal(err)
	}
	existing, err := f.store.ListServers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	err = f.store.UpsertServer(context.Background(), &models.Server{
		ID: id, Name: id, Host: "10.0.0.1", Port: 27015 + len(existing), RCONPassword: sealed, Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) seedTournament(t *testing.T, tournamentType models.TournamentType, format models.MatchFormat, teamIDs ...string) {
	t.Helper()
	err := f.store.UpsertTournament(context.Background(), &models.Tournament{
		Name:    "test cup",
		Type:    tournamentType,
		Format:  format,
		MapPool: []string{"de_mirage", "de_inferno", "de_ancient"},
		TeamIDs: teamIDs,
		Status:  models.TournamentSetup,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) drainCompletions(ctx context.Context, t *testing.T) {
	t.Helper()
	for {
		select {
		case slug := <-f.scheduler.completed:
			if err := f.scheduler.Advance(ctx, slug); err != nil {
				t.Fatalf("advance %s: %v", slug, err)
			}
		default:
			return
		}
	}
}

func event(slug, kind string, extra map[string]interface{}) *ingest.CanonicalEvent {
	payload := map[string]interface{}{"matchid": slug, "event": kind}
	for k, v := range extra {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)
	ev, err := ingest.Normalize(raw)
	if err != nil {
		panic(err)
	}
	return ev
}

// TestHappyPathBo1TwoTeams walks scenario one end to end: start, veto
// auto-resolve, allocation, series events, completion.
func TestHappyPathBo1TwoTeams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b")
	f.seedServer(t, "s1")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b")

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}

	match, err := f.store.GetMatch(ctx, "a_vs_b")
	if err != nil {
		t.Fatal(err)
	}
	if match.Round != 1 || match.Status != models.MatchReady {
		t.Fatalf("after start: round=%d status=%s", match.Round, match.Status)
	}

	// One allocation tick: veto auto-resolves, server binds, config pushed.
	f.scheduler.sweep(ctx)

	match, _ = f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchLoaded {
		t.Fatalf("after sweep: status=%s, want loaded", match.Status)
	}
	if match.ServerRef == nil || *match.ServerRef != "s1" {
		t.Fatalf("expected server s1 bound, got %v", match.ServerRef)
	}
	if !match.VetoCompleted || len(match.Config.MapList) != 1 || match.Config.MapList[0] != "de_ancient" {
		t.Fatalf("veto should auto-resolve to de_ancient, got %v", match.Config.MapList)
	}

	commands := f.rcon.sent()
	if len(commands) != 4 {
		t.Fatalf("expected 4 rcon commands, got %d: %v", len(commands), commands)
	}

	// Plugin reports the series.
	if err := f.machine.HandleEvent(ctx, event("a_vs_b", "series_start", map[string]interface{}{"num_maps": 1})); err != nil {
		t.Fatal(err)
	}
	match, _ = f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchLive {
		t.Fatalf("after series_start: status=%s", match.Status)
	}

	if err := f.machine.HandleEvent(ctx, event("a_vs_b", "map_result", map[string]interface{}{
		"map_number": 0, "map_name": "de_ancient", "team1_score": 13, "team2_score": 7,
	})); err != nil {
		t.Fatal(err)
	}
	if err := f.machine.HandleEvent(ctx, event("a_vs_b", "series_end", map[string]interface{}{
		"winner": "team1", "team1_series_score": 1, "team2_series_score": 0,
	})); err != nil {
		t.Fatal(err)
	}

	f.drainCompletions(ctx, t)

	match, _ = f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchCompleted || match.WinnerRef == nil || *match.WinnerRef != "a" {
		t.Fatalf("final state: status=%s winner=%v", match.Status, match.WinnerRef)
	}
	if match.Team1SeriesScore != 1 || match.Team2SeriesScore != 0 {
		t.Fatalf("series score %d-%d, want 1-0", match.Team1SeriesScore, match.Team2SeriesScore)
	}
	if match.ServerRef != nil {
		t.Fatal("completed match must not hold a server")
	}

	tournament, _ := f.store.GetTournament(ctx)
	if tournament.Status != models.TournamentCompleted {
		t.Fatalf("tournament status %s, want completed", tournament.Status)
	}
}

// TestWalkover covers scenario two: a padded bye completes immediately
// with no server allocation.
func TestWalkover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b", "c")
	f.seedServer(t, "s1")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b", "c")

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}

	bye, err := f.store.GetMatch(ctx, "c_vs_null")
	if err != nil {
		t.Fatal(err)
	}
	if bye.Status != models.MatchCompleted || bye.WinnerRef == nil || *bye.WinnerRef != "c" {
		t.Fatalf("bye should complete as walkover for c, got status=%s winner=%v", bye.Status, bye.WinnerRef)
	}
	if bye.ServerRef != nil {
		t.Fatal("walkover must not allocate a server")
	}
	if len(bye.DemoFilePaths) != 0 {
		t.Fatalf("walkover demo paths should be empty, got %v", bye.DemoFilePaths)
	}

	// c advanced into the final's second slot.
	final, err := f.store.GetMatch(ctx, "wb-r2-m1")
	if err != nil {
		t.Fatal(err)
	}
	if final.Team2Ref == nil || *final.Team2Ref != "c" {
		t.Fatalf("walkover winner should advance, got %v", final.Team2Ref)
	}

	// a_vs_b proceeds normally.
	normal, _ := f.store.GetMatch(ctx, "a_vs_b")
	if normal.Status != models.MatchReady {
		t.Fatalf("a_vs_b should be ready, got %s", normal.Status)
	}
}

// TestPushFailureReverts covers scenario four: the RCON push times out,
// the match returns to ready, the server returns to the pool, and a
// warning event lands in the log.
func TestPushFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b")
	f.seedServer(t, "s1")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b")
	f.rcon.fail = true

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}
	f.scheduler.sweep(ctx)

	match, _ := f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchReady {
		t.Fatalf("failed push should revert to ready, got %s", match.Status)
	}
	if match.ServerRef != nil {
		t.Fatal("failed push should release the server")
	}

	events, err := f.store.ListEvents(ctx, "a_vs_b", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ev := range events {
		if ev.EventKind == "allocation_warning" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an allocation_warning event")
	}

	// The server recovers; the next tick succeeds.
	f.rcon.fail = false
	f.scheduler.sweep(ctx)
	match, _ = f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchLoaded {
		t.Fatalf("retry should load the match, got %s", match.Status)
	}
}

// TestBracketAdvance covers scenario five: round-1 completions populate
// the round-2 slots and the child becomes ready.
func TestBracketAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b", "c", "d")
	f.seedServer(t, "s1")
	f.seedServer(t, "s2")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b", "c", "d")

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}
	f.scheduler.sweep(ctx)

	for _, result := range []struct {
		slug, winner     string
		score1, score2   int
	}{
		{"a_vs_b", "team1", 1, 0},
		{"c_vs_d", "team2", 0, 1},
	} {
		if err := f.machine.HandleEvent(ctx, event(result.slug, "series_start", nil)); err != nil {
			t.Fatal(err)
		}
		if err := f.machine.HandleEvent(ctx, event(result.slug, "series_end", map[string]interface{}{
			"winner": result.winner, "team1_series_score": result.score1, "team2_series_score": result.score2,
		})); err != nil {
			t.Fatal(err)
		}
	}
	f.drainCompletions(ctx, t)

	final, err := f.store.GetMatch(ctx, "wb-r2-m1")
	if err != nil {
		t.Fatal(err)
	}
	if final.Team1Ref == nil || *final.Team1Ref != "a" || final.Team2Ref == nil || *final.Team2Ref != "d" {
		t.Fatalf("final slots %v vs %v, want a vs d", final.Team1Ref, final.Team2Ref)
	}
	if final.Status != models.MatchReady {
		t.Fatalf("final should be ready once both slots fill, got %s", final.Status)
	}
}

// TestAllocateWithoutServersIsNoop covers the boundary: a tick with no
// available servers changes nothing.
func TestAllocateWithoutServersIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b")

	allocated, err := f.scheduler.StartTournament(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if allocated != 0 {
		t.Fatalf("no servers: allocated %d, want 0", allocated)
	}

	f.scheduler.sweep(ctx)
	match, _ := f.store.GetMatch(ctx, "a_vs_b")
	if match.Status != models.MatchReady {
		t.Fatalf("match should stay ready waiting for a server, got %s", match.Status)
	}
}

// TestSeriesEndBeatsAdminCommand covers scenario three's losing side:
// once the series_end lands, a force-complete conflicts.
func TestSeriesEndBeatsAdminCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b")
	f.seedServer(t, "s1")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b")

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}
	f.scheduler.sweep(ctx)
	if err := f.machine.HandleEvent(ctx, event("a_vs_b", "series_start", nil)); err != nil {
		t.Fatal(err)
	}
	if err := f.machine.HandleEvent(ctx, event("a_vs_b", "series_end", map[string]interface{}{
		"winner": "team1", "team1_series_score": 1,
	})); err != nil {
		t.Fatal(err)
	}

	if _, err := f.machine.ForceComplete(ctx, "a_vs_b", models.Team1); err == nil {
		t.Fatal("force-complete after series_end should conflict")
	}
}

// TestStartResetStart verifies the reset round-trip law: a second start
// regenerates an equivalent bracket from the same inputs.
func TestStartResetStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedTeams(t, "a", "b", "c", "d")
	f.seedTournament(t, models.TypeSingleElim, models.FormatBo1, "a", "b", "c", "d")

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}
	slugsBefore := startedSlugs(ctx, t, f)

	if err := f.scheduler.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	tournament, _ := f.store.GetTournament(ctx)
	if tournament.Status != models.TournamentSetup {
		t.Fatalf("reset should return to setup, got %s", tournament.Status)
	}

	if _, err := f.scheduler.StartTournament(ctx, ""); err != nil {
		t.Fatal(err)
	}
	slugsAfter := startedSlugs(ctx, t, f)

	if len(slugsBefore) != len(slugsAfter) {
		t.Fatalf("bracket sizes differ: %v vs %v", slugsBefore, slugsAfter)
	}
	for i := range slugsBefore {
		if slugsBefore[i] != slugsAfter[i] {
			t.Fatalf("bracket differs after reset: %v vs %v", slugsBefore, slugsAfter)
		}
	}
}

func startedSlugs(ctx context.Context, t *testing.T, f *fixture) []string {
	t.Helper()
	matches, err := f.store.ListMatches(ctx, store.MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Slug
	}
	return out
}
