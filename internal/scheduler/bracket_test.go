package scheduler

import (
	"testing"

	"matchzy-auto-tournament/internal/models"
)

func tournamentOf(tournamentType models.TournamentType, teamIDs ...string) *models.Tournament {
	return &models.Tournament{
		ID:      models.SingletonID,
		Name:    "test cup",
		Type:    tournamentType,
		Format:  models.FormatBo1,
		MapPool: []string{"de_mirage", "de_inferno", "de_ancient"},
		TeamIDs: teamIDs,
		Status:  models.TournamentSetup,
	}
}

func TestSingleElimFourTeams(t *testing.T) {
	matches, err := GenerateBracket(tournamentOf(models.TypeSingleElim, "a", "b", "c", "d"))
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 3 {
		t.Fatalf("expected teams-1 = 3 matches, got %d", len(matches))
	}

	bySlug := make(map[string]*models.Match)
	for _, m := range matches {
		bySlug[m.Slug] = m
	}
	for _, slug := range []string{"a_vs_b", "c_vs_d", "wb-r2-m1"} {
		if bySlug[slug] == nil {
			t.Fatalf("missing match %s; have %v", slug, slugsOf(matches))
		}
	}

	if bySlug["wb-r2-m1"].BracketTag != TagFinal {
		t.Errorf("last round should be tagged %q, got %q", TagFinal, bySlug["wb-r2-m1"].BracketTag)
	}
	if slot := bySlug["a_vs_b"].NextMatchSlot; slot == nil || slot.MatchSlug != "wb-r2-m1" || slot.Side != models.Team1 {
		t.Errorf("a_vs_b winner should feed wb-r2-m1 team1, got %+v", slot)
	}
	if slot := bySlug["c_vs_d"].NextMatchSlot; slot == nil || slot.MatchSlug != "wb-r2-m1" || slot.Side != models.Team2 {
		t.Errorf("c_vs_d winner should feed wb-r2-m1 team2, got %+v", slot)
	}
}

func TestSingleElimOddFieldPadsWithBye(t *testing.T) {
	matches, err := GenerateBracket(tournamentOf(models.TypeSingleElim, "a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}

	var bye *models.Match
	for _, m := range matches {
		if m.IsWalkover() {
			bye = m
		}
	}
	if bye == nil {
		t.Fatal("expected a padded walkover match")
	}
	if bye.Slug != "c_vs_null" {
		t.Errorf("expected slug c_vs_null, got %s", bye.Slug)
	}
}

func TestSingleElimRejectsTooFewTeams(t *testing.T) {
	if _, err := GenerateBracket(tournamentOf(models.TypeSingleElim, "a")); err == nil {
		t.Fatal("expected single-team bracket to fail validation")
	}
}

func TestDoubleElimMatchCount(t *testing.T) {
	for _, teams := range [][]string{
		{"a", "b"},
		{"a", "b", "c", "d"},
		{"a", "b", "c", "d", "e", "f", "g", "h"},
	} {
		matches, err := GenerateBracket(tournamentOf(models.TypeDoubleElim, teams...))
		if err != nil {
			t.Fatal(err)
		}
		// Winners n-1, losers n-2, one grand final; the bracket-reset
		// final only exists after it is forced.
		want := 2*len(teams) - 2
		if len(matches) != want {
			t.Fatalf("%d teams: got %d matches, want %d", len(teams), len(matches), want)
		}

		var grandFinal *models.Match
		loserSlots := 0
		for _, m := range matches {
			if m.BracketTag == TagGrandFinals {
				grandFinal = m
			}
			if m.LoserNextSlot != nil {
				loserSlots++
			}
		}
		if grandFinal == nil {
			t.Fatalf("%d teams: no grand final generated", len(teams))
		}
		// Every winners-bracket loser has somewhere to go.
		wbMatches := len(teams) - 1
		if loserSlots != wbMatches {
			t.Fatalf("%d teams: %d loser drops, want %d", len(teams), loserSlots, wbMatches)
		}
	}
}

func TestRoundRobinEveryPairOnce(t *testing.T) {
	teams := []string{"a", "b", "c", "d"}
	matches, err := GenerateBracket(tournamentOf(models.TypeRoundRobin, teams...))
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 6 {
		t.Fatalf("expected n(n-1)/2 = 6 matches, got %d", len(matches))
	}

	seen := make(map[string]bool)
	perRound := make(map[int]map[string]bool)
	for _, m := range matches {
		a, b := *m.Team1Ref, *m.Team2Ref
		if a > b {
			a, b = b, a
		}
		pair := a + "|" + b
		if seen[pair] {
			t.Fatalf("pair %s generated twice", pair)
		}
		seen[pair] = true

		if perRound[m.Round] == nil {
			perRound[m.Round] = make(map[string]bool)
		}
		for _, team := range []string{*m.Team1Ref, *m.Team2Ref} {
			if perRound[m.Round][team] {
				t.Fatalf("team %s plays twice in round %d", team, m.Round)
			}
			perRound[m.Round][team] = true
		}
	}
}

func TestRoundRobinOddField(t *testing.T) {
	matches, err := GenerateBracket(tournamentOf(models.TypeRoundRobin, "a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches for 3 teams, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Team1Ref == nil || m.Team2Ref == nil {
			t.Fatalf("round robin should not generate bye matches, got %s", m.Slug)
		}
	}
}

func TestSwissFirstRoundAndRepairAvoidance(t *testing.T) {
	tournament := tournamentOf(models.TypeSwiss, "a", "b", "c", "d")
	matches, err := GenerateBracket(tournament)
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 2 {
		t.Fatalf("round 1 should pair the field, got %d matches", len(matches))
	}
	if *matches[0].Team1Ref != "a" || *matches[0].Team2Ref != "b" {
		t.Errorf("round 1 should pair input order, got %s", matches[0].Slug)
	}
	if SwissRounds(4) != 2 {
		t.Errorf("4 teams should play ceil(log2(4)) = 2 rounds, got %d", SwissRounds(4))
	}

	// Round 2: a and c won; a must not replay b.
	played := map[string]map[string]bool{
		"a": {"b": true}, "b": {"a": true},
		"c": {"d": true}, "d": {"c": true},
	}
	next := GenerateSwissRound(tournament, 2, []string{"a", "c", "b", "d"}, played)
	if len(next) != 2 {
		t.Fatalf("expected 2 matches in round 2, got %d", len(next))
	}
	if *next[0].Team1Ref != "a" || *next[0].Team2Ref != "c" {
		t.Errorf("round 2 should pair the winners, got %s", next[0].Slug)
	}
}

func TestSwissOddFieldGetsBye(t *testing.T) {
	matches, err := GenerateBracket(tournamentOf(models.TypeSwiss, "a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected pair + bye, got %d matches", len(matches))
	}
	last := matches[len(matches)-1]
	if !last.IsWalkover() {
		t.Fatalf("odd Swiss field should produce a bye walkover, got %s", last.Slug)
	}
}

func slugsOf(matches []*models.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Slug
	}
	return out
}
