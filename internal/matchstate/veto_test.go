package matchstate

import (
	"testing"
	"time"

	"matchzy-auto-tournament/internal/models"
)

func TestNewVetoBo1Sequence(t *testing.T) {
	veto := NewVeto("a_vs_b", models.FormatBo1, []string{"de_mirage", "de_inferno", "de_ancient"})

	if veto.Complete {
		t.Fatal("veto should not start complete with a 3-map pool")
	}
	if len(veto.Steps) != 2 {
		t.Fatalf("expected 2 ban steps, got %d", len(veto.Steps))
	}
	for i, want := range []models.TeamSide{models.Team1, models.Team2} {
		if veto.Steps[i].Actor != want || veto.Steps[i].Action != ActionBan {
			t.Errorf("step %d: got %s/%s, want %s/ban", i, veto.Steps[i].Actor, veto.Steps[i].Action, want)
		}
	}

	if err := ApplyVeto(veto, models.Team1, ActionBan, "de_mirage", ""); err != nil {
		t.Fatalf("team1 ban: %v", err)
	}
	if err := ApplyVeto(veto, models.Team2, ActionBan, "de_inferno", ""); err != nil {
		t.Fatalf("team2 ban: %v", err)
	}

	if !veto.Complete {
		t.Fatal("veto should be complete after both bans")
	}
	if len(veto.PickedMaps) != 1 || veto.PickedMaps[0] != "de_ancient" {
		t.Fatalf("expected picked [de_ancient], got %v", veto.PickedMaps)
	}
}

func TestNewVetoSingleMapPool(t *testing.T) {
	veto := NewVeto("a_vs_b", models.FormatBo1, []string{"de_nuke"})

	if !veto.Complete {
		t.Fatal("single-map bo1 veto should complete immediately")
	}
	if len(veto.Steps) != 0 {
		t.Fatalf("expected no ban steps, got %d", len(veto.Steps))
	}
	if len(veto.PickedMaps) != 1 || veto.PickedMaps[0] != "de_nuke" {
		t.Fatalf("the pool should be the map, got %v", veto.PickedMaps)
	}
}

func TestNewVetoBo3Sequence(t *testing.T) {
	pool := []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	veto := NewVeto("a_vs_b", models.FormatBo3, pool)

	want := []struct {
		actor  models.TeamSide
		action string
	}{
		{models.Team1, ActionBan},
		{models.Team2, ActionBan},
		{models.Team1, ActionPick},
		{models.Team2, ActionSidePick},
		{models.Team2, ActionPick},
		{models.Team1, ActionSidePick},
		{models.Team1, ActionBan},
		{models.Team2, ActionBan},
	}
	if len(veto.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(veto.Steps))
	}
	for i, w := range want {
		if veto.Steps[i].Actor != w.actor || veto.Steps[i].Action != w.action {
			t.Errorf("step %d: got %s/%s, want %s/%s",
				i, veto.Steps[i].Actor, veto.Steps[i].Action, w.actor, w.action)
		}
	}
}

func TestVetoBo3FullRunAndSides(t *testing.T) {
	pool := []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	veto := NewVeto("a_vs_b", models.FormatBo3, pool)

	steps := []struct {
		actor  models.TeamSide
		action string
		mapKey string
		side   string
	}{
		{models.Team1, ActionBan, "m7", ""},
		{models.Team2, ActionBan, "m6", ""},
		{models.Team1, ActionPick, "m1", ""},
		{models.Team2, ActionSidePick, "", SideCT},
		{models.Team2, ActionPick, "m2", ""},
		{models.Team1, ActionSidePick, "", SideT},
		{models.Team1, ActionBan, "m5", ""},
		{models.Team2, ActionBan, "m4", ""},
	}
	for i, s := range steps {
		if err := ApplyVeto(veto, s.actor, s.action, s.mapKey, s.side); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if !veto.Complete {
		t.Fatal("veto should be complete")
	}
	wantPicked := []string{"m1", "m2", "m3"}
	for i, m := range wantPicked {
		if veto.PickedMaps[i] != m {
			t.Fatalf("picked maps %v, want %v", veto.PickedMaps, wantPicked)
		}
	}

	sides := MapSides(veto)
	wantSides := []string{"team2_ct", "team1_t", "knife"}
	for i, s := range wantSides {
		if sides[i] != s {
			t.Fatalf("map sides %v, want %v", sides, wantSides)
		}
	}
}

func TestVetoRejectsWrongTurn(t *testing.T) {
	veto := NewVeto("a_vs_b", models.FormatBo1, []string{"m1", "m2", "m3"})

	if err := ApplyVeto(veto, models.Team2, ActionBan, "m1", ""); err == nil {
		t.Fatal("expected out-of-turn ban to fail")
	}
	if err := ApplyVeto(veto, models.Team1, ActionPick, "m1", ""); err == nil {
		t.Fatal("expected wrong action to fail")
	}
	if err := ApplyVeto(veto, models.Team1, ActionBan, "de_unknown", ""); err == nil {
		t.Fatal("expected unavailable map to fail")
	}
}

func TestVetoAutoActResolvesLeftmost(t *testing.T) {
	veto := NewVeto("a_vs_b", models.FormatBo1, []string{"de_mirage", "de_inferno", "de_ancient"})

	for CurrentStep(veto) != nil {
		if err := AutoAct(veto); err != nil {
			t.Fatalf("auto act: %v", err)
		}
	}

	if !veto.Complete {
		t.Fatal("veto should be complete")
	}
	// team1 bans de_mirage, team2 bans de_inferno, de_ancient remains.
	if veto.PickedMaps[0] != "de_ancient" {
		t.Fatalf("expected de_ancient, got %v", veto.PickedMaps)
	}
}

func TestVetoExpired(t *testing.T) {
	veto := NewVeto("a_vs_b", models.FormatBo1, []string{"m1", "m2"})
	veto.UpdatedAt = time.Now().Add(-3 * time.Minute)

	if !Expired(veto, 2*time.Minute, time.Now()) {
		t.Fatal("veto step should be expired")
	}
	if Expired(veto, 5*time.Minute, time.Now()) {
		t.Fatal("veto step should not be expired within the timeout")
	}

	veto.Complete = true
	veto.Steps = nil
	veto.CurrentStep = 0
	if Expired(veto, 0, time.Now()) {
		t.Fatal("a complete veto never expires")
	}
}
