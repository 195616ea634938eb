// internal/matchstate/veto.go
// Deterministic map-veto protocol. Step count and actor alternation are
// fixed by the series format; the map-pool ordering is the operator's.
// A silent team never stalls the bracket: the scheduler calls AutoAct
// after the per-step timeout and the left-most available map is chosen.

package matchstate

import (
	"time"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
)

// Veto actions.
const (
	ActionBan      = "ban"
	ActionPick     = "pick"
	ActionSidePick = "side_pick"
)

// Side choices for side_pick steps.
const (
	SideCT = "ct"
	SideT  = "t"
)

// NewVeto builds the full step sequence for a format over a map pool.
// A pool no larger than the series length completes immediately: the
// pool is the map list and no bans are recorded.
func NewVeto(matchSlug string, format models.MatchFormat, mapPool []string) *models.VetoState {
	veto := &models.VetoState{
		MatchSlug:     matchSlug,
		AvailableMaps: append([]string(nil), mapPool...),
		UpdatedAt:     time.Now(),
	}

	numMaps := format.NumMaps()
	bans := len(mapPool) - numMaps
	if bans <= 0 {
		veto.PickedMaps = append([]string(nil), mapPool...)
		veto.AvailableMaps = nil
		veto.Complete = true
		return veto
	}

	if format == models.FormatBo1 {
		// Alternating bans until one map remains; that map is the pick.
		actor := models.Team1
		for i := 0; i < bans; i++ {
			veto.Steps = append(veto.Steps, models.VetoStep{Actor: actor, Action: ActionBan})
			actor = otherSide(actor)
		}
		return veto
	}

	// bo3/bo5: two opening bans, alternating pick+side_pick pairs for
	// all but the decider, closing bans, decider is the remainder.
	leading := bans
	if leading > 2 {
		leading = 2
	}
	actor := models.Team1
	for i := 0; i < leading; i++ {
		veto.Steps = append(veto.Steps, models.VetoStep{Actor: actor, Action: ActionBan})
		actor = otherSide(actor)
	}

	picker := models.Team1
	for i := 0; i < numMaps-1; i++ {
		veto.Steps = append(veto.Steps,
			models.VetoStep{Actor: picker, Action: ActionPick},
			models.VetoStep{Actor: otherSide(picker), Action: ActionSidePick},
		)
		picker = otherSide(picker)
	}

	actor = models.Team1
	for i := 0; i < bans-leading; i++ {
		veto.Steps = append(veto.Steps, models.VetoStep{Actor: actor, Action: ActionBan})
		actor = otherSide(actor)
	}

	return veto
}

func otherSide(s models.TeamSide) models.TeamSide {
	if s == models.Team1 {
		return models.Team2
	}
	return models.Team1
}

// CurrentStep returns the step awaiting action, or nil when complete.
func CurrentStep(veto *models.VetoState) *models.VetoStep {
	if veto.Complete || veto.CurrentStep >= len(veto.Steps) {
		return nil
	}
	return &veto.Steps[veto.CurrentStep]
}

// ApplyVeto records one veto action. The actor and action must match the
// current step; a map-taking action must name an available map.
func ApplyVeto(veto *models.VetoState, actor models.TeamSide, action, mapKey, sideChoice string) error {
	step := CurrentStep(veto)
	if step == nil {
		return apperrors.Conflictf("veto for %s is already complete", veto.MatchSlug)
	}
	if step.Actor != actor {
		return apperrors.Conflictf("not %s's turn in veto for %s", actor, veto.MatchSlug)
	}
	if step.Action != action {
		return apperrors.Conflictf("expected %s, got %s in veto for %s", step.Action, action, veto.MatchSlug)
	}

	now := time.Now()
	switch action {
	case ActionBan, ActionPick:
		if !removeMap(veto, mapKey) {
			return apperrors.Validationf("map %q is not available in veto for %s", mapKey, veto.MatchSlug)
		}
		step.MapKey = mapKey
		if action == ActionPick {
			veto.PickedMaps = append(veto.PickedMaps, mapKey)
		}
	case ActionSidePick:
		if sideChoice != SideCT && sideChoice != SideT {
			return apperrors.Validationf("invalid side choice %q", sideChoice)
		}
		step.SideChoice = sideChoice
		// The side refers to the map picked immediately before.
		if veto.CurrentStep > 0 {
			step.MapKey = veto.Steps[veto.CurrentStep-1].MapKey
		}
	default:
		return apperrors.Validationf("unknown veto action %q", action)
	}

	step.ActedAt = &now
	veto.CurrentStep++
	veto.UpdatedAt = now
	finalizeIfDone(veto)
	return nil
}

// AutoAct performs the current step on a silent team's behalf: the
// left-most available map for bans and picks, CT for side picks.
func AutoAct(veto *models.VetoState) error {
	step := CurrentStep(veto)
	if step == nil {
		return apperrors.Conflictf("veto for %s is already complete", veto.MatchSlug)
	}
	switch step.Action {
	case ActionSidePick:
		return ApplyVeto(veto, step.Actor, step.Action, "", SideCT)
	default:
		if len(veto.AvailableMaps) == 0 {
			return apperrors.New(apperrors.Internal, "veto step pending with no maps available")
		}
		return ApplyVeto(veto, step.Actor, step.Action, veto.AvailableMaps[0], "")
	}
}

// Expired reports whether the current step has been pending longer than
// timeout.
func Expired(veto *models.VetoState, timeout time.Duration, now time.Time) bool {
	return CurrentStep(veto) != nil && now.Sub(veto.UpdatedAt) > timeout
}

func removeMap(veto *models.VetoState, mapKey string) bool {
	for i, m := range veto.AvailableMaps {
		if m == mapKey {
			veto.AvailableMaps = append(veto.AvailableMaps[:i], veto.AvailableMaps[i+1:]...)
			return true
		}
	}
	return false
}

// finalizeIfDone marks the veto complete once all steps have run,
// appending the remaining map as the decider (or, for bo1, the pick).
func finalizeIfDone(veto *models.VetoState) {
	if veto.CurrentStep < len(veto.Steps) {
		return
	}
	if len(veto.AvailableMaps) == 1 {
		veto.PickedMaps = append(veto.PickedMaps, veto.AvailableMaps[0])
		veto.AvailableMaps = nil
	}
	veto.Complete = true
}

// MapSides derives the plugin's map_sides list from the acted steps:
// one entry per picked map, "teamN_<side>" where a side was chosen and
// "knife" for the decider (and for bo1's single map).
func MapSides(veto *models.VetoState) []string {
	sideOf := make(map[string]string)
	for _, step := range veto.Steps {
		if step.Action == ActionSidePick && step.MapKey != "" && step.SideChoice != "" {
			sideOf[step.MapKey] = string(step.Actor) + "_" + step.SideChoice
		}
	}

	sides := make([]string, 0, len(veto.PickedMaps))
	for _, m := range veto.PickedMaps {
		if s, ok := sideOf[m]; ok {
			sides = append(sides, s)
		} else {
			sides = append(sides, "knife")
		}
	}
	return sides
}
