// internal/scheduler/advance.go
// Bracket advancement: winners and losers flow into their linked slots,
// Swiss rounds regenerate as rounds finish, and the tournament closes
// when the last match does.

package scheduler

import (
	"context"
	"sort"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store"
)

// Advance propagates one completed match through the bracket.
func (s *Scheduler) Advance(ctx context.Context, slug string) error {
	match, err := s.store.GetMatch(ctx, slug)
	if err != nil {
		return err
	}
	if match.Status != models.MatchCompleted || match.WinnerRef == nil {
		return apperrors.Conflictf("match %s is not completed", slug)
	}

	tournament, err := s.store.GetTournament(ctx)
	if err != nil {
		return err
	}

	winner := match.WinnerRef
	loser := match.Team1Ref
	if loser != nil && winner != nil && *loser == *winner {
		loser = match.Team2Ref
	}

	if match.NextMatchSlot != nil {
		if err := s.fillSlot(ctx, tournament, match.NextMatchSlot, winner); err != nil {
			return err
		}
	}
	if match.LoserNextSlot != nil && loser != nil {
		if err := s.fillSlot(ctx, tournament, match.LoserNextSlot, loser); err != nil {
			return err
		}
	}

	// Grand-final bracket reset: the losers-bracket champion sits in
	// team2 by construction; its win forces a second grand final with
	// sides reversed.
	if match.BracketTag == TagGrandFinals && match.Team2Ref != nil && *winner == *match.Team2Ref {
		reset := GrandFinalsReset(tournament, match)
		if err := s.store.CreateMatches(ctx, []*models.Match{reset}); err != nil {
			return err
		}
		s.logger.Printf("Grand final won from the losers bracket, bracket reset: %s", reset.Slug)
		s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
			Action:    broadcast.ActionBracketRegenerated,
			MatchSlug: reset.Slug,
		})
		if err := s.promotePending(ctx, tournament); err != nil {
			return err
		}
	}

	if tournament.Type == models.TypeSwiss {
		if err := s.advanceSwiss(ctx, tournament, match.Round); err != nil {
			return err
		}
	}

	return s.completeIfDone(ctx, tournament)
}

// fillSlot patches a winner or loser into a downstream match slot and
// promotes the child when both slots are in.
func (s *Scheduler) fillSlot(ctx context.Context, tournament *models.Tournament, slot *models.NextSlot, teamRef *string) error {
	child, err := s.store.GetMatch(ctx, slot.MatchSlug)
	if err != nil {
		return err
	}
	occupant := child.Team1Ref
	if slot.Side == models.Team2 {
		occupant = child.Team2Ref
	}
	if occupant != nil && teamRef != nil && *occupant == *teamRef {
		// Already advanced; a restart replays completions idempotently.
		return nil
	}
	if child.Status != models.MatchPending {
		return apperrors.Conflictf("bracket slot %s/%s is already decided", slot.MatchSlug, slot.Side)
	}

	patch := store.MatchPatch{ExpectedVersion: child.Version}
	if slot.Side == models.Team1 {
		patch.Team1Ref = &teamRef
	} else {
		patch.Team2Ref = &teamRef
	}
	updated, err := s.store.UpdateMatch(ctx, slot.MatchSlug, patch)
	if err != nil {
		return err
	}

	if updated.Team1Ref != nil && updated.Team2Ref != nil {
		if err := s.promoteToReady(ctx, tournament, updated); err != nil {
			return err
		}
		s.poke()
	}
	return nil
}

// advanceSwiss generates the next round once every match of the current
// one has finished.
func (s *Scheduler) advanceSwiss(ctx context.Context, tournament *models.Tournament, round int) error {
	all, err := s.store.ListMatches(ctx, store.MatchFilter{})
	if err != nil {
		return err
	}

	maxRound := 0
	for _, m := range all {
		if m.Round > maxRound {
			maxRound = m.Round
		}
	}
	if round != maxRound || maxRound >= SwissRounds(len(tournament.TeamIDs)) {
		return nil
	}
	for _, m := range all {
		if m.Round == maxRound && m.Status != models.MatchCompleted {
			return nil
		}
	}

	ordered, played := swissStandings(tournament, all)
	next := GenerateSwissRound(tournament, maxRound+1, ordered, played)
	if len(next) == 0 {
		return nil
	}
	if err := s.store.CreateMatches(ctx, next); err != nil {
		return err
	}
	s.logger.Printf("Swiss round %d generated: %d matches", maxRound+1, len(next))
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{Action: broadcast.ActionBracketRegenerated})

	return s.promotePending(ctx, tournament)
}

// swissStandings orders teams by wins (stable on the seeded order) and
// collects the already-played pairs.
func swissStandings(tournament *models.Tournament, all []*models.Match) ([]string, map[string]map[string]bool) {
	wins := make(map[string]int)
	played := make(map[string]map[string]bool)
	link := func(a, b string) {
		if played[a] == nil {
			played[a] = make(map[string]bool)
		}
		played[a][b] = true
	}

	for _, m := range all {
		if m.Team1Ref != nil && m.Team2Ref != nil {
			link(*m.Team1Ref, *m.Team2Ref)
			link(*m.Team2Ref, *m.Team1Ref)
		}
		if m.Status == models.MatchCompleted && m.WinnerRef != nil {
			wins[*m.WinnerRef]++
		}
	}

	ordered := append([]string(nil), tournament.TeamIDs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return wins[ordered[i]] > wins[ordered[j]]
	})
	return ordered, played
}

// completeIfDone closes the tournament when no undecided match remains.
func (s *Scheduler) completeIfDone(ctx context.Context, tournament *models.Tournament) error {
	all, err := s.store.ListMatches(ctx, store.MatchFilter{})
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.Status != models.MatchCompleted {
			return nil
		}
	}
	if tournament.Type == models.TypeSwiss && maxRoundOf(all) < SwissRounds(len(tournament.TeamIDs)) {
		return nil
	}

	tournament.Status = models.TournamentCompleted
	if err := s.store.UpsertTournament(ctx, tournament); err != nil {
		return err
	}
	s.logger.Println("Tournament completed")
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{Action: broadcast.ActionTournamentCompleted})
	s.hub.PublishTournamentUpdate(broadcast.ActionTournamentCompleted)
	return nil
}

func maxRoundOf(all []*models.Match) int {
	max := 0
	for _, m := range all {
		if m.Round > max {
			max = m.Round
		}
	}
	return max
}
