// internal/scheduler/bracket.go
// Bracket generation for the four tournament types. Matches are built
// in memory and persisted in one all-or-nothing batch by the caller.
// Seeding is the operator's team ordering; no heuristics are applied.

package scheduler

import (
	"fmt"
	"math"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/utils"
)

// Bracket tags for fixed positions.
const (
	TagFinal            = "final"
	TagGrandFinals      = "grand-finals"
	TagGrandFinalsReset = "grand-finals-2"
)

// GenerateBracket builds the full match set for a tournament from its
// type, format, and ordered team list.
func GenerateBracket(t *models.Tournament) ([]*models.Match, error) {
	if len(t.TeamIDs) < 2 {
		return nil, apperrors.Validationf("tournament needs at least 2 teams, have %d", len(t.TeamIDs))
	}
	if len(t.MapPool) < t.Format.NumMaps() {
		return nil, apperrors.Validationf("map pool of %d is too small for %s", len(t.MapPool), t.Format)
	}

	switch t.Type {
	case models.TypeSingleElim:
		return generateSingleElim(t), nil
	case models.TypeDoubleElim:
		return generateDoubleElim(t), nil
	case models.TypeRoundRobin:
		return generateRoundRobin(t), nil
	case models.TypeSwiss:
		return generateSwissFirstRound(t), nil
	default:
		return nil, apperrors.Validationf("unsupported tournament type %q", t.Type)
	}
}

// newMatch builds a bracket match in its initial pending state. The
// slug is team-derived when both slots are seeded at generation time
// (or one slot is a known bye), synthetic otherwise.
func newMatch(t *models.Tournament, round, matchNumber int, tag string, team1, team2 *string, seeded bool) *models.Match {
	slug := tag
	if seeded {
		slug = utils.MatchSlug(team1, team2)
	}
	return &models.Match{
		ID:          utils.GenerateUUID(),
		Slug:        slug,
		Round:       round,
		MatchNumber: matchNumber,
		BracketTag:  tag,
		Team1Ref:    team1,
		Team2Ref:    team2,
		Status:      models.MatchPending,
		MatchPhase:  models.PhaseNone,
		Config: models.MatchConfig{
			NumMaps:              t.Format.NumMaps(),
			PlayersPerTeam:       5,
			ExpectedPlayersTotal: 10,
			SkipVeto:             true,
		},
		MapResults:    []models.MapResult{},
		DemoFilePaths: []string{},
	}
}

// paddedTeams pads the seeded team list with empty (bye) slots up to
// the next power of two, so odd fields resolve as walkovers.
func paddedTeams(teamIDs []string) []*string {
	size := utils.NextPowerOfTwo(len(teamIDs))
	padded := make([]*string, size)
	for i := range teamIDs {
		id := teamIDs[i]
		padded[i] = &id
	}
	return padded
}

// generateSingleElim builds a winners-only bracket: round 1 pairs the
// seeded order, later rounds are placeholders fed by NextMatchSlot links.
func generateSingleElim(t *models.Tournament) []*models.Match {
	teams := paddedTeams(t.TeamIDs)
	n := len(teams)
	rounds := int(math.Log2(float64(n)))

	matches := make([]*models.Match, 0, n-1)
	byRound := make(map[int][]*models.Match)

	for round := 1; round <= rounds; round++ {
		count := n >> round
		for i := 0; i < count; i++ {
			tag := fmt.Sprintf("wb-r%d-m%d", round, i+1)
			var match *models.Match
			if round == 1 {
				match = newMatch(t, round, i+1, tag, teams[i*2], teams[i*2+1], true)
			} else {
				match = newMatch(t, round, i+1, tag, nil, nil, false)
			}
			if round == rounds {
				match.BracketTag = TagFinal
			}
			matches = append(matches, match)
			byRound[round] = append(byRound[round], match)
		}
	}

	linkWinners(byRound, rounds)
	return matches
}

// linkWinners points every non-final match at the slot its winner fills.
func linkWinners(byRound map[int][]*models.Match, rounds int) {
	for round := 1; round < rounds; round++ {
		next := byRound[round+1]
		for i, match := range byRound[round] {
			side := models.Team1
			if i%2 == 1 {
				side = models.Team2
			}
			match.NextMatchSlot = &models.NextSlot{MatchSlug: next[i/2].Slug, Side: side}
		}
	}
}

// generateDoubleElim layers a losers bracket and a grand final over the
// winners bracket. Losers-bracket rounds alternate between pairing LB
// survivors and absorbing the next winners-bracket round's losers, with
// drop order reversed on alternating rounds to delay rematches.
func generateDoubleElim(t *models.Tournament) []*models.Match {
	teams := paddedTeams(t.TeamIDs)
	n := len(teams)
	wbRounds := int(math.Log2(float64(n)))

	matches := generateSingleElim(t)
	byRound := make(map[int][]*models.Match)
	for _, m := range matches {
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	wbFinal := byRound[wbRounds][0]
	wbFinal.BracketTag = fmt.Sprintf("wb-r%d-m1", wbRounds)
	if wbFinal.Slug == TagFinal {
		wbFinal.Slug = wbFinal.BracketTag
		// Re-point the semifinal winner links at the renamed slug.
		for _, m := range byRound[wbRounds-1] {
			if m.NextMatchSlot != nil && m.NextMatchSlot.MatchSlug == TagFinal {
				m.NextMatchSlot.MatchSlug = wbFinal.Slug
			}
		}
	}

	grandFinal := newMatch(t, 3*wbRounds, 1, TagGrandFinals, nil, nil, false)
	wbFinal.NextMatchSlot = &models.NextSlot{MatchSlug: grandFinal.Slug, Side: models.Team1}

	if n == 2 {
		// No losers bracket: the single match's loser goes straight to
		// the grand final.
		wbFinal.LoserNextSlot = &models.NextSlot{MatchSlug: grandFinal.Slug, Side: models.Team2}
		return append(matches, grandFinal)
	}

	lbByRound := make(map[int][]*models.Match)
	lbRounds := 2 * (wbRounds - 1)
	for lb := 1; lb <= lbRounds; lb++ {
		var count int
		if lb == 1 {
			count = n / 4
		} else {
			// Drop rounds (even lb) and internal rounds (odd lb) after
			// the k-th winners round both shrink by powers of two.
			k := lb/2 + 1
			if lb%2 == 0 {
				count = n >> k
			} else {
				count = n >> (k + 1)
			}
		}
		for i := 0; i < count; i++ {
			match := newMatch(t, wbRounds+lb, i+1, fmt.Sprintf("lb-r%d-m%d", lb, i+1), nil, nil, false)
			lbByRound[lb] = append(lbByRound[lb], match)
			matches = append(matches, match)
		}
	}

	// WB round 1 losers pair up in LB round 1.
	for i, match := range byRound[1] {
		side := models.Team1
		if i%2 == 1 {
			side = models.Team2
		}
		match.LoserNextSlot = &models.NextSlot{MatchSlug: lbByRound[1][i/2].Slug, Side: side}
	}

	// Later WB losers drop into the even LB rounds.
	for k := 2; k <= wbRounds; k++ {
		drop := lbByRound[2*(k-1)]
		wb := byRound[k]
		for i, match := range wb {
			target := i
			if k%2 == 0 {
				// Reverse drop order to push rematches apart.
				target = len(wb) - 1 - i
			}
			match.LoserNextSlot = &models.NextSlot{MatchSlug: drop[target].Slug, Side: models.Team2}
		}
	}

	// LB winners advance within the losers bracket.
	for lb := 1; lb < lbRounds; lb++ {
		next := lbByRound[lb+1]
		for i, match := range lbByRound[lb] {
			if len(next) == len(lbByRound[lb]) {
				// Into a drop round: one LB winner per match, joined by
				// a WB loser on the other side.
				match.NextMatchSlot = &models.NextSlot{MatchSlug: next[i].Slug, Side: models.Team1}
			} else {
				side := models.Team1
				if i%2 == 1 {
					side = models.Team2
				}
				match.NextMatchSlot = &models.NextSlot{MatchSlug: next[i/2].Slug, Side: side}
			}
		}
	}

	lbFinal := lbByRound[lbRounds][0]
	lbFinal.NextMatchSlot = &models.NextSlot{MatchSlug: grandFinal.Slug, Side: models.Team2}

	return append(matches, grandFinal)
}

// GrandFinalsReset builds the second grand final after the losers-
// bracket champion takes the first one: same two teams, sides reversed.
func GrandFinalsReset(t *models.Tournament, grandFinal *models.Match) *models.Match {
	reset := newMatch(t, grandFinal.Round+1, 1, TagGrandFinalsReset, grandFinal.Team2Ref, grandFinal.Team1Ref, false)
	return reset
}

// generateRoundRobin schedules every unordered pair once, with rounds
// laid out by the circle method so each team plays once per round.
func generateRoundRobin(t *models.Tournament) []*models.Match {
	ids := append([]string(nil), t.TeamIDs...)
	if len(ids)%2 == 1 {
		ids = append(ids, "") // bye slot: no match generated against it
	}
	n := len(ids)
	rounds := n - 1

	var matches []*models.Match
	ring := append([]string(nil), ids...)
	for round := 1; round <= rounds; round++ {
		matchNumber := 1
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == "" || b == "" {
				continue
			}
			tag := fmt.Sprintf("rr-r%d-m%d", round, matchNumber)
			match := newMatch(t, round, matchNumber, tag, utils.StringPtr(a), utils.StringPtr(b), true)
			matches = append(matches, match)
			matchNumber++
		}
		// Rotate everything but the first position.
		ring = append([]string{ring[0], ring[n-1]}, ring[1:n-1]...)
	}
	return matches
}

// SwissRounds returns the total round count for a Swiss field.
func SwissRounds(teamCount int) int {
	return int(math.Ceil(math.Log2(float64(teamCount))))
}

// generateSwissFirstRound pairs round 1 from the input order; later
// rounds are generated as previous rounds complete.
func generateSwissFirstRound(t *models.Tournament) []*models.Match {
	return pairSwissRound(t, 1, t.TeamIDs)
}

// GenerateSwissRound pairs a subsequent Swiss round: teams ordered by
// score (stable on the seeded order), greedily paired against the
// nearest opponent they have not yet played.
func GenerateSwissRound(t *models.Tournament, round int, ordered []string, played map[string]map[string]bool) []*models.Match {
	remaining := append([]string(nil), ordered...)
	var sequence []string
	for len(remaining) > 0 {
		a := remaining[0]
		remaining = remaining[1:]
		paired := false
		for i, b := range remaining {
			if !played[a][b] {
				sequence = append(sequence, a, b)
				remaining = append(remaining[:i], remaining[i+1:]...)
				paired = true
				break
			}
		}
		if !paired {
			if len(remaining) > 0 {
				// Every candidate is a rematch; take the nearest anyway.
				sequence = append(sequence, a, remaining[0])
				remaining = remaining[1:]
			} else {
				sequence = append(sequence, a) // bye
			}
		}
	}
	return pairSwissRound(t, round, sequence)
}

// pairSwissRound turns an ordered sequence into adjacent-pair matches;
// a trailing unpaired team gets a bye walkover.
func pairSwissRound(t *models.Tournament, round int, ordered []string) []*models.Match {
	var matches []*models.Match
	matchNumber := 1
	for i := 0; i+1 < len(ordered); i += 2 {
		tag := fmt.Sprintf("swiss-r%d-m%d", round, matchNumber)
		match := newMatch(t, round, matchNumber, tag, utils.StringPtr(ordered[i]), utils.StringPtr(ordered[i+1]), true)
		matches = append(matches, match)
		matchNumber++
	}
	if len(ordered)%2 == 1 {
		tag := fmt.Sprintf("swiss-r%d-m%d", round, matchNumber)
		match := newMatch(t, round, matchNumber, tag, utils.StringPtr(ordered[len(ordered)-1]), nil, true)
		matches = append(matches, match)
	}
	return matches
}
