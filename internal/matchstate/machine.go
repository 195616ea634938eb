// internal/matchstate/machine.go
// Match state machine: owns every persisted match transition. All
// mutation goes through the store's optimistic lock; a stale commit is
// reloaded and retried before surfacing.

package matchstate

import (
	"context"
	"log"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/store"
	"matchzy-auto-tournament/internal/utils"
)

// staleRetries bounds automatic reload-and-retry on optimistic-lock
// conflicts before the error surfaces.
const staleRetries = 3

// Advancer receives completion notifications so the scheduler can
// advance the bracket and reuse freed servers. Implemented by the
// scheduler; nil-safe for tests.
type Advancer interface {
	MatchCompleted(slug string)
	ServerFreed(serverID string)
	VetoCompleted(slug string)
}

// Machine interprets canonical events into match transitions.
type Machine struct {
	store    store.Store
	hub      *broadcast.Hub
	advancer Advancer
	logger   *log.Logger
}

// NewMachine creates a state machine over the given store.
func NewMachine(st store.Store, hub *broadcast.Hub, logger *log.Logger) *Machine {
	return &Machine{store: st, hub: hub, logger: logger}
}

// SetAdvancer wires the scheduler in after construction (the scheduler
// itself depends on the machine's veto helpers).
func (m *Machine) SetAdvancer(a Advancer) {
	m.advancer = a
}

// HandleEvent applies one canonical event to its match. Events for an
// unknown slug are ignored; the log already holds them as orphans.
func (m *Machine) HandleEvent(ctx context.Context, ev *ingest.CanonicalEvent) error {
	switch ev.Kind {
	case ingest.KindSeriesStart:
		return m.handleSeriesStart(ctx, ev)
	case ingest.KindSeriesEnd:
		return m.handleSeriesEnd(ctx, ev)
	case ingest.KindMapResult:
		return m.handleMapResult(ctx, ev)
	case ingest.KindGoingLive:
		return m.handleGoingLive(ctx, ev)
	case ingest.KindRoundEnd:
		return m.handleRoundEnd(ctx, ev)
	case ingest.KindMapPicked:
		return m.handleVetoEvent(ctx, ev, ActionPick)
	case ingest.KindMapVetoed:
		return m.handleVetoEvent(ctx, ev, ActionBan)
	case ingest.KindSidePicked:
		return m.handleVetoEvent(ctx, ev, ActionSidePick)
	default:
		// Player and bomb events only touch derived live state.
		return nil
	}
}

// mutate runs fn against a fresh copy of the match and commits the
// patch it returns, retrying on optimistic-lock staleness. fn returning
// a nil patch means no transition applies (an idempotent re-delivery).
func (m *Machine) mutate(ctx context.Context, slug string, fn func(*models.Match) (*store.MatchPatch, error)) (*models.Match, error) {
	var lastErr error
	for attempt := 0; attempt < staleRetries; attempt++ {
		match, err := m.store.GetMatch(ctx, slug)
		if err != nil {
			if apperrors.Is(err, apperrors.NotFound) {
				// Orphan event; stored, not interpreted.
				return nil, nil
			}
			return nil, err
		}

		patch, err := fn(match)
		if err != nil {
			return nil, err
		}
		if patch == nil {
			return match, nil
		}
		patch.ExpectedVersion = match.Version

		updated, err := m.store.UpdateMatch(ctx, slug, *patch)
		if err != nil {
			if apperrors.Is(err, apperrors.Stale) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return updated, nil
	}
	return nil, lastErr
}

func (m *Machine) handleSeriesStart(ctx context.Context, ev *ingest.CanonicalEvent) error {
	updated, err := m.mutate(ctx, ev.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status == models.MatchLive {
			return nil, nil
		}
		if match.Status != models.MatchLoaded {
			return nil, apperrors.Conflictf("series_start for match %s in status %s", match.Slug, match.Status)
		}
		status := models.MatchLive
		phase := models.PhaseLive
		return &store.MatchPatch{
			Status:     &status,
			MatchPhase: &phase,
			LoadedAt:   utils.BoolPtr(true),
		}, nil
	})
	if err != nil || updated == nil {
		return err
	}

	m.publishStatus(updated)
	return nil
}

func (m *Machine) handleSeriesEnd(ctx context.Context, ev *ingest.CanonicalEvent) error {
	var freedServer string
	completing := false
	updated, err := m.mutate(ctx, ev.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status == models.MatchCompleted {
			// Re-delivered series_end; the log grows, the state does not.
			return nil, nil
		}
		if match.Status != models.MatchLive {
			return nil, apperrors.Conflictf("series_end for match %s in status %s", match.Slug, match.Status)
		}

		score1, score2 := match.Team1SeriesScore, match.Team2SeriesScore
		if ev.SeriesScore1 > 0 || ev.SeriesScore2 > 0 {
			score1, score2 = ev.SeriesScore1, ev.SeriesScore2
		}

		winner := ev.Winner
		if winner == "" {
			switch {
			case score1 > score2:
				winner = models.Team1
			case score2 > score1:
				winner = models.Team2
			}
		}
		if winner == "" {
			// Even series length and a drawn score: stay live and
			// extend the series with a tiebreak map; the plugin reports
			// a decisive series_end after it is played.
			return m.tiebreakPatch(ctx, match)
		}

		winnerRef := match.Team1Ref
		if winner == models.Team2 {
			winnerRef = match.Team2Ref
		}
		if winnerRef == nil {
			return nil, apperrors.Conflictf("series_end winner %s has no team ref on match %s", winner, match.Slug)
		}

		if match.ServerRef != nil {
			freedServer = *match.ServerRef
		}

		completing = true
		status := models.MatchCompleted
		phase := models.PhasePostMatch
		var noServer *string
		return &store.MatchPatch{
			Status:           &status,
			MatchPhase:       &phase,
			WinnerRef:        &winnerRef,
			ServerRef:        &noServer,
			CompletedAt:      utils.BoolPtr(true),
			Team1SeriesScore: &score1,
			Team2SeriesScore: &score2,
		}, nil
	})
	if err != nil || updated == nil {
		return err
	}
	if !completing || updated.Status != models.MatchCompleted {
		// Re-delivery or tiebreak extension; nothing to advance.
		return nil
	}

	m.publishStatus(updated)
	if m.advancer != nil {
		if freedServer != "" {
			m.advancer.ServerFreed(freedServer)
		}
		m.advancer.MatchCompleted(updated.Slug)
	}
	return nil
}

// tiebreakPatch appends the left-most unused pool map as map numMaps+1
// so a drawn even-length series can decide itself.
func (m *Machine) tiebreakPatch(ctx context.Context, match *models.Match) (*store.MatchPatch, error) {
	tournament, err := m.store.GetTournament(ctx)
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool, len(match.Config.MapList))
	for _, mapKey := range match.Config.MapList {
		used[mapKey] = true
	}
	var tiebreak string
	for _, mapKey := range tournament.MapPool {
		if !used[mapKey] {
			tiebreak = mapKey
			break
		}
	}
	if tiebreak == "" {
		return nil, apperrors.Conflictf("series tied on match %s and no unused map remains for a tiebreak", match.Slug)
	}

	config := match.Config
	config.MapList = append(append([]string(nil), config.MapList...), tiebreak)
	config.NumMaps = len(config.MapList)
	if len(config.MapSides) > 0 {
		config.MapSides = append(append([]string(nil), config.MapSides...), "knife")
	}
	m.logger.Printf("Series tied on %s, adding tiebreak map %s", match.Slug, tiebreak)
	return &store.MatchPatch{Config: &config}, nil
}

func (m *Machine) handleMapResult(ctx context.Context, ev *ingest.CanonicalEvent) error {
	updated, err := m.mutate(ctx, ev.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status != models.MatchLive {
			return nil, apperrors.Conflictf("map_result for match %s in status %s", match.Slug, match.Status)
		}

		// Replace by map number so a re-posted result is idempotent.
		results := append([]models.MapResult(nil), match.MapResults...)
		replaced := false
		for i, r := range results {
			if r.MapNumber == ev.MapNumber {
				results[i].MapName = ev.MapName
				results[i].Team1Score = ev.Score1
				results[i].Team2Score = ev.Score2
				replaced = true
				break
			}
		}
		if !replaced {
			results = append(results, models.MapResult{
				MapNumber:  ev.MapNumber,
				MapName:    ev.MapName,
				Team1Score: ev.Score1,
				Team2Score: ev.Score2,
			})
		}

		// Series scores derive from map results, never increment.
		series1, series2 := 0, 0
		for _, r := range results {
			if r.Team1Score > r.Team2Score {
				series1++
			} else if r.Team2Score > r.Team1Score {
				series2++
			}
		}

		zero := 0
		return &store.MatchPatch{
			MapResults:       &results,
			Team1Score:       &zero,
			Team2Score:       &zero,
			Team1SeriesScore: &series1,
			Team2SeriesScore: &series2,
		}, nil
	})
	if err != nil || updated == nil {
		return err
	}

	m.publishScores(updated)
	return nil
}

func (m *Machine) handleGoingLive(ctx context.Context, ev *ingest.CanonicalEvent) error {
	_, err := m.mutate(ctx, ev.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status != models.MatchLive || match.MatchPhase == models.PhaseLive {
			return nil, nil
		}
		phase := models.PhaseLive
		return &store.MatchPatch{MatchPhase: &phase}, nil
	})
	return err
}

func (m *Machine) handleRoundEnd(ctx context.Context, ev *ingest.CanonicalEvent) error {
	updated, err := m.mutate(ctx, ev.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status != models.MatchLive {
			return nil, nil
		}
		return &store.MatchPatch{
			Team1Score: &ev.Score1,
			Team2Score: &ev.Score2,
		}, nil
	})
	if err != nil || updated == nil {
		return err
	}

	m.publishScores(updated)
	return nil
}

// handleVetoEvent advances the veto state machine and, when the veto
// completes, freezes the map list into the match config.
func (m *Machine) handleVetoEvent(ctx context.Context, ev *ingest.CanonicalEvent, action string) error {
	veto, err := m.store.GetVeto(ctx, ev.MatchSlug)
	if err != nil {
		if apperrors.Is(err, apperrors.NotFound) {
			return nil
		}
		return err
	}
	if veto.Complete {
		return nil
	}

	actor := ev.ActorTeam
	if actor == "" {
		if step := CurrentStep(veto); step != nil {
			actor = step.Actor
		}
	}

	if err := ApplyVeto(veto, actor, action, ev.MapName, ev.SideChoice); err != nil {
		return err
	}
	if err := m.store.SaveVeto(ctx, veto); err != nil {
		return err
	}

	if veto.Complete {
		return m.FinalizeVeto(ctx, veto)
	}
	return nil
}

// FinalizeVeto writes a completed veto's outcome onto the match and
// signals the allocator that the match can now be loaded.
func (m *Machine) FinalizeVeto(ctx context.Context, veto *models.VetoState) error {
	updated, err := m.mutate(ctx, veto.MatchSlug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.VetoCompleted {
			return nil, nil
		}
		config := match.Config
		config.MapList = append([]string(nil), veto.PickedMaps...)
		config.NumMaps = len(veto.PickedMaps)
		config.MapSides = MapSides(veto)

		phase := match.MatchPhase
		if phase == models.PhaseVeto || phase == models.PhaseNone {
			phase = models.PhaseWarmup
		}
		return &store.MatchPatch{
			VetoCompleted: utils.BoolPtr(true),
			Config:        &config,
			MatchPhase:    &phase,
		}, nil
	})
	if err != nil || updated == nil {
		return err
	}

	m.logger.Printf("Veto complete for %s: %v", veto.MatchSlug, veto.PickedMaps)
	if m.advancer != nil {
		m.advancer.VetoCompleted(veto.MatchSlug)
	}
	return nil
}

// ForceComplete ends a live match by operator decision, crediting the
// named side. The same guards apply as for a plugin series_end.
func (m *Machine) ForceComplete(ctx context.Context, slug string, winner models.TeamSide) (*models.Match, error) {
	var freedServer string
	updated, err := m.mutate(ctx, slug, func(match *models.Match) (*store.MatchPatch, error) {
		if match.Status != models.MatchLive {
			return nil, apperrors.Conflictf("match %s is not live", slug)
		}
		winnerRef := match.Team1Ref
		if winner == models.Team2 {
			winnerRef = match.Team2Ref
		}
		if winnerRef == nil {
			return nil, apperrors.Validationf("winner side %s has no team on match %s", winner, slug)
		}
		if match.ServerRef != nil {
			freedServer = *match.ServerRef
		}

		status := models.MatchCompleted
		phase := models.PhasePostMatch
		var noServer *string
		return &store.MatchPatch{
			Status:      &status,
			MatchPhase:  &phase,
			WinnerRef:   &winnerRef,
			ServerRef:   &noServer,
			CompletedAt: utils.BoolPtr(true),
		}, nil
	})
	if err != nil || updated == nil {
		return nil, err
	}

	m.publishStatus(updated)
	if m.advancer != nil {
		if freedServer != "" {
			m.advancer.ServerFreed(freedServer)
		}
		m.advancer.MatchCompleted(updated.Slug)
	}
	return updated, nil
}

func (m *Machine) publishStatus(match *models.Match) {
	if m.hub == nil {
		return
	}
	serverID := ""
	if match.ServerRef != nil {
		serverID = *match.ServerRef
	}
	m.hub.PublishMatchUpdate(broadcast.MatchUpdate{
		Slug:     match.Slug,
		Status:   string(match.Status),
		ServerID: serverID,
	})
	m.hub.PublishBracketUpdate(broadcast.BracketUpdate{
		Action:    broadcast.ActionMatchStatus,
		MatchSlug: match.Slug,
		Status:    string(match.Status),
		ServerID:  serverID,
	})
}

func (m *Machine) publishScores(match *models.Match) {
	if m.hub == nil {
		return
	}
	m.hub.PublishMatchUpdate(broadcast.MatchUpdate{
		Slug:       match.Slug,
		Team1Score: &match.Team1Score,
		Team2Score: &match.Team2Score,
	})
}
