// internal/scheduler/scheduler.go
// The scheduler owns the allocation loop: it pairs ready matches with
// available servers, pushes match configuration over RCON, advances the
// bracket on completions, and enforces veto timeouts. One goroutine per
// process; everything it believes is re-derivable from the store, so a
// restart resumes where the previous process stopped.

package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/cache"
	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/matchstate"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/secrets"
	"matchzy-auto-tournament/internal/store"
	"matchzy-auto-tournament/internal/utils"
)

// CommandSender is the RCON primitive the scheduler drives servers with.
type CommandSender interface {
	SendCommand(ctx context.Context, addr, password, cmd string) (string, error)
}

// Notifier receives best-effort bracket-progress pings (Discord in
// production). Optional; nil disables it.
type Notifier interface {
	MatchReady(match *models.Match, team1, team2 *models.Team)
	MatchLoaded(match *models.Match, serverName string)
}

// Scheduler drives tournament progress. All state lives in the store;
// the channels only wake the loop early.
type Scheduler struct {
	store   store.Store
	rcon    CommandSender
	hub     *broadcast.Hub
	machine *matchstate.Machine
	sealer  *secrets.Sealer
	cache   *cache.Cache
	cfg     config.SchedulerConfig
	logger  *log.Logger

	serverToken string
	notifier    Notifier

	mu      sync.Mutex
	baseURL string

	wake      chan struct{}
	completed chan string
}

// New creates a scheduler. Run must be started for progress to happen.
func New(st store.Store, rcon CommandSender, hub *broadcast.Hub, machine *matchstate.Machine,
	sealer *secrets.Sealer, c *cache.Cache, cfg config.SchedulerConfig, serverToken, baseURL string, logger *log.Logger) *Scheduler {
	return &Scheduler{
		store:       st,
		rcon:        rcon,
		hub:         hub,
		machine:     machine,
		sealer:      sealer,
		cache:       c,
		cfg:         cfg,
		serverToken: serverToken,
		baseURL:     baseURL,
		logger:      logger,
		wake:        make(chan struct{}, 1),
		completed:   make(chan string, 64),
	}
}

// SetNotifier wires an optional progress notifier in after construction.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// --- matchstate.Advancer ---

// MatchCompleted queues bracket advancement for a finished match.
func (s *Scheduler) MatchCompleted(slug string) {
	select {
	case s.completed <- slug:
	default:
		// Queue full; the next sweep re-derives completions from the store.
		s.poke()
	}
}

// ServerFreed wakes the allocator to reuse the server.
func (s *Scheduler) ServerFreed(string) { s.poke() }

// VetoCompleted wakes the allocator: the match can now be loaded.
func (s *Scheduler) VetoCompleted(string) { s.poke() }

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run is the single allocation loop. It exits cooperatively: the
// in-flight sweep finishes before the method returns.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.AllocationTick)
	defer ticker.Stop()

	s.logger.Printf("Scheduler started (tick %s)", s.cfg.AllocationTick)
	for {
		select {
		case slug := <-s.completed:
			if err := s.Advance(ctx, slug); err != nil {
				s.logger.Printf("Advance %s: %v", slug, err)
			}
			s.sweep(ctx)
		case <-s.wake:
			s.sweep(ctx)
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.logger.Println("Scheduler stopped")
			return
		}
	}
}

// sweep runs one full pass: veto timeouts, readiness promotion, server
// allocation, and the stale-loaded probe. Per-match errors are logged
// and never stop the loop.
func (s *Scheduler) sweep(ctx context.Context) {
	tournament, err := s.store.GetTournament(ctx)
	if err != nil || tournament.Status != models.TournamentInProgress {
		return
	}

	if err := s.enforceVetoTimeouts(ctx); err != nil {
		s.logger.Printf("Veto timeout pass: %v", err)
	}
	if err := s.promotePending(ctx, tournament); err != nil {
		s.logger.Printf("Readiness pass: %v", err)
	}
	if _, err := s.allocate(ctx); err != nil {
		s.logger.Printf("Allocation pass: %v", err)
	}
	if err := s.probeStaleLoaded(ctx); err != nil {
		s.logger.Printf("Probe pass: %v", err)
	}
}

// StartTournament generates the bracket, persists it atomically with
// the status flip to in_progress, resolves walkovers, and runs one
// synchronous allocation pass. Returns the number of matches bound to
// servers in that pass.
func (s *Scheduler) StartTournament(ctx context.Context, baseURL string) (int, error) {
	tournament, err := s.store.GetTournament(ctx)
	if err != nil {
		return 0, err
	}
	if tournament.Status != models.TournamentSetup && tournament.Status != models.TournamentReady {
		return 0, apperrors.Conflictf("tournament is %s, not setup", tournament.Status)
	}

	matches, err := GenerateBracket(tournament)
	if err != nil {
		return 0, err
	}

	if baseURL != "" {
		s.mu.Lock()
		s.baseURL = baseURL
		s.mu.Unlock()
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.CreateMatches(ctx, matches); err != nil {
			return err
		}
		tournament.Status = models.TournamentInProgress
		return s.store.UpsertTournament(ctx, tournament)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Printf("Tournament started: %d matches generated (%s/%s)", len(matches), tournament.Type, tournament.Format)
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{Action: broadcast.ActionTournamentStarted})
	s.hub.PublishTournamentUpdate(broadcast.ActionTournamentStarted)

	if err := s.promotePending(ctx, tournament); err != nil {
		s.logger.Printf("Initial readiness pass: %v", err)
	}
	allocated, err := s.allocate(ctx)
	if err != nil {
		s.logger.Printf("Initial allocation pass: %v", err)
	}
	s.poke()
	return allocated, nil
}

// Reset empties matches and events and returns the tournament to setup.
func (s *Scheduler) Reset(ctx context.Context) error {
	if err := s.store.ResetTournament(ctx); err != nil {
		return err
	}
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{Action: broadcast.ActionTournamentReset})
	s.hub.PublishTournamentUpdate(broadcast.ActionTournamentReset)
	return nil
}

// promotePending moves pending matches with both slots resolved to
// ready (initializing their veto), and completes walkovers outright.
func (s *Scheduler) promotePending(ctx context.Context, tournament *models.Tournament) error {
	pending, err := s.store.ListMatches(ctx, store.MatchFilter{Status: models.MatchPending})
	if err != nil {
		return err
	}

	for _, match := range pending {
		switch {
		case match.Team1Ref != nil && match.Team2Ref != nil:
			if err := s.promoteToReady(ctx, tournament, match); err != nil {
				s.logger.Printf("Promote %s: %v", match.Slug, err)
			}
		case match.IsWalkover() && s.slotsDecided(ctx, match):
			if err := s.completeWalkover(ctx, match); err != nil {
				s.logger.Printf("Walkover %s: %v", match.Slug, err)
			}
		}
	}
	return nil
}

// slotsDecided reports whether a half-filled match can never receive a
// second team: true when no other match feeds its empty slot.
func (s *Scheduler) slotsDecided(ctx context.Context, match *models.Match) bool {
	all, err := s.store.ListMatches(ctx, store.MatchFilter{})
	if err != nil {
		return false
	}
	emptySide := models.Team1
	if match.Team2Ref == nil {
		emptySide = models.Team2
	}
	for _, other := range all {
		if other.NextMatchSlot != nil && other.NextMatchSlot.MatchSlug == match.Slug && other.NextMatchSlot.Side == emptySide {
			return false
		}
		if other.LoserNextSlot != nil && other.LoserNextSlot.MatchSlug == match.Slug && other.LoserNextSlot.Side == emptySide {
			return false
		}
	}
	return true
}

// promoteToReady fills the match config from the rosters, initializes
// the veto, and flips pending to ready.
func (s *Scheduler) promoteToReady(ctx context.Context, tournament *models.Tournament, match *models.Match) error {
	team1, err := s.store.GetTeam(ctx, *match.Team1Ref)
	if err != nil {
		return err
	}
	team2, err := s.store.GetTeam(ctx, *match.Team2Ref)
	if err != nil {
		return err
	}

	config := match.Config
	config.Team1 = configTeam(team1)
	config.Team2 = configTeam(team2)
	config.ExpectedPlayersTotal = 2 * config.PlayersPerTeam

	veto := matchstate.NewVeto(match.Slug, tournament.Format, tournament.MapPool)
	if err := s.store.SaveVeto(ctx, veto); err != nil {
		return err
	}

	status := models.MatchReady
	phase := models.PhaseVeto
	if veto.Complete {
		config.MapList = append([]string(nil), veto.PickedMaps...)
		config.NumMaps = len(veto.PickedMaps)
		config.MapSides = matchstate.MapSides(veto)
		phase = models.PhaseWarmup
	}
	_, err = s.store.UpdateMatch(ctx, match.Slug, store.MatchPatch{
		ExpectedVersion: match.Version,
		Status:          &status,
		MatchPhase:      &phase,
		ReadyAt:         utils.BoolPtr(true),
		VetoCompleted:   &veto.Complete,
		Config:          &config,
	})
	if err != nil {
		return err
	}

	s.logger.Printf("Match %s is ready", match.Slug)
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
		Action:    broadcast.ActionMatchReady,
		MatchSlug: match.Slug,
		Status:    string(models.MatchReady),
	})
	if s.notifier != nil {
		s.notifier.MatchReady(match, team1, team2)
	}
	return nil
}

func configTeam(team *models.Team) models.MatchConfigTeam {
	players := make(map[string]string, len(team.Players))
	for _, p := range team.Players {
		players[p.SteamID64] = p.DisplayName
	}
	return models.MatchConfigTeam{Name: team.Name, Players: players}
}

// completeWalkover finishes a one-sided match without server allocation.
func (s *Scheduler) completeWalkover(ctx context.Context, match *models.Match) error {
	winner := match.Team1Ref
	if winner == nil {
		winner = match.Team2Ref
	}

	status := models.MatchCompleted
	demoPaths := []string{}
	_, err := s.store.UpdateMatch(ctx, match.Slug, store.MatchPatch{
		ExpectedVersion: match.Version,
		Status:          &status,
		WinnerRef:       &winner,
		CompletedAt:     utils.BoolPtr(true),
		DemoFilePaths:   &demoPaths,
	})
	if err != nil {
		return err
	}

	s.logger.Printf("Match %s completed by walkover (%s)", match.Slug, *winner)
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
		Action:    broadcast.ActionMatchStatus,
		MatchSlug: match.Slug,
		Status:    string(models.MatchCompleted),
	})
	return s.Advance(ctx, match.Slug)
}

// enforceVetoTimeouts acts on behalf of silent teams. A non-positive
// configured timeout resolves pending vetoes entirely, which is how
// unattended tournaments run.
func (s *Scheduler) enforceVetoTimeouts(ctx context.Context) error {
	ready, err := s.store.ListMatches(ctx, store.MatchFilter{Status: models.MatchReady})
	if err != nil {
		return err
	}

	now := time.Now()
	for _, match := range ready {
		if match.VetoCompleted || match.Team1Ref == nil || match.Team2Ref == nil {
			continue
		}
		veto, err := s.store.GetVeto(ctx, match.Slug)
		if err != nil {
			continue
		}

		acted := false
		for matchstate.CurrentStep(veto) != nil &&
			(s.cfg.VetoStepTimeout <= 0 || matchstate.Expired(veto, s.cfg.VetoStepTimeout, now)) {
			if err := matchstate.AutoAct(veto); err != nil {
				s.logger.Printf("Veto auto-act for %s: %v", match.Slug, err)
				break
			}
			acted = true
			if s.cfg.VetoStepTimeout > 0 {
				// One overdue step per pass; the next timeout starts now.
				break
			}
		}
		if !acted {
			continue
		}
		if err := s.store.SaveVeto(ctx, veto); err != nil {
			return err
		}
		s.logger.Printf("Veto step auto-resolved for %s", match.Slug)
		if veto.Complete {
			if err := s.machine.FinalizeVeto(ctx, veto); err != nil {
				s.logger.Printf("Finalize veto for %s: %v", match.Slug, err)
			}
		}
	}
	return nil
}

// allocate pairs ready matches with available servers. Binding happens
// in a transaction that re-checks both sides, so concurrent sweeps
// cannot double-bind a server.
func (s *Scheduler) allocate(ctx context.Context) (int, error) {
	ready, err := s.store.ListMatches(ctx, store.MatchFilter{Status: models.MatchReady})
	if err != nil {
		return 0, err
	}
	available, err := s.availableServers(ctx)
	if err != nil {
		return 0, err
	}

	allocated := 0
	for _, match := range ready {
		if len(available) == 0 {
			break
		}
		if !match.VetoCompleted || match.Team1Ref == nil || match.Team2Ref == nil {
			continue
		}
		if s.inBackoff(ctx, match.Slug) {
			continue
		}

		server := available[0]
		if err := s.bindAndLoad(ctx, match, server); err != nil {
			s.logger.Printf("Load %s onto %s: %v", match.Slug, server.ID, err)
			s.backoff(ctx, match.Slug)
			continue
		}
		available = available[1:]
		allocated++
	}
	return allocated, nil
}

// availableServers lists enabled servers not bound to a non-completed
// match, stable by id.
func (s *Scheduler) availableServers(ctx context.Context) ([]*models.Server, error) {
	servers, err := s.store.ListServers(ctx)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool)
	for _, status := range []models.MatchStatus{models.MatchLoaded, models.MatchLive} {
		matches, err := s.store.ListMatches(ctx, store.MatchFilter{Status: status})
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.ServerRef != nil {
				bound[*m.ServerRef] = true
			}
		}
	}

	var available []*models.Server
	for _, server := range servers {
		if server.Enabled && !bound[server.ID] {
			available = append(available, server)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })
	return available, nil
}

// bindAndLoad reserves the server for the match, pushes the plugin
// configuration, and stamps loadedAt. A push failure reverts the bind
// and records a warning event; the next tick retries elsewhere.
func (s *Scheduler) bindAndLoad(ctx context.Context, match *models.Match, server *models.Server) error {
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		inUse, err := s.store.ListMatches(ctx, store.MatchFilter{ServerRef: server.ID})
		if err != nil {
			return err
		}
		for _, m := range inUse {
			if m.Status == models.MatchLoaded || m.Status == models.MatchLive {
				return apperrors.Conflictf("server %s is already bound to %s", server.ID, m.Slug)
			}
		}

		current, err := s.store.GetMatch(ctx, match.Slug)
		if err != nil {
			return err
		}
		if current.Status != models.MatchReady || !current.VetoCompleted {
			return apperrors.Conflictf("match %s is no longer ready", match.Slug)
		}

		status := models.MatchLoaded
		ref := &server.ID
		_, err = s.store.UpdateMatch(ctx, match.Slug, store.MatchPatch{
			ExpectedVersion: current.Version,
			Status:          &status,
			ServerRef:       &ref,
		})
		return err
	})
	if err != nil {
		return err
	}

	if err := s.pushConfig(ctx, match.Slug, server, false); err != nil {
		s.revertBind(ctx, match.Slug, server, err)
		return err
	}

	current, err := s.store.GetMatch(ctx, match.Slug)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdateMatch(ctx, match.Slug, store.MatchPatch{
		ExpectedVersion: current.Version,
		LoadedAt:        utils.BoolPtr(true),
		MatchPhase:      phasePtr(models.PhaseWarmup),
	}); err != nil {
		return err
	}

	s.logger.Printf("Match %s loaded onto server %s", match.Slug, server.ID)
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
		Action:    broadcast.ActionServerAssigned,
		MatchSlug: match.Slug,
		ServerID:  server.ID,
	})
	s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
		Action:    broadcast.ActionMatchLoaded,
		MatchSlug: match.Slug,
		Status:    string(models.MatchLoaded),
		ServerID:  server.ID,
	})
	s.hub.PublishMatchUpdate(broadcast.MatchUpdate{
		Slug:     match.Slug,
		Status:   string(models.MatchLoaded),
		ServerID: server.ID,
	})
	if s.notifier != nil {
		s.notifier.MatchLoaded(match, server.Name)
	}
	return nil
}

func phasePtr(p models.MatchPhase) *models.MatchPhase { return &p }

// revertBind returns a match to ready and the server to the pool after
// a failed push, and leaves a warning in the event log.
func (s *Scheduler) revertBind(ctx context.Context, slug string, server *models.Server, cause error) {
	current, err := s.store.GetMatch(ctx, slug)
	if err != nil {
		s.logger.Printf("Revert bind for %s: %v", slug, err)
		return
	}
	status := models.MatchReady
	var noServer *string
	if _, err := s.store.UpdateMatch(ctx, slug, store.MatchPatch{
		ExpectedVersion: current.Version,
		Status:          &status,
		ServerRef:       &noServer,
	}); err != nil {
		s.logger.Printf("Revert bind for %s: %v", slug, err)
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"matchid":  slug,
		"event":    "allocation_warning",
		"serverId": server.ID,
		"error":    cause.Error(),
	})
	if _, err := s.store.AppendEvent(ctx, &models.MatchEvent{
		MatchSlug: slug,
		EventKind: "allocation_warning",
		Payload:   payload,
	}); err != nil {
		s.logger.Printf("Record allocation warning for %s: %v", slug, err)
	}
}

// pushConfig sends the webhook wiring and the load-match command to the
// server, each with its own deadline and retry budget.
func (s *Scheduler) pushConfig(ctx context.Context, slug string, server *models.Server, skipWebhook bool) error {
	s.mu.Lock()
	baseURL := s.baseURL
	s.mu.Unlock()

	commands := []string{
		fmt.Sprintf("matchzy_remote_log_url %q", baseURL+"/api/events"),
		`matchzy_remote_log_header_key "X-MatchZy-Token"`,
		fmt.Sprintf("matchzy_remote_log_header_value %q", s.serverToken),
		fmt.Sprintf("matchzy_loadmatch_url %q", fmt.Sprintf("%s/api/matches/%s.json", baseURL, slug)),
	}
	if skipWebhook {
		commands = commands[3:]
	}

	password, err := s.sealer.Open(server.RCONPassword)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "unseal rcon password for "+server.ID, err)
	}

	for _, cmd := range commands {
		if err := s.sendWithRetry(ctx, server.Addr(), password, cmd); err != nil {
			return err
		}
	}
	return nil
}

// sendWithRetry issues one RCON command with exponential backoff.
func (s *Scheduler) sendWithRetry(ctx context.Context, addr, password, cmd string) error {
	var lastErr error
	backoff := s.cfg.RCONBackoffBase
	for attempt := 0; attempt < s.cfg.RCONRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		cmdCtx, cancel := context.WithTimeout(ctx, s.cfg.RCONTimeout)
		_, err := s.rcon.SendCommand(cmdCtx, addr, password, cmd)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return apperrors.Wrap(apperrors.Upstream, "rcon command exhausted retries", lastErr)
}

// inBackoff / backoff keep a failed match off the allocator for a
// jittered window so one unreachable server does not busy-loop the tick.
func (s *Scheduler) inBackoff(ctx context.Context, slug string) bool {
	if s.cache == nil {
		return false
	}
	var until time.Time
	if err := s.cache.Get(ctx, "alloc_backoff:"+slug, &until); err != nil {
		return false
	}
	return time.Now().Before(until)
}

func (s *Scheduler) backoff(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	window := 5*time.Second + time.Duration(rand.Intn(5000))*time.Millisecond
	s.cache.Set(ctx, "alloc_backoff:"+slug, time.Now().Add(window), window)
}

// LoadMatch manually (re)pushes a match's configuration. A ready match
// is allocated to the first free server; a loaded match is re-pushed to
// its bound server.
func (s *Scheduler) LoadMatch(ctx context.Context, slug string, skipWebhook bool) error {
	match, err := s.store.GetMatch(ctx, slug)
	if err != nil {
		return err
	}

	switch match.Status {
	case models.MatchReady:
		if !match.VetoCompleted {
			return apperrors.Conflictf("match %s has not completed its veto", slug)
		}
		available, err := s.availableServers(ctx)
		if err != nil {
			return err
		}
		if len(available) == 0 {
			return apperrors.Conflictf("no server available for match %s", slug)
		}
		return s.bindAndLoad(ctx, match, available[0])

	case models.MatchLoaded, models.MatchLive:
		server, err := s.store.GetServer(ctx, *match.ServerRef)
		if err != nil {
			return err
		}
		if err := s.pushConfig(ctx, slug, server, skipWebhook); err != nil {
			return err
		}
		s.hub.PublishBracketUpdate(broadcast.BracketUpdate{
			Action:    broadcast.ActionMatchRestarted,
			MatchSlug: slug,
			ServerID:  server.ID,
		})
		return nil

	default:
		return apperrors.Conflictf("match %s is %s and cannot be loaded", slug, match.Status)
	}
}

// probeStaleLoaded sends a status probe for every match that has been
// in loaded longer than the configured age (measured from loadedAt;
// received events are not consulted) and demotes it to ready, releasing
// its server, only when the probe fails. A bound match with no loadedAt
// is demoted once its readyAt is older than the same age.
func (s *Scheduler) probeStaleLoaded(ctx context.Context) error {
	loaded, err := s.store.ListMatches(ctx, store.MatchFilter{Status: models.MatchLoaded})
	if err != nil {
		return err
	}

	now := time.Now()
	for _, match := range loaded {
		if match.ServerRef == nil {
			continue
		}
		if match.LoadedAt != nil {
			if now.Sub(*match.LoadedAt) < s.cfg.StaleLoadedAge {
				continue
			}
			server, err := s.store.GetServer(ctx, *match.ServerRef)
			if err != nil {
				continue
			}
			password, err := s.sealer.Open(server.RCONPassword)
			if err != nil {
				continue
			}
			probeCtx, cancel := context.WithTimeout(ctx, s.cfg.RCONTimeout)
			_, err = s.rcon.SendCommand(probeCtx, server.Addr(), password, "status")
			cancel()
			if err == nil {
				continue
			}
			s.logger.Printf("Server %s unreachable for loaded match %s, demoting", server.ID, match.Slug)
		} else {
			// A bind with no loadedAt means the push died with a
			// previous process. Age-gate on readyAt so an in-flight
			// push from a concurrent start is left alone.
			if match.ReadyAt == nil || now.Sub(*match.ReadyAt) < s.cfg.StaleLoadedAge {
				continue
			}
			s.logger.Printf("Match %s bound but never pushed, demoting", match.Slug)
		}
		status := models.MatchReady
		var noServer *string
		note := utils.StringPtr("Connection to server lost — reallocating")
		if _, err := s.store.UpdateMatch(ctx, match.Slug, store.MatchPatch{
			ExpectedVersion: match.Version,
			Status:          &status,
			ServerRef:       &noServer,
			Notes:           &note,
		}); err != nil {
			s.logger.Printf("Demote %s: %v", match.Slug, err)
			continue
		}
		s.hub.PublishMatchUpdate(broadcast.MatchUpdate{
			Slug:             match.Slug,
			Status:           string(models.MatchReady),
			ConnectionStatus: "lost",
		})
	}
	return nil
}
