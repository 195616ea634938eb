// internal/ingest/router.go
// Per-slug serial interpretation. Events for one match slug are drained
// by a single lazily created goroutine, so interpretation order equals
// append order within a slug while distinct slugs run in parallel.

package ingest

import (
	"context"
	"log"
	"time"

	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/cache"
	"matchzy-auto-tournament/internal/models"
)

const (
	// queueDepth bounds each slug's pending events. Enqueue never
	// blocks a handler; overflow is counted and dropped (the event is
	// already durable in the log and replayable).
	queueDepth = 256

	// idleTimeout tears down an interpreter goroutine with no traffic.
	idleTimeout = 5 * time.Minute

	liveStatsTTL = 10 * time.Minute
)

// Interpreter consumes events in order for a slug. The match state
// machine is the production implementation.
type Interpreter interface {
	HandleEvent(ctx context.Context, ev *CanonicalEvent) error
}

type slugQueue struct {
	slug    string
	ch      chan *CanonicalEvent
	tracker *LiveTracker
}

// Router owns the per-slug queues and their interpreter goroutines.
type Router struct {
	interpreter Interpreter
	hub         *broadcast.Hub
	cache       *cache.Cache
	logger      *log.Logger

	ctx context.Context

	ops    chan func()
	queues map[string]*slugQueue
}

// NewRouter creates a router; Run must be started before Enqueue is used.
func NewRouter(ctx context.Context, interpreter Interpreter, hub *broadcast.Hub, c *cache.Cache, logger *log.Logger) *Router {
	return &Router{
		interpreter: interpreter,
		hub:         hub,
		cache:       c,
		logger:      logger,
		ctx:         ctx,
		ops:         make(chan func()),
		queues:      make(map[string]*slugQueue),
	}
}

// Run serializes queue creation and teardown, the same select-loop
// ownership shape the broadcast hub uses for its client set.
func (r *Router) Run() {
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.ctx.Done():
			return
		}
	}
}

// Enqueue hands a normalized event to its slug's serial queue, creating
// the queue on first use. Returns false when the queue is saturated; the
// caller's durable append already happened, so a drop only delays
// interpretation until a replay.
func (r *Router) Enqueue(ev *CanonicalEvent) bool {
	result := make(chan bool, 1)
	select {
	case r.ops <- func() {
		q := r.queues[ev.MatchSlug]
		if q == nil {
			q = &slugQueue{
				slug:    ev.MatchSlug,
				ch:      make(chan *CanonicalEvent, queueDepth),
				tracker: NewLiveTracker(ev.MatchSlug),
			}
			r.queues[ev.MatchSlug] = q
			go r.drain(q)
		}
		select {
		case q.ch <- ev:
			result <- true
		default:
			result <- false
		}
	}:
	case <-r.ctx.Done():
		return false
	}

	ok := <-result
	if !ok {
		r.logger.Printf("Event queue for %s saturated, dropping %s", ev.MatchSlug, ev.Kind)
		if r.cache != nil {
			r.cache.Increment(r.ctx, "metric:event_queue_overflow", time.Hour)
		}
	}
	return ok
}

// drain is the per-slug interpreter goroutine.
func (r *Router) drain(q *slugQueue) {
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case ev := <-q.ch:
			q.tracker.Apply(ev)
			q.tracker.touch(ev.Timestamp)

			if ev.Interpreted() {
				if err := r.interpreter.HandleEvent(r.ctx, ev); err != nil {
					// Interpretation failures never bounce the webhook;
					// the event is durable and operators see the log.
					r.logger.Printf("Interpret %s for %s: %v", ev.Kind, ev.MatchSlug, err)
				}
			} else {
				r.logger.Printf("Stored unrecognized event kind %q for %s", ev.Kind, ev.MatchSlug)
			}

			r.publishLive(q)

			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(idleTimeout)

		case <-idle.C:
			// Tear down, but only if nothing raced in.
			done := make(chan struct{})
			select {
			case r.ops <- func() {
				if len(q.ch) == 0 {
					delete(r.queues, q.slug)
				}
				close(done)
			}:
				<-done
				if len(q.ch) == 0 {
					return
				}
				idle.Reset(idleTimeout)
			case <-r.ctx.Done():
				r.drainRemaining(q)
				return
			}

		case <-r.ctx.Done():
			r.drainRemaining(q)
			return
		}
	}
}

// drainRemaining interprets whatever is still buffered at shutdown,
// under its own deadline since the router context is already done.
func (r *Router) drainRemaining(q *slugQueue) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		select {
		case ev := <-q.ch:
			q.tracker.Apply(ev)
			if ev.Interpreted() {
				if err := r.interpreter.HandleEvent(ctx, ev); err != nil {
					r.logger.Printf("Drain %s for %s: %v", ev.Kind, ev.MatchSlug, err)
				}
			}
		default:
			return
		}
	}
}

// publishLive pushes the refreshed snapshot to the cache and the hub.
func (r *Router) publishLive(q *slugQueue) {
	snapshot := q.tracker.Snapshot()

	if r.cache != nil {
		ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
		defer cancel()
		if err := r.cache.Set(ctx, cache.LiveStatsKey(q.slug), snapshot, liveStatsTTL); err != nil {
			r.logger.Printf("Cache live stats for %s: %v", q.slug, err)
		}
		if err := r.cache.Set(ctx, cache.ConnectedPlayersKey(q.slug), q.tracker.ConnectedPlayers(), liveStatsTTL); err != nil {
			r.logger.Printf("Cache connections for %s: %v", q.slug, err)
		}
	}

	if r.hub != nil {
		r.hub.PublishMatchUpdate(broadcast.MatchUpdate{
			Slug:       q.slug,
			Team1Score: &snapshot.Team1Score,
			Team2Score: &snapshot.Team2Score,
			LiveStats:  snapshot,
		})
	}
}

// LiveStats returns the in-memory snapshot for a slug when its
// interpreter is active.
func (r *Router) LiveStats(slug string) (models.LiveStats, bool) {
	q := r.lookup(slug)
	if q == nil {
		return models.LiveStats{}, false
	}
	return q.tracker.Snapshot(), true
}

// ConnectedPlayers returns the in-memory roster for a slug when its
// interpreter is active.
func (r *Router) ConnectedPlayers(slug string) ([]models.ConnectedPlayer, bool) {
	q := r.lookup(slug)
	if q == nil {
		return nil, false
	}
	return q.tracker.ConnectedPlayers(), true
}

func (r *Router) lookup(slug string) *slugQueue {
	result := make(chan *slugQueue, 1)
	select {
	case r.ops <- func() { result <- r.queues[slug] }:
		return <-result
	case <-r.ctx.Done():
		return nil
	}
}

// Rebuild replays persisted events through a fresh tracker, for reads
// after the interpreter goroutine idled out.
func Rebuild(slug string, events []*models.MatchEvent) *LiveTracker {
	tracker := NewLiveTracker(slug)
	for _, record := range events {
		ev, err := Normalize(record.Payload)
		if err != nil {
			continue
		}
		ev.Timestamp = record.ReceivedAt
		tracker.Apply(ev)
		tracker.touch(record.ReceivedAt)
	}
	return tracker
}
