package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

// orderRecorder records the interpretation order per slug.
type orderRecorder struct {
	mu      sync.Mutex
	bySlug  map[string][]int
	handled chan struct{}
}

func (r *orderRecorder) HandleEvent(_ context.Context, ev *CanonicalEvent) error {
	r.mu.Lock()
	r.bySlug[ev.MatchSlug] = append(r.bySlug[ev.MatchSlug], ev.RoundNumber)
	r.mu.Unlock()
	r.handled <- struct{}{}
	return nil
}

func TestRouterPreservesPerSlugOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &orderRecorder{bySlug: make(map[string][]int), handled: make(chan struct{}, 64)}
	router := NewRouter(ctx, recorder, nil, nil, log.New(io.Discard, "", 0))
	go router.Run()

	const perSlug = 10
	slugs := []string{"a_vs_b", "c_vs_d"}
	for i := 0; i < perSlug; i++ {
		for _, slug := range slugs {
			payload, _ := json.Marshal(map[string]interface{}{
				"matchid": slug, "event": "round_end", "round_number": i,
			})
			ev, err := Normalize(payload)
			if err != nil {
				t.Fatal(err)
			}
			if !router.Enqueue(ev) {
				t.Fatalf("enqueue %s #%d rejected", slug, i)
			}
		}
	}

	deadline := time.After(5 * time.Second)
	for n := 0; n < perSlug*len(slugs); n++ {
		select {
		case <-recorder.handled:
		case <-deadline:
			t.Fatalf("timed out after %d events", n)
		}
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for _, slug := range slugs {
		order := recorder.bySlug[slug]
		if len(order) != perSlug {
			t.Fatalf("%s: interpreted %d events, want %d", slug, len(order), perSlug)
		}
		for i, round := range order {
			if round != i {
				t.Fatalf("%s: interpretation order %v violates append order", slug, order)
			}
		}
	}
}

func TestRouterSnapshotAccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := &orderRecorder{bySlug: make(map[string][]int), handled: make(chan struct{}, 8)}
	router := NewRouter(ctx, recorder, nil, nil, log.New(io.Discard, "", 0))
	go router.Run()

	payload := `{"matchid":"m","event":"round_end","round_number":5,"team1_score":3,"team2_score":2}`
	ev, err := Normalize([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	router.Enqueue(ev)
	<-recorder.handled

	// The tracker applies before the interpreter runs, so the snapshot
	// is current once the event is handled.
	stats, ok := router.LiveStats("m")
	if !ok {
		t.Fatal("expected an active tracker for m")
	}
	if stats.RoundNumber != 5 || stats.Team1Score != 3 {
		t.Fatalf("snapshot %+v", stats)
	}

	if _, ok := router.LiveStats("unknown"); ok {
		t.Fatal("unknown slug should have no tracker")
	}
}
