package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"matchzy-auto-tournament/internal/broadcast"
	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/matchstate"
	"matchzy-auto-tournament/internal/middleware"
	"matchzy-auto-tournament/internal/store/storetest"

	"github.com/gin-gonic/gin"
)

func newEventTestRouter(t *testing.T) (*gin.Engine, *storetest.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := log.New(io.Discard, "", 0)
	st := storetest.New()
	hub := broadcast.NewHub(logger)
	machine := matchstate.NewMachine(st, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eventRouter := ingest.NewRouter(ctx, machine, nil, nil, logger)
	go eventRouter.Run()

	deps := &Deps{
		Store:  st,
		Events: eventRouter,
		Config: &config.Config{
			Auth: config.AuthConfig{APIToken: "operator-token", ServerToken: "server-token"},
		},
		Logger: logger,
	}

	router := gin.New()
	RegisterEventRoutes(router.Group("/api"), deps)
	return router, st
}

func TestIngestRejectsBadServerToken(t *testing.T) {
	router, st := newEventTestRouter(t)

	for _, token := range []string{"", "wrong-token"} {
		req := httptest.NewRequest(http.MethodPost, "/api/events",
			strings.NewReader(`{"matchid":"a_vs_b","event":"round_end"}`))
		if token != "" {
			req.Header.Set(middleware.ServerTokenHeader, token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: status %d, want 401", token, rec.Code)
		}
	}

	events, _ := st.ListEvents(context.Background(), "a_vs_b", 0, 0)
	if len(events) != 0 {
		t.Fatal("unauthenticated events must not be stored")
	}
}

// TestIngestUnknownMatchStoredAsOrphan covers scenario six: a valid
// token with a ghost matchid still returns success and lands in the log.
func TestIngestUnknownMatchStoredAsOrphan(t *testing.T) {
	router, st := newEventTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/events",
		strings.NewReader(`{"matchid":"ghost","event":"series_start"}`))
	req.Header.Set(middleware.ServerTokenHeader, "server-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("body %s", rec.Body.String())
	}

	events, err := st.ListEvents(context.Background(), "ghost", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventKind != "series_start" {
		t.Fatalf("expected one orphan event, got %+v", events)
	}
}

func TestIngestUnknownKindStored(t *testing.T) {
	router, st := newEventTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/events",
		strings.NewReader(`{"matchid":"a_vs_b","event":"halftime_show"}`))
	req.Header.Set(middleware.ServerTokenHeader, "server-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unknown kinds must succeed, got %d", rec.Code)
	}
	events, _ := st.ListEvents(context.Background(), "a_vs_b", 0, 0)
	if len(events) != 1 {
		t.Fatalf("expected the unknown kind in the log, got %d events", len(events))
	}
}

func TestEventLogIsAppendOnlyAndOrdered(t *testing.T) {
	router, st := newEventTestRouter(t)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/events",
			strings.NewReader(`{"matchid":"a_vs_b","event":"round_end","round_number":`+string(rune('0'+i))+`}`))
		req.Header.Set(middleware.ServerTokenHeader, "server-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("event %d: status %d", i, rec.Code)
		}
	}

	events, _ := st.ListEvents(context.Background(), "a_vs_b", 0, 0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	var last int64
	for _, ev := range events {
		if ev.ID <= last {
			t.Fatalf("event ids must increase: %d after %d", ev.ID, last)
		}
		last = ev.ID
	}
}

func TestListEventsRequiresOperatorToken(t *testing.T) {
	router, _ := newEventTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/events/a_vs_b", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events/a_vs_b", nil)
	req.Header.Set("Authorization", "Bearer operator-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}
}
