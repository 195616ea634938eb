package broadcast

import (
	"encoding/json"
	"io"
	"log"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(log.New(io.Discard, "", 0))
}

func TestDeliverOverflowDropsOldestAndCoalesces(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, send: make(chan []byte, 2)}

	hub.deliver(client, []byte("one"))
	hub.deliver(client, []byte("two"))

	// Buffer full: "one" is dropped, the stale sentinel takes its place.
	hub.deliver(client, []byte("three"))
	if !client.stale {
		t.Fatal("client should be marked stale after overflow")
	}

	// Further overflow coalesces: no second sentinel, messages dropped.
	hub.deliver(client, []byte("four"))

	first := <-client.send
	if string(first) != "two" {
		t.Fatalf("oldest message should have been dropped, head is %q", first)
	}
	second := <-client.send
	var msg Message
	if err := json.Unmarshal(second, &msg); err != nil {
		t.Fatalf("sentinel is not JSON: %v", err)
	}
	data, _ := msg.Data.(map[string]interface{})
	if data["action"] != "stale" {
		t.Fatalf("expected stale sentinel, got %s", second)
	}

	select {
	case extra := <-client.send:
		t.Fatalf("unexpected extra message %q", extra)
	default:
	}
}

func TestDeliverClearsStaleOnRecovery(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, send: make(chan []byte, 1)}

	hub.deliver(client, []byte("one"))
	hub.deliver(client, []byte("two")) // overflow: drop + sentinel
	if !client.stale {
		t.Fatal("expected stale after overflow")
	}

	<-client.send // subscriber drains the sentinel
	hub.deliver(client, []byte("three"))
	if client.stale {
		t.Fatal("successful delivery should clear the stale flag")
	}
	if got := <-client.send; string(got) != "three" {
		t.Fatalf("expected three, got %q", got)
	}
}

func TestPublishPayloadShapes(t *testing.T) {
	hub := newTestHub()

	score := 7
	hub.PublishMatchUpdate(MatchUpdate{Slug: "a_vs_b", Status: "live", Team1Score: &score})
	raw := <-hub.broadcast

	var msg struct {
		Event string `json:"event"`
		Data  struct {
			Slug       string `json:"slug"`
			Status     string `json:"status"`
			Team1Score *int   `json:"team1Score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Event != TopicMatchUpdate || msg.Data.Slug != "a_vs_b" || msg.Data.Status != "live" {
		t.Fatalf("frame %s", raw)
	}
	if msg.Data.Team1Score == nil || *msg.Data.Team1Score != 7 {
		t.Fatalf("score missing in %s", raw)
	}

	hub.PublishBracketUpdate(BracketUpdate{Action: ActionMatchReady, MatchSlug: "wb-r2-m1"})
	raw = <-hub.broadcast
	var bracket struct {
		Event string        `json:"event"`
		Data  BracketUpdate `json:"data"`
	}
	if err := json.Unmarshal(raw, &bracket); err != nil {
		t.Fatal(err)
	}
	if bracket.Event != TopicBracketUpdate || bracket.Data.Action != ActionMatchReady || bracket.Data.MatchSlug != "wb-r2-m1" {
		t.Fatalf("frame %s", raw)
	}
}
