// internal/broadcast/hub.go
// Broadcast hub fans state-change notifications out to connected
// operator and team-view subscribers. This channel is lossy by design:
// correctness lives in the store, so a slow subscriber gets a coalesced
// "stale" sentinel and refetches instead of stalling the publishers.

package broadcast

import (
	"encoding/json"
	"log"
)

// The three topic events carried over the push channel. The names and
// payload field names are a wire contract with JS clients.
const (
	TopicMatchUpdate      = "match:update"
	TopicBracketUpdate    = "bracket:update"
	TopicTournamentUpdate = "tournament:update"
)

// Bracket-update actions.
const (
	ActionBracketRegenerated  = "bracket_regenerated"
	ActionTournamentReset     = "tournament_reset"
	ActionTournamentStarted   = "tournament_started"
	ActionTournamentCompleted = "tournament_completed"
	ActionMatchReady          = "match_ready"
	ActionMatchLoaded         = "match_loaded"
	ActionMatchStatus         = "match_status"
	ActionServerAssigned      = "server_assigned"
	ActionMatchRestarted      = "match_restarted"
)

// Message is the framed envelope every subscriber receives.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// MatchUpdate is the merge-patch payload for match:update. All fields
// are optional; subscribers merge what is present.
type MatchUpdate struct {
	Slug             string      `json:"slug"`
	Status           string      `json:"status,omitempty"`
	ServerID         string      `json:"serverId,omitempty"`
	Team1Score       *int        `json:"team1Score,omitempty"`
	Team2Score       *int        `json:"team2Score,omitempty"`
	ConnectionStatus string      `json:"connectionStatus,omitempty"`
	LiveStats        interface{} `json:"liveStats,omitempty"`
	Action           string      `json:"action,omitempty"`
}

// BracketUpdate is the payload for bracket:update.
type BracketUpdate struct {
	Action    string `json:"action"`
	MatchSlug string `json:"matchSlug,omitempty"`
	Status    string `json:"status,omitempty"`
	ServerID  string `json:"serverId,omitempty"`
}

// TournamentUpdate is the payload for tournament:update.
type TournamentUpdate struct {
	Action string `json:"action"`
}

// staleSentinel tells a subscriber its buffer overflowed and it should
// refetch current state instead of trusting the stream.
var staleSentinel, _ = json.Marshal(Message{
	Event: TopicMatchUpdate,
	Data:  map[string]string{"action": "stale", "reason": "buffer_overflow"},
})

// Hub maintains active subscriber connections and broadcasts messages
type Hub struct {
	clients map[*Client]bool

	// Register client
	register chan *Client

	// Unregister client
	unregister chan *Client

	// Broadcast messages to all subscribers
	broadcast chan []byte

	logger *log.Logger
}

// NewHub creates a new broadcast hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Printf("Subscriber registered (%d connected)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.logger.Printf("Subscriber unregistered (%d connected)", len(h.clients))

		case data := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, data)
			}
		}
	}
}

// deliver enqueues data onto a subscriber's bounded buffer. On overflow
// the oldest message is dropped and a single coalesced stale sentinel is
// delivered in its place; further messages are dropped until the
// subscriber drains.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
		client.stale = false
		return
	default:
	}

	if client.stale {
		// Sentinel already queued; coalesce further drops.
		return
	}

	// Buffer full: drop the oldest queued message and queue the
	// sentinel in its place.
	select {
	case <-client.send:
	default:
	}
	select {
	case client.send <- staleSentinel:
		client.stale = true
	default:
	}
}

// publish frames and enqueues a topic event for all subscribers.
func (h *Hub) publish(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.logger.Printf("Failed to marshal %s message: %v", event, err)
		return
	}
	h.broadcast <- payload
}

// PublishMatchUpdate emits a match:update merge-patch.
func (h *Hub) PublishMatchUpdate(update MatchUpdate) {
	h.publish(TopicMatchUpdate, update)
}

// PublishBracketUpdate emits a bracket:update action.
func (h *Hub) PublishBracketUpdate(update BracketUpdate) {
	h.publish(TopicBracketUpdate, update)
}

// PublishTournamentUpdate emits a tournament:update action.
func (h *Hub) PublishTournamentUpdate(action string) {
	h.publish(TopicTournamentUpdate, TournamentUpdate{Action: action})
}
