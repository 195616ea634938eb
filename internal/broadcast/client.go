// internal/broadcast/client.go
// Subscriber connection handler

package broadcast

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Per-subscriber buffered messages before the stale sentinel kicks in
	subscriberBuffer = 64
)

// Client represents one connected subscriber
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// stale is owned by the hub goroutine: true while a stale sentinel
	// is queued and further messages are being coalesced away.
	stale bool
}

// ClientMessage represents a message from a subscriber
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Subscribers receive every topic; the only inbound message
		// with meaning is an application-level ping.
		switch msg.Type {
		case "ping":
			c.handlePing()
		default:
			// Ignore unknown client messages for forward compatibility.
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handlePing responds to application-level ping messages
func (c *Client) handlePing() {
	response := Message{
		Event: "pong",
		Data: map[string]int64{
			"timestamp": time.Now().Unix(),
		},
	}

	if responseData, err := json.Marshal(response); err == nil {
		select {
		case c.send <- responseData:
		default:
		}
	}
}

// close cleanly closes the client connection
func (c *Client) close() {
	close(c.send)
}
