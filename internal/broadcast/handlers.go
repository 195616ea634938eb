// internal/broadcast/handlers.go
// WebSocket connection handlers

package broadcast

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The channel carries no secrets and the operator surface is
		// bearer-authenticated; same-origin enforcement is left to the
		// deployment's reverse proxy.
		return true
	},
}

// HandleConnection upgrades an HTTP request into a push-channel subscriber
func HandleConnection(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, subscriberBuffer),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
