package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oriumfun/backend/internal/arena"
	"github.com/oriumfun/backend/internal/config"
	"github.com/oriumfun/backend/internal/middleware"
	"github.com/oriumfun/backend/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Match message payloads
type joinMatchData struct {
	MatchID int64 `json:"match_id"`
}

type tapData struct {
	MatchID int64 `json:"match_id"`
}

// ArenaHub is the single hub for all matches.
var ArenaHub *Hub

func init() {
	ArenaHub = NewHub()
	go runArenaHub(ArenaHub)
}

// HandleWebSocket authenticates and upgrades an arena connection. A missing
// or invalid credential is rejected at connect time, never treated as
// anonymous.
func HandleWebSocket(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, username, err := middleware.ParseToken(token, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			userID:   userID,
			username: username,
			send:     make(chan []byte, 256),
		}

		ArenaHub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// runArenaHub runs the hub's register/unregister loop.
func runArenaHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if oldClient, exists := h.clients[client.userID]; exists {
				log.Printf("[WS] User %d reconnecting, closing old connection", client.userID)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("[WS] Error writing close control to old client %d: %v", oldClient.userID, err)
				}
				oldClient.conn.Close()
				// The old send channel stays open: the old readPump may be
				// mid-dispatch and about to send on it. Its writePump exits on
				// its own once a write against the closed conn fails, and the
				// unregister path's identity check keeps the replacement's
				// entry intact.
				delete(h.clients, oldClient.userID)
				if room, exists := h.matchRooms[oldClient.matchID]; exists {
					delete(room, oldClient.userID)
				}
			}
			h.clients[client.userID] = client
			h.mu.Unlock()

			log.Printf("[WS] User %d connected", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.userID]; ok && cur == client {
				delete(h.clients, client.userID)
				if room, exists := h.matchRooms[client.matchID]; exists {
					delete(room, client.userID)
					if len(room) == 0 {
						delete(h.matchRooms, client.matchID)
					}
				}

				log.Printf("[WS] User %d disconnected", client.userID)

				select {
				case <-client.send:
				default:
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// readPump reads and dispatches arena messages.
func (c *Client) readPump() {
	defer func() {
		ArenaHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for user %d: %v", c.userID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes one client message. Gameplay input carries only the
// match id; identity and faction are derived server-side.
func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "joinMatch":
		var data joinMatchData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid join data")
			return
		}
		c.handleJoinMatch(data.MatchID)

	case "playerTap":
		var data tapData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		// Best effort: unknown matches/players are dropped inside the manager.
		arena.DefaultManager.HandleTap(context.Background(), data.MatchID, c.userID)

	default:
		c.sendError("Unknown message type")
	}
}

// handleJoinMatch subscribes the connection to a match's broadcast group,
// but only after verifying this user actually has a player row for it.
func (c *Client) handleJoinMatch(matchID int64) {
	faction, startPrice, err := arena.DefaultManager.JoinInfo(context.Background(), matchID, c.userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.sendError("You are not a participant in this match")
		} else {
			log.Printf("[WS] Join check failed for user %d match %d: %v", c.userID, matchID, err)
			c.sendError("Unable to join match")
		}
		return
	}

	ArenaHub.Subscribe(c, matchID)
	log.Printf("[WS] User %d joined match %d as %s", c.userID, matchID, faction)

	data, _ := json.Marshal(map[string]interface{}{
		"type":        "matchJoined",
		"faction":     faction,
		"start_price": startPrice,
	})
	select {
	case c.send <- data:
	default:
	}
}
