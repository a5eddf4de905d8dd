package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client bound to one authenticated
// user for its whole lifetime.
type Client struct {
	conn     *websocket.Conn
	userID   int64
	username string
	matchID  int64 // current subscription, 0 if none
	send     chan []byte
}

// Hub maintains the set of active clients and per-match broadcast groups.
type Hub struct {
	clients    map[int64]*Client           // userID -> Client
	matchRooms map[int64]map[int64]*Client // matchID -> userID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]*Client),
		matchRooms: make(map[int64]map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// BroadcastToMatch sends a message to every connection subscribed to a match,
// and only to that match.
func (h *Hub) BroadcastToMatch(matchID int64, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.matchRooms[matchID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				// Client's buffer is full
				log.Printf("[WS] Send buffer full for user %d in match %d, dropping message", client.userID, matchID)
			}
		}
	}
}

// Subscribe adds an authorized client to a match's broadcast group. A client
// switching matches leaves its previous room first.
func (h *Hub) Subscribe(client *Client, matchID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.matchID != 0 {
		if room, exists := h.matchRooms[client.matchID]; exists {
			delete(room, client.userID)
			if len(room) == 0 {
				delete(h.matchRooms, client.matchID)
			}
		}
	}

	client.matchID = matchID
	if _, exists := h.matchRooms[matchID]; !exists {
		h.matchRooms[matchID] = make(map[int64]*Client)
	}
	h.matchRooms[matchID][client.userID] = client
}

// CloseMatch tears down a match's broadcast group after the terminal event.
// Connections stay open; only the subscription goes away.
func (h *Hub) CloseMatch(matchID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.matchRooms[matchID]; exists {
		for _, client := range room {
			if client.matchID == matchID {
				client.matchID = 0
			}
		}
		delete(h.matchRooms, matchID)
	}
}

// WSMessage is the envelope for client-to-server messages.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed, connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for user %d: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for user %d: %v", c.userID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}
