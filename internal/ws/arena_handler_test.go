package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialPair opens a real websocket connection against a throwaway server and
// returns the server-side conn, which is what a Client holds.
func dialPair(t *testing.T) *websocket.Conn {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	select {
	case conn := <-accepted:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("server never accepted the connection")
		return nil
	}
}

func waitForClient(t *testing.T, h *Hub, userID int64, want *Client) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		h.mu.RLock()
		cur := h.clients[userID]
		h.mu.RUnlock()
		if cur == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("client %d never became current", userID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// A user reconnecting replaces their old connection while the old readPump
// may still be mid-dispatch (a join lookup spans store round-trips). The old
// client's send channel must therefore survive the replacement so late sends
// are buffered or dropped, never a send on a closed channel.
func TestReconnectKeepsOldSendChannelOpen(t *testing.T) {
	h := NewHub()
	go runArenaHub(h)

	old := &Client{conn: dialPair(t), userID: 7, send: make(chan []byte, 8)}
	h.register <- old
	waitForClient(t, h, 7, old)
	h.Subscribe(old, 42)

	replacement := &Client{conn: dialPair(t), userID: 7, send: make(chan []byte, 8)}
	h.register <- replacement
	waitForClient(t, h, 7, replacement)

	select {
	case _, ok := <-old.send:
		if !ok {
			t.Fatal("replaced client's send channel was closed")
		}
	default:
	}

	// A late dispatch on the replaced client must not panic
	old.sendError("stale connection")
	select {
	case _, ok := <-old.send:
		if !ok {
			t.Fatal("send channel closed under a late dispatch")
		}
	case <-time.After(time.Second):
		t.Fatal("late sendError did not reach the buffer")
	}

	// The old room membership is gone; broadcasts reach only the replacement
	h.Subscribe(replacement, 42)
	h.BroadcastToMatch(42, map[string]interface{}{"type": "timeUpdate"})
	select {
	case <-old.send:
		t.Error("replaced client still receives broadcasts")
	default:
	}
	select {
	case <-replacement.send:
	case <-time.After(time.Second):
		t.Error("replacement missed the broadcast")
	}
}

// The old readPump's deferred unregister fires after the replacement took
// over; the identity check must leave the replacement untouched.
func TestStaleUnregisterDoesNotEvictReplacement(t *testing.T) {
	h := NewHub()
	go runArenaHub(h)

	old := &Client{conn: dialPair(t), userID: 7, send: make(chan []byte, 8)}
	h.register <- old
	waitForClient(t, h, 7, old)

	replacement := &Client{conn: dialPair(t), userID: 7, send: make(chan []byte, 8)}
	h.register <- replacement
	waitForClient(t, h, 7, replacement)

	h.unregister <- old

	// Give the run loop a moment, then confirm the replacement survived
	time.Sleep(50 * time.Millisecond)
	h.mu.RLock()
	cur := h.clients[7]
	h.mu.RUnlock()
	if cur != replacement {
		t.Fatal("stale unregister evicted the replacement connection")
	}
	select {
	case _, ok := <-replacement.send:
		if !ok {
			t.Fatal("stale unregister closed the replacement's send channel")
		}
	default:
	}
}
