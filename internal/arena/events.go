package arena

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis pub/sub channel carrying match events. Every
// server instance subscribes and forwards events to its local websocket rooms.
const EventsChannel = "arena_events"

// Broadcaster delivers an event to every subscriber of a match's group. The
// payload always carries "type" and "match_id".
type Broadcaster interface {
	Broadcast(matchID int64, payload map[string]interface{})
}

// PubSubBroadcaster publishes events to the Redis events channel. The ws
// layer's subscriber routes them into local broadcast groups, so events reach
// clients connected to any instance.
type PubSubBroadcaster struct {
	rdb *redis.Client
}

func NewPubSubBroadcaster(rdb *redis.Client) *PubSubBroadcaster {
	return &PubSubBroadcaster{rdb: rdb}
}

func (b *PubSubBroadcaster) Broadcast(matchID int64, payload map[string]interface{}) {
	payload["match_id"] = matchID
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[ARENA] Failed to marshal event: %v", err)
		return
	}
	if err := b.rdb.Publish(context.Background(), EventsChannel, data).Err(); err != nil {
		log.Printf("[ARENA] Failed to publish event for match %d: %v", matchID, err)
	}
}

// broadcast attaches the event type and hands the payload to the broadcaster.
func (m *Manager) broadcast(matchID int64, eventType string, fields map[string]interface{}) {
	if m.broadcaster == nil {
		return
	}
	payload := map[string]interface{}{"type": eventType}
	for k, v := range fields {
		payload[k] = v
	}
	m.broadcaster.Broadcast(matchID, payload)
}
