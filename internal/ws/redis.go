package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/oriumfun/backend/internal/arena"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client

func SetRedisClient(r *redis.Client) {
	rdbClient = r
}

// StartArenaEventSubscriber subscribes to the arena events channel and routes
// incoming match events into this instance's broadcast groups. Sessions
// publish through Redis so clients connected to any server instance see the
// same countdown, state and terminal events.
func StartArenaEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; arena event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, arena.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] arena_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			typeStr, _ := payload["type"].(string)
			matchIDf, ok := payload["match_id"].(float64)
			if !ok {
				log.Printf("[WS] event without match_id: type=%s", typeStr)
				continue
			}
			matchID := int64(matchIDf)

			ArenaHub.BroadcastToMatch(matchID, payload)

			// Terminal event: the broadcast group has no further purpose.
			if typeStr == "matchEnd" {
				log.Printf("[WS] match %d ended, tearing down broadcast group", matchID)
				ArenaHub.CloseMatch(matchID)
			}
		}
	}()
}
