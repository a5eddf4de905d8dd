package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oriumfun/backend/internal/arena"
	"github.com/oriumfun/backend/internal/config"
	"github.com/oriumfun/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// JoinQueue enqueues the authenticated player for matchmaking. Joining while
// already queued or in a match is rejected, not merged.
func JoinQueue(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		username := middleware.Username(c)

		// Rate limit rapid join attempts per user
		if rdb != nil && cfg.QueueJoinRateLimitSeconds > 0 {
			key := fmt.Sprintf("queue_join_rate:%d", userID)
			ok, err := rdb.SetNX(context.Background(), key, "1", time.Duration(cfg.QueueJoinRateLimitSeconds)*time.Second).Result()
			if err == nil && !ok {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many join attempts"})
				return
			}
		}

		if err := arena.DefaultManager.JoinQueue(c.Request.Context(), userID, username); err != nil {
			if errors.Is(err, arena.ErrAlreadyQueued) {
				c.JSON(http.StatusConflict, gin.H{"error": "already queued or in a match"})
				return
			}
			log.Printf("[QUEUE] Join failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join queue"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "queued",
			"message": "Finding opponents...",
		})
	}
}

// LeaveQueue removes the authenticated player from the queue.
func LeaveQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		if err := arena.DefaultManager.LeaveQueue(userID); err != nil {
			if errors.Is(err, arena.ErrNotQueued) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not in queue"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave queue"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "left"})
	}
}

// QueueStatus reports the player's matchmaking state. A "found" result is
// delivered exactly once; polls after it return "none".
func QueueStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		state, matchID := arena.DefaultManager.PollStatus(userID)
		switch state {
		case arena.StatusFound:
			c.JSON(http.StatusOK, gin.H{
				"status":   "found",
				"match_id": matchID,
			})
		case arena.StatusWaiting:
			c.JSON(http.StatusOK, gin.H{
				"status":  "waiting",
				"message": "Still finding opponents...",
			})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "none"})
		}
	}
}
