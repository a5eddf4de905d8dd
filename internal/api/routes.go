package api

import (
	"github.com/gin-gonic/gin"
	"github.com/oriumfun/backend/internal/api/handlers"
	"github.com/oriumfun/backend/internal/config"
	"github.com/oriumfun/backend/internal/middleware"
	"github.com/oriumfun/backend/internal/store"
	"github.com/oriumfun/backend/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, st store.Store, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.POST("/auth/login", handlers.Login(st, cfg))

		// WebSocket authenticates via query token during handshake
		v1.GET("/arena/ws", ws.HandleWebSocket(cfg))

		authed := v1.Group("")
		authed.Use(middleware.Auth(cfg))
		{
			queue := authed.Group("/queue")
			{
				queue.POST("/join", handlers.JoinQueue(rdb, cfg))
				queue.POST("/leave", handlers.LeaveQueue())
				queue.GET("/status", handlers.QueueStatus())
			}

			authed.GET("/wallet", handlers.GetWallet(st))
			authed.GET("/match/:id", handlers.GetMatch(st))
		}
	}
}
