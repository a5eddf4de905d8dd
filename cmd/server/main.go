package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/oriumfun/backend/internal/api"
	"github.com/oriumfun/backend/internal/arena"
	"github.com/oriumfun/backend/internal/config"
	"github.com/oriumfun/backend/internal/database"
	"github.com/oriumfun/backend/internal/migrations"
	"github.com/oriumfun/backend/internal/redis"
	"github.com/oriumfun/backend/internal/store"
	"github.com/oriumfun/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Initialize the arena manager: queue, sessions and bots all hang off it.
	// Session events go out through Redis pub/sub so every instance's
	// websocket hub delivers them.
	st := store.NewPostgresStore(db)
	arena.InitializeManager(st, arena.NewPubSubBroadcaster(rdb), cfg)

	// Wire Redis into the WS layer and start the event subscriber
	ws.SetRedisClient(rdb)
	ws.StartArenaEventSubscriber(context.Background())

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, st, rdb, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Orium arena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
