package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	CohortSize       int
	QueueFillSeconds int

	// Match session
	MatchDurationSeconds int
	CountdownSeconds     int
	TapPressure          float64
	MaxPriceSwing        float64
	BotTapMinMillis      int
	BotTapMaxMillis      int

	// Rate limiting
	QueueJoinRateLimitSeconds int

	// Security
	JWTSecret     string
	TokenTTLHours int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/orium?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Matchmaking
		CohortSize:       getEnvInt("COHORT_SIZE", 10),
		QueueFillSeconds: getEnvInt("QUEUE_FILL_SECONDS", 10),

		// Match session
		MatchDurationSeconds: getEnvInt("MATCH_DURATION_SECONDS", 60),
		CountdownSeconds:     getEnvInt("COUNTDOWN_SECONDS", 3),
		TapPressure:          getEnvFloat("TAP_PRESSURE", 0.01),
		MaxPriceSwing:        getEnvFloat("MAX_PRICE_SWING", 15.00),
		BotTapMinMillis:      getEnvInt("BOT_TAP_MIN_MILLIS", 200),
		BotTapMaxMillis:      getEnvInt("BOT_TAP_MAX_MILLIS", 500),

		// Rate limiting
		QueueJoinRateLimitSeconds: getEnvInt("QUEUE_JOIN_RATE_LIMIT_SECONDS", 2),

		// Security
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
