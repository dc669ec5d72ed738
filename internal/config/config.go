package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	// Postgres settings are read by pkg/database directly
	// (DATABASE_URL or discrete DB_* vars).
	RedisURL string

	// Cooldown applied to inbound progression events per (user, entity).
	EventCooldown time.Duration
	// TTL of the cached leaderboard read model.
	LeaderboardTTL time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL: os.Getenv("REDIS_URL"),
	}

	var err error
	cfg.EventCooldown, err = time.ParseDuration(getEnv("EVENT_COOLDOWN", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_COOLDOWN: %w", err)
	}
	cfg.LeaderboardTTL, err = time.ParseDuration(getEnv("LEADERBOARD_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_TTL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
