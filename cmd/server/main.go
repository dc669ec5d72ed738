package main

import (
	"log"

	"anoa.com/civicquest/internal/bootstrap"
	"anoa.com/civicquest/internal/config"
	"anoa.com/civicquest/internal/server"
	"anoa.com/civicquest/pkg/database"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}
	if err := bootstrap.SeedAchievements(db); err != nil {
		log.Fatalf("failed to seed achievements: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set; leaderboard cache and distributed rate limits disabled")
	}

	srv := server.NewServer(cfg, db, redisClient)
	defer srv.Shutdown()

	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
