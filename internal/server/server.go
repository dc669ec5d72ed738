package server

import (
	"context"
	"log"
	"strings"
	"time"

	"anoa.com/civicquest/internal/config"
	"anoa.com/civicquest/internal/handler"
	"anoa.com/civicquest/internal/middleware"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/internal/service"
	"anoa.com/civicquest/pkg/retry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	xp          service.XPOrchestrator
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	progressionRepo := repository.NewProgressionRepository(db)
	weeklyRepo := repository.NewWeeklyRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	contentRepo := repository.NewContentRepository(db)

	badgeSvc := service.NewBadgeService(badgeRepo, contentRepo)
	achievementSvc := service.NewAchievementService(achievementRepo, badgeRepo, progressionRepo, userRepo)
	leaderboardSvc := service.NewLeaderboardService(progressionRepo, redisClient, cfg.LeaderboardTTL)
	rankSvc := service.NewRankService(progressionRepo, achievementSvc, leaderboardSvc)
	xpSvc := service.NewXPService(progressionRepo, contentRepo, rankSvc, badgeSvc, achievementSvc)

	resetSvc := service.NewWeeklyResetService(progressionRepo, weeklyRepo, userRepo)
	streakSvc := service.NewStreakService(progressionRepo, weeklyRepo, userRepo)
	questSvc := service.NewQuestAccessService(resetSvc, streakSvc, xpSvc, progressionRepo, weeklyRepo, userRepo, retry.DefaultBackoff)

	var rateLimitStore service.RateLimitStore
	if redisClient != nil {
		rateLimitStore = service.NewRedisRateLimitStore(redisClient)
	} else {
		rateLimitStore = service.NewMemoryRateLimitStore()
	}

	eventHandler := handler.NewEventHandler(xpSvc, rateLimitStore, cfg.EventCooldown)
	questHandler := handler.NewQuestHandler(questSvc, resetSvc, weeklyRepo)
	progressionHandler := handler.NewProgressionHandler(rankSvc, badgeSvc, achievementSvc, leaderboardSvc, progressionRepo, userRepo)
	contentHandler := handler.NewContentHandler(contentRepo, badgeRepo, badgeSvc)

	// Hourly recalculation catches XP-less drift: deactivated accounts
	// leaving the ladder, catalog edits moving milestone targets.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := rankSvc.RecalculateAll(context.Background()); err != nil {
				log.Printf("scheduled rank recalculation: %v", err)
			}
		}
	}()

	router := gin.New()

	setupCORS(router, cfg)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	api := router.Group("/api")

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users/:userId/xp", eventHandler.AwardXP)
			adminGroup.POST("/users/:userId/duty-passes", progressionHandler.GrantDutyPasses)
			adminGroup.DELETE("/quizzes/:quizId", contentHandler.DeleteQuiz)
			adminGroup.DELETE("/badges/:badgeId", contentHandler.DeleteBadge)
		}

		// Inbound progression events
		protected.POST("/events/lesson-completed", eventHandler.LessonCompleted)
		protected.POST("/events/quiz-completed", eventHandler.QuizCompleted)

		// Weekly quest cycle
		protected.GET("/quests/week", questHandler.Availability)
		protected.GET("/quests/:day/access", questHandler.CanAccess)
		protected.POST("/quests/complete", questHandler.CompleteQuestDay)
		protected.POST("/quests/duty-pass", questHandler.SpendDutyPass)

		// Progression read models
		protected.GET("/progression/status", progressionHandler.Status)
		protected.GET("/progression/rank-history", progressionHandler.RankHistory)
		protected.GET("/progression/badges", progressionHandler.Badges)
		protected.GET("/progression/achievements", progressionHandler.Achievements)
		protected.PUT("/progression/timezone", progressionHandler.UpdateTimezone)

		protected.GET("/leaderboard", progressionHandler.Leaderboard)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		xp:          xpSvc,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Shutdown drains the background verification passes.
func (s *Server) Shutdown() {
	s.xp.Flush()
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
