package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"anoa.com/civicquest/internal/dto"
	"anoa.com/civicquest/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardCacheKey        = "leaderboard:top"
	defaultLeaderboardCacheTTL = 30 * time.Second
	leaderboardMaxLimit        = 100
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	progressionRepo repository.ProgressionRepository
	redisClient     *redis.Client
	ttl             time.Duration
}

// NewLeaderboardService builds the cached top-N read model. redisClient
// may be nil; the service then recomputes on every call.
func NewLeaderboardService(progressionRepo repository.ProgressionRepository, redisClient *redis.Client, ttl time.Duration) LeaderboardService {
	if ttl <= 0 {
		ttl = defaultLeaderboardCacheTTL
	}
	return &leaderboardService{progressionRepo: progressionRepo, redisClient: redisClient, ttl: ttl}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 || limit > leaderboardMaxLimit {
		limit = leaderboardMaxLimit
	}

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, leaderboardCacheKey).Result()
		if err == nil {
			var entries []dto.LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return truncate(entries, limit), nil
			}
		} else if err != redis.Nil {
			log.Printf("[leaderboard] cache read: %v", err)
		}
	}

	entries, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.redisClient.Set(ctx, leaderboardCacheKey, payload, s.ttl).Err(); err != nil {
				log.Printf("[leaderboard] cache write: %v", err)
			}
		}
	}
	return truncate(entries, limit), nil
}

// build materializes the full top-N from the active population in XP
// order; per-request limits are sliced off the cached whole.
func (s *leaderboardService) build(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	states, err := s.progressionRepo.ListActiveStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	entries := make([]dto.LeaderboardEntry, 0, min(len(states), leaderboardMaxLimit))
	for i, state := range states {
		if i >= leaderboardMaxLimit {
			break
		}
		position := i + 1
		status := StatusFor(state.TotalXP, &position)
		entries = append(entries, dto.LeaderboardEntry{
			Username: state.User.Username,
			Position: position,
			TotalXP:  state.TotalXP,
			RankStatus: dto.RankStatus{
				Rank:      status.Rank,
				Track:     status.Track,
				NextRank:  status.NextRank,
				CurrentXP: status.CurrentXP,
				TargetXP:  status.TargetXP,
				Progress:  status.Progress,
				Position:  status.Position,
			},
		})
	}
	return entries, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		log.Printf("[leaderboard] cache invalidation: %v", err)
	}
}

func truncate(entries []dto.LeaderboardEntry, limit int) []dto.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
