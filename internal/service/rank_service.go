package service

import (
	"context"
	"log"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"github.com/google/uuid"
)

// AchievementVerifier is the rank calculator's downstream hook; only
// users whose rank actually moved up are re-verified, so a population
// recalculation does not turn into a population achievement scan.
type AchievementVerifier interface {
	VerifyForUser(ctx context.Context, userID uuid.UUID) ([]model.UserAchievement, error)
}

// LeaderboardInvalidator drops cached leaderboard read models after a
// recalculation reshuffles positions.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context)
}

type RankService interface {
	// RecalculateAll recomputes both rank tracks over the active
	// population and appends one rank-history row per user, rank change
	// or not.
	RecalculateAll(ctx context.Context) error
	StatusForUser(ctx context.Context, userID uuid.UUID) (*RankStatus, error)
}

type rankService struct {
	progressionRepo repository.ProgressionRepository
	verifier        AchievementVerifier
	invalidator     LeaderboardInvalidator
}

func NewRankService(progressionRepo repository.ProgressionRepository, verifier AchievementVerifier, invalidator LeaderboardInvalidator) RankService {
	return &rankService{
		progressionRepo: progressionRepo,
		verifier:        verifier,
		invalidator:     invalidator,
	}
}

func (s *rankService) RecalculateAll(ctx context.Context) error {
	// Already ordered by (total_xp DESC, created_at ASC); the index in
	// this slice is the 1-based leaderboard position.
	states, err := s.progressionRepo.ListActiveStates(ctx)
	if err != nil {
		return err
	}

	var promoted []uuid.UUID
	for i, snapshot := range states {
		position := i + 1
		newRank := EffectiveRank(snapshot.TotalXP, &position)

		err := s.progressionRepo.Mutate(ctx, snapshot.UserID, func(tx repository.TxWriter, state *model.ProgressionState) error {
			wasPromoted := RankAbove(newRank, state.CurrentRank)
			state.CurrentRank = newRank
			state.LeaderboardPosition = &position
			if RankAbove(newRank, state.HighestRank) {
				state.HighestRank = newRank
			}
			if wasPromoted {
				promoted = append(promoted, state.UserID)
			}

			history := model.RankHistory{
				UserID:   state.UserID,
				Rank:     newRank,
				Position: &position,
				XPAtTime: state.TotalXP,
			}
			return tx.Create(&history)
		})
		if err != nil {
			return err
		}
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	for _, userID := range promoted {
		if _, err := s.verifier.VerifyForUser(ctx, userID); err != nil {
			log.Printf("[rank] achievement verification failed for promoted user %s: %v", userID, err)
		}
	}
	return nil
}

func (s *rankService) StatusForUser(ctx context.Context, userID uuid.UUID) (*RankStatus, error) {
	state, err := s.progressionRepo.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := StatusFor(state.TotalXP, state.LeaderboardPosition)
	return &status, nil
}
