package service

import (
	"context"
	"log"
	"math"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"github.com/google/uuid"
)

// AchievementProgress is one row of the achievement read model. Target
// is live for badge milestones: it tracks the current catalog size, so
// a user's fraction can move without the user doing anything.
type AchievementProgress struct {
	Achievement model.Achievement `json:"achievement"`
	Earned      bool              `json:"earned"`
	EarnedAt    *time.Time        `json:"earned_at,omitempty"`
	Current     int               `json:"current"`
	Target      int               `json:"target"`
}

type AchievementService interface {
	// VerifyForUser evaluates every unearned achievement against the
	// user's current state and grants the ones whose criteria hold.
	VerifyForUser(ctx context.Context, userID uuid.UUID) ([]model.UserAchievement, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]AchievementProgress, error)
}

type achievementService struct {
	achievementRepo repository.AchievementRepository
	badgeRepo       repository.BadgeRepository
	progressionRepo repository.ProgressionRepository
	userRepo        repository.UserRepository
}

func NewAchievementService(
	achievementRepo repository.AchievementRepository,
	badgeRepo repository.BadgeRepository,
	progressionRepo repository.ProgressionRepository,
	userRepo repository.UserRepository,
) AchievementService {
	return &achievementService{
		achievementRepo: achievementRepo,
		badgeRepo:       badgeRepo,
		progressionRepo: progressionRepo,
		userRepo:        userRepo,
	}
}

// userSnapshot carries everything the criteria checks read so each
// verification pass hits the database a fixed number of times.
type userSnapshot struct {
	user           *model.User
	state          *model.ProgressionState
	learningEarned int
	quizEarned     int
	learningTotal  int
	quizTotal      int
}

func (s *achievementService) snapshot(ctx context.Context, userID uuid.UUID) (*userSnapshot, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	state, err := s.progressionRepo.GetOrCreateState(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.badgeRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	granted, err := s.badgeRepo.GrantedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &userSnapshot{user: user, state: state}
	for i := range catalog {
		badge := &catalog[i]
		switch {
		case badge.IsLearningBadge():
			snap.learningTotal++
			if granted[badge.ID] {
				snap.learningEarned++
			}
		case badge.IsQuizBadge():
			snap.quizTotal++
			if granted[badge.ID] {
				snap.quizEarned++
			}
		}
	}
	return snap, nil
}

// milestoneTarget recomputes the denominator from the live catalog; a
// grown catalog can pull an unearned milestone back out of reach.
func milestoneTarget(criteriaType string, classTotal int) int {
	switch criteriaType {
	case model.CriteriaBadgeStarter:
		return 1
	case model.CriteriaBadgeMaster:
		return int(math.Ceil(float64(classTotal) / 2))
	case model.CriteriaBadgeLegend:
		return classTotal
	default:
		return 0
	}
}

func (snap *userSnapshot) classCounts(class string) (earned, total int) {
	if class == model.BadgeClassQuiz {
		return snap.quizEarned, snap.quizTotal
	}
	return snap.learningEarned, snap.learningTotal
}

// satisfied reports whether achievement's criteria hold, plus the
// current/target pair for progress reporting.
func (s *achievementService) satisfied(snap *userSnapshot, achievement *model.Achievement) (bool, int, int) {
	switch achievement.CriteriaType {
	case model.CriteriaProfileComplete:
		if snap.user.Profile != nil && snap.user.Profile.IsComplete() {
			return true, 1, 1
		}
		return false, 0, 1

	case model.CriteriaRankReached:
		have := RankValue(snap.state.CurrentRank)
		want := RankValue(achievement.CriteriaValue)
		return have >= want && want > 0, have, want

	case model.CriteriaHighestRank:
		// Star-rank achievements key off the high-water mark, so they
		// survive losing the leaderboard position that earned them.
		have := RankValue(snap.state.HighestRank)
		want := RankValue(achievement.CriteriaValue)
		return have >= want && want > 0, have, want

	case model.CriteriaBadgeStarter, model.CriteriaBadgeMaster, model.CriteriaBadgeLegend:
		earned, total := snap.classCounts(achievement.MilestoneClass())
		target := milestoneTarget(achievement.CriteriaType, total)
		if total == 0 {
			// An empty catalog has no milestones to hit.
			return false, earned, target
		}
		return earned >= target, earned, target

	default:
		log.Printf("[achievements] unknown criteria type %q on %s", achievement.CriteriaType, achievement.Name)
		return false, 0, 0
	}
}

func (s *achievementService) VerifyForUser(ctx context.Context, userID uuid.UUID) ([]model.UserAchievement, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.achievementRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	granted, err := s.achievementRepo.GrantedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var grants []model.UserAchievement
	for i := range catalog {
		achievement := &catalog[i]
		if granted[achievement.ID] {
			continue
		}
		ok, _, _ := s.satisfied(snap, achievement)
		if !ok {
			continue
		}
		isNew, err := s.achievementRepo.Grant(ctx, userID, achievement.ID, achievement.XPReward)
		if err != nil {
			return nil, err
		}
		if !isNew {
			continue
		}
		grants = append(grants, model.UserAchievement{
			UserID:        userID,
			AchievementID: achievement.ID,
			Achievement:   *achievement,
			XPAwarded:     achievement.XPReward,
		})
		if achievement.XPReward > 0 {
			if err := s.applyReward(ctx, userID, achievement); err != nil {
				return grants, err
			}
		}
	}
	return grants, nil
}

// applyReward credits the achievement's XP and refreshes the sequential
// rank from the new total. Leaderboard position is left to the next
// population recalculation, so this never re-enters the verifier.
func (s *achievementService) applyReward(ctx context.Context, userID uuid.UUID, achievement *model.Achievement) error {
	state, err := s.progressionRepo.ApplyXPDelta(ctx, userID, achievement.XPReward,
		"achievement_reward", achievement.ID.String(), "user_achievements")
	if err != nil {
		return err
	}
	totalXP := state.TotalXP
	return s.progressionRepo.Mutate(ctx, userID, func(tx repository.TxWriter, state *model.ProgressionState) error {
		next := EffectiveRank(totalXP, state.LeaderboardPosition)
		if next == state.CurrentRank {
			return nil
		}
		state.CurrentRank = next
		if RankAbove(next, state.HighestRank) {
			state.HighestRank = next
		}
		return tx.Create(&model.RankHistory{
			UserID:   userID,
			Rank:     next,
			Position: state.LeaderboardPosition,
			XPAtTime: totalXP,
		})
	})
}

func (s *achievementService) ListForUser(ctx context.Context, userID uuid.UUID) ([]AchievementProgress, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.achievementRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.achievementRepo.GrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedAt := make(map[uuid.UUID]time.Time, len(grants))
	for _, grant := range grants {
		earnedAt[grant.AchievementID] = grant.EarnedAt
	}

	list := make([]AchievementProgress, 0, len(catalog))
	for i := range catalog {
		achievement := catalog[i]
		entry := AchievementProgress{Achievement: achievement}
		_, entry.Current, entry.Target = s.satisfied(snap, &achievement)
		if at, ok := earnedAt[achievement.ID]; ok {
			entry.Earned = true
			entry.EarnedAt = &at
			entry.Current = entry.Target
		}
		list = append(list, entry)
	}
	return list, nil
}
