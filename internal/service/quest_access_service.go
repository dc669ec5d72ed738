package service

import (
	"context"
	"errors"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/pkg/apperror"
	"anoa.com/civicquest/pkg/retry"
	"anoa.com/civicquest/pkg/week"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Access decision reasons.
const (
	ReasonAllowed      = "allowed"
	ReasonLocked       = "locked"             // future day, or anything on a weekend
	ReasonCompleted    = "already_completed"
	ReasonMissed       = "missed_requires_exception"
	ReasonPassUnlocked = "duty_pass_unlocked"
)

// Duty-pass outcomes. Rejections are business results, not errors.
const (
	PassSpent        = "spent"
	PassNoneLeft     = "no_passes_remaining"
	PassAlreadySpent = "already_spent"
	PassNotNeeded    = "not_needed"
)

type AccessDecision struct {
	Allowed        bool   `json:"allowed"`
	Reason         string `json:"reason"`
	IsMissed       bool   `json:"is_missed"`
	NeedsException bool   `json:"needs_exception"`
}

type DutyPassResult struct {
	Outcome         string `json:"outcome"`
	PassesRemaining int    `json:"passes_remaining"`
}

type QuestCompletionResult struct {
	Decision  AccessDecision `json:"decision"`
	Streak    *StreakResult  `json:"streak,omitempty"`
	XPAwarded int            `json:"xp_awarded"`
}

// XP awarded for finishing a day's quest.
const xpQuestDay = 75

// QuestAccessService decides whether a quest day is playable, spends
// duty passes, and runs the completion flow. Every entry point ensures
// the weekly reset has run for the user first.
type QuestAccessService interface {
	CanAccess(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*AccessDecision, error)
	SpendDutyPass(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*DutyPassResult, error)
	CompleteQuestDay(ctx context.Context, userID uuid.UUID, day week.Day, score int, now time.Time) (*QuestCompletionResult, error)
	// AvailabilityMap is the weekly read model: decision per quest day.
	AvailabilityMap(ctx context.Context, userID uuid.UUID, now time.Time) (map[week.Day]AccessDecision, error)
}

type questAccessService struct {
	resetService    WeeklyResetService
	streakService   StreakService
	xp              XPOrchestrator
	progressionRepo repository.ProgressionRepository
	weeklyRepo      repository.WeeklyRepository
	userRepo        repository.UserRepository
	backoff         retry.BackoffFunc
}

func NewQuestAccessService(
	resetService WeeklyResetService,
	streakService StreakService,
	xp XPOrchestrator,
	progressionRepo repository.ProgressionRepository,
	weeklyRepo repository.WeeklyRepository,
	userRepo repository.UserRepository,
	backoff retry.BackoffFunc,
) QuestAccessService {
	return &questAccessService{
		resetService:    resetService,
		streakService:   streakService,
		xp:              xp,
		progressionRepo: progressionRepo,
		weeklyRepo:      weeklyRepo,
		userRepo:        userRepo,
		backoff:         backoff,
	}
}

func (s *questAccessService) weekContext(ctx context.Context, userID uuid.UUID, now time.Time) (time.Time, week.Day, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return time.Time{}, "", err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return time.Time{}, "", apperror.New(400, "invalid timezone", apperror.ErrInvalidInput)
	}
	return week.Start(now, loc), week.DayOf(now, loc), nil
}

func (s *questAccessService) CanAccess(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*AccessDecision, error) {
	if !day.IsQuestDay() {
		return nil, apperror.ErrInvalidInput
	}
	if _, err := s.resetService.EnsureCurrentCycle(ctx, userID, now); err != nil {
		return nil, err
	}
	weekStart, today, err := s.weekContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, userID, weekStart, day, today)
}

func (s *questAccessService) decide(ctx context.Context, userID uuid.UUID, weekStart time.Time, day, today week.Day) (*AccessDecision, error) {
	// Natural calendar progress: each weekday unlocks itself, weekends
	// unlock nothing new but leave every prior day reachable-as-missed.
	naturalIdx := today.Index()
	if naturalIdx < 0 {
		naturalIdx = len(week.QuestDays)
	}

	if day.Index() > naturalIdx {
		return &AccessDecision{Reason: ReasonLocked}, nil
	}

	row, err := s.weeklyRepo.QuestRow(ctx, userID, weekStart, string(day))
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if row != nil && row.IsCompleted {
		return &AccessDecision{Reason: ReasonCompleted}, nil
	}

	if day.Index() < naturalIdx {
		unlocked, err := s.weeklyRepo.HasPassUnlock(ctx, userID, weekStart, string(day))
		if err != nil {
			return nil, err
		}
		if unlocked {
			return &AccessDecision{Allowed: true, Reason: ReasonPassUnlocked, IsMissed: true}, nil
		}
		return &AccessDecision{Reason: ReasonMissed, IsMissed: true, NeedsException: true}, nil
	}

	return &AccessDecision{Allowed: true, Reason: ReasonAllowed}, nil
}

func (s *questAccessService) SpendDutyPass(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*DutyPassResult, error) {
	if !day.IsQuestDay() {
		return nil, apperror.ErrInvalidInput
	}
	if _, err := s.resetService.EnsureCurrentCycle(ctx, userID, now); err != nil {
		return nil, err
	}
	weekStart, today, err := s.weekContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	decision, err := s.decide(ctx, userID, weekStart, day, today)
	if err != nil {
		return nil, err
	}
	if decision.Reason == ReasonPassUnlocked {
		return &DutyPassResult{Outcome: PassAlreadySpent}, nil
	}
	if !decision.NeedsException {
		// Only a missed, still-locked day can consume a pass.
		return &DutyPassResult{Outcome: PassNotNeeded}, nil
	}

	result := &DutyPassResult{}
	err = s.progressionRepo.Mutate(ctx, userID, func(tx repository.TxWriter, state *model.ProgressionState) error {
		if state.DutyPassesAvailable <= 0 {
			result.Outcome = PassNoneLeft
			return nil
		}
		unlock := model.DutyPassUnlock{UserID: userID, WeekStart: weekStart, Day: string(day)}
		if err := tx.Create(&unlock); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Outcome = PassAlreadySpent
				result.PassesRemaining = state.DutyPassesAvailable
				return nil
			}
			return err
		}
		state.DutyPassesAvailable--
		result.Outcome = PassSpent
		result.PassesRemaining = state.DutyPassesAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *questAccessService) CompleteQuestDay(ctx context.Context, userID uuid.UUID, day week.Day, score int, now time.Time) (*QuestCompletionResult, error) {
	if !day.IsQuestDay() {
		return nil, apperror.ErrInvalidInput
	}
	if _, err := s.resetService.EnsureCurrentCycle(ctx, userID, now); err != nil {
		return nil, err
	}
	weekStart, today, err := s.weekContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	decision, err := s.decide(ctx, userID, weekStart, day, today)
	if err != nil {
		return nil, err
	}

	result := &QuestCompletionResult{Decision: *decision}

	// Replays refresh the streak timestamp but earn nothing new.
	if decision.Reason == ReasonCompleted {
		streak, err := s.streakService.Apply(ctx, userID, day, now)
		if err != nil {
			return nil, err
		}
		result.Streak = streak
		return result, nil
	}
	if !decision.Allowed {
		return result, nil
	}

	// Duplicate client retries race on the same (user, week, day) row;
	// the bounded retry rides out transient conflicts.
	err = retry.Do(3, s.backoff, apperror.IsRetryable, func() error {
		row, err := s.weeklyRepo.QuestRow(ctx, userID, weekStart, string(day))
		if err != nil {
			return err
		}
		row.IsCompleted = true
		row.IsFailed = false
		row.Score = score
		completedAt := now
		row.CompletedAt = &completedAt
		return s.weeklyRepo.SaveQuestRow(ctx, userID, row)
	})
	if err != nil {
		return nil, err
	}

	if err := s.weeklyRepo.IncrementQuestsCompleted(ctx, userID, weekStart); err != nil {
		return nil, err
	}

	streak, err := s.streakService.Apply(ctx, userID, day, now)
	if err != nil {
		return nil, err
	}
	result.Streak = streak

	if err := s.xp.Award(ctx, userID, xpQuestDay, "quest_day", string(day), "quest_progresses"); err != nil {
		return nil, err
	}
	result.XPAwarded = xpQuestDay

	return result, nil
}

func (s *questAccessService) AvailabilityMap(ctx context.Context, userID uuid.UUID, now time.Time) (map[week.Day]AccessDecision, error) {
	if _, err := s.resetService.EnsureCurrentCycle(ctx, userID, now); err != nil {
		return nil, err
	}
	weekStart, today, err := s.weekContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	availability := make(map[week.Day]AccessDecision, len(week.QuestDays))
	for _, day := range week.QuestDays {
		decision, err := s.decide(ctx, userID, weekStart, day, today)
		if err != nil {
			return nil, err
		}
		availability[day] = *decision
	}
	return availability, nil
}
