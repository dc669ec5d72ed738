package service

import (
	"context"
	"errors"
	"log"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/pkg/apperror"
	"anoa.com/civicquest/pkg/week"
	"github.com/google/uuid"
)

// WeeklyResetService detects week-boundary crossings lazily, on login or
// before quest access, instead of running a clock-driven job.
type WeeklyResetService interface {
	// EnsureCurrentCycle rolls the user over into the week containing
	// now (in their timezone) if needed and returns the current cycle.
	// Calling it twice in the same week is a no-op.
	EnsureCurrentCycle(ctx context.Context, userID uuid.UUID, now time.Time) (*model.WeeklyCycle, error)
}

type weeklyResetService struct {
	progressionRepo repository.ProgressionRepository
	weeklyRepo      repository.WeeklyRepository
	userRepo        repository.UserRepository
}

func NewWeeklyResetService(progressionRepo repository.ProgressionRepository, weeklyRepo repository.WeeklyRepository, userRepo repository.UserRepository) WeeklyResetService {
	return &weeklyResetService{
		progressionRepo: progressionRepo,
		weeklyRepo:      weeklyRepo,
		userRepo:        userRepo,
	}
}

func (s *weeklyResetService) EnsureCurrentCycle(ctx context.Context, userID uuid.UUID, now time.Time) (*model.WeeklyCycle, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, apperror.New(400, "invalid timezone", apperror.ErrInvalidInput)
	}

	weekStart := week.Start(now, loc)

	state, err := s.progressionRepo.GetOrCreateState(ctx, userID)
	if err != nil {
		return nil, err
	}

	if state.WeeklyCycleStart != nil && state.WeeklyCycleStart.Equal(weekStart) {
		cycle, err := s.weeklyRepo.GetCycle(ctx, userID, weekStart)
		if err == nil {
			return cycle, nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		// Stamp exists but the cycle record is missing; fall through and
		// let the rollover recreate it.
	}

	cycle, err := s.weeklyRepo.Rollover(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	log.Printf("[weekly] user %s rolled into cycle starting %s", userID, weekStart.Format("2006-01-02"))
	return cycle, nil
}
