package service

import (
	"context"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/pkg/apperror"
	"anoa.com/civicquest/pkg/week"
	"github.com/google/uuid"
)

// Streak outcomes. These are business results, not errors: a broken
// streak is reported back to the caller as an ordinary value.
const (
	StreakStarted   = "started"
	StreakContinued = "continued"
	StreakRepeated  = "repeated"
	StreakBroken    = "broken"
	StreakNotSeeded = "not_seeded" // first completion on a non-Monday
)

// Hours without a completion after which the streak force-resets unless
// the day was reached through a duty-pass unlock.
const staleHours = 48

type StreakResult struct {
	Outcome       string `json:"outcome"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

type StreakService interface {
	// Apply feeds one quest-day completion into the streak automaton and
	// returns the resulting counters. The caller has already validated
	// the completion itself.
	Apply(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*StreakResult, error)
}

type streakService struct {
	progressionRepo repository.ProgressionRepository
	weeklyRepo      repository.WeeklyRepository
	userRepo        repository.UserRepository
}

func NewStreakService(progressionRepo repository.ProgressionRepository, weeklyRepo repository.WeeklyRepository, userRepo repository.UserRepository) StreakService {
	return &streakService{
		progressionRepo: progressionRepo,
		weeklyRepo:      weeklyRepo,
		userRepo:        userRepo,
	}
}

func (s *streakService) Apply(ctx context.Context, userID uuid.UUID, day week.Day, now time.Time) (*StreakResult, error) {
	if !day.IsQuestDay() {
		return nil, apperror.ErrInvalidInput
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		// Unsupported zone is a fatal input error, not something to
		// recover from here.
		return nil, apperror.New(400, "invalid timezone", apperror.ErrInvalidInput)
	}

	// A duty-pass unlock for this exact (user, day, cycle) makes the
	// completion valid for continuation regardless of elapsed hours.
	viaPass, err := s.weeklyRepo.HasPassUnlock(ctx, userID, week.Start(now, loc), string(day))
	if err != nil {
		return nil, err
	}

	var result StreakResult
	err = s.progressionRepo.Mutate(ctx, userID, func(_ repository.TxWriter, state *model.ProgressionState) error {
		result = transition(state, day, now, viaPass)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// transition advances the streak automaton in place. Pure apart from the
// state mutation, so the rules are testable without a store.
func transition(state *model.ProgressionState, day week.Day, now time.Time, viaPass bool) StreakResult {
	outcome := StreakStarted

	switch {
	case state.LastCompletedQuestDay == nil:
		// First completion ever: only Monday seeds a streak.
		if day == week.Monday {
			state.CurrentStreak = 1
			outcome = StreakStarted
		} else {
			state.CurrentStreak = 0
			outcome = StreakNotSeeded
		}

	default:
		stale := state.LastQuestCompletionAt != nil &&
			week.HoursBetween(*state.LastQuestCompletionAt, now) >= staleHours

		switch {
		case week.Day(*state.LastCompletedQuestDay) == day && (!stale || viaPass):
			// Replay of an already-completed day: only the timestamp
			// moves. The same weekday a week later is stale, not a
			// replay.
			outcome = StreakRepeated
		case stale && !viaPass:
			// Elapsed-time check fires independently of the day
			// sequence.
			state.CurrentStreak = resetValue(day)
			outcome = StreakBroken
		case day.ConsecutiveAfter(week.Day(*state.LastCompletedQuestDay)):
			state.CurrentStreak++
			outcome = StreakContinued
		default:
			state.CurrentStreak = resetValue(day)
			outcome = StreakBroken
		}
	}

	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}

	d := string(day)
	state.LastCompletedQuestDay = &d
	state.LastQuestCompletionAt = &now

	return StreakResult{
		Outcome:       outcome,
		CurrentStreak: state.CurrentStreak,
		LongestStreak: state.LongestStreak,
	}
}

// resetValue is the consecutive-day reset rule: only Monday can seed a
// new streak.
func resetValue(day week.Day) int {
	if day == week.Monday {
		return 1
	}
	return 0
}
