package service

import (
	"context"
	"log"
	"math"
	"sync"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"github.com/google/uuid"
)

const (
	xpLessonComplete = 50
	xpQuizMastery    = 100
)

// LessonResult summarizes one lesson-completed event.
type LessonResult struct {
	AlreadyCompleted bool          `json:"already_completed"`
	XPAwarded        int           `json:"xp_awarded"`
	NewBadges        []model.Badge `json:"new_badges"`
}

// QuizResult summarizes one quiz-completed event. Mastery compares the
// best percent across all attempts against the quiz's adaptive
// threshold.
type QuizResult struct {
	Percent   int           `json:"percent"`
	Threshold int           `json:"threshold"`
	Mastered  bool          `json:"mastered"`
	XPAwarded int           `json:"xp_awarded"`
	NewBadges []model.Badge `json:"new_badges"`
}

// XPOrchestrator is the single write path for XP. Every grant funnels
// through Award so the delta, the log row, the rank recalculation and
// the downstream badge/achievement checks stay in one ordering.
type XPOrchestrator interface {
	Award(ctx context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) error
	CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID) (*LessonResult, error)
	CompleteQuiz(ctx context.Context, userID, quizID uuid.UUID, rawScore, totalQuestions int) (*QuizResult, error)
	// Flush blocks until every in-flight background verification pass
	// has drained. Called on shutdown.
	Flush()
}

type xpService struct {
	progressionRepo repository.ProgressionRepository
	contentRepo     repository.ContentRepository
	ranks           RankService
	badges          BadgeService
	achievements    AchievementService

	// locks serializes the background verification stage per user;
	// different users proceed in parallel.
	locks    userLocks
	inflight sync.WaitGroup
}

func NewXPService(
	progressionRepo repository.ProgressionRepository,
	contentRepo repository.ContentRepository,
	ranks RankService,
	badges BadgeService,
	achievements AchievementService,
) XPOrchestrator {
	return &xpService{
		progressionRepo: progressionRepo,
		contentRepo:     contentRepo,
		ranks:           ranks,
		badges:          badges,
		achievements:    achievements,
	}
}

// userLocks hands out one mutex per user id.
type userLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (l *userLocks) forUser(userID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[uuid.UUID]*sync.Mutex)
	}
	lock, ok := l.m[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.m[userID] = lock
	}
	return lock
}

func (s *xpService) Award(ctx context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) error {
	if _, err := s.progressionRepo.ApplyXPDelta(ctx, userID, amount, sourceTag, refID, refTable); err != nil {
		return err
	}
	if err := s.ranks.RecalculateAll(ctx); err != nil {
		return err
	}
	s.verifyAsync(userID)
	return nil
}

// verifyAsync runs the achievement verifier and the badge cascade off
// the request path. Both stages are idempotent, so a crash between the
// XP write and this pass only delays grants until the next award.
func (s *xpService) verifyAsync(userID uuid.UUID) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		lock := s.locks.forUser(userID)
		lock.Lock()
		defer lock.Unlock()

		ctx := context.Background()
		if _, err := s.achievements.VerifyForUser(ctx, userID); err != nil {
			log.Printf("[xp] achievement verification for %s: %v", userID, err)
		}
		if _, err := s.badges.Cascade(ctx, userID); err != nil {
			log.Printf("[xp] badge cascade for %s: %v", userID, err)
		}
	}()
}

func (s *xpService) Flush() {
	s.inflight.Wait()
}

func (s *xpService) CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID) (*LessonResult, error) {
	lesson, err := s.contentRepo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	isNew, err := s.contentRepo.RecordLessonCompletion(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	result := &LessonResult{AlreadyCompleted: !isNew}
	badges, err := s.badges.HandleLessonCompleted(ctx, userID, lessonID, lesson.ModuleID)
	if err != nil {
		return nil, err
	}
	result.NewBadges = badges

	// Repeat completions refresh badges above but earn nothing.
	if isNew {
		result.XPAwarded = xpLessonComplete
		if err := s.Award(ctx, userID, xpLessonComplete, "lesson_complete", lessonID.String(), "lesson_completions"); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *xpService) CompleteQuiz(ctx context.Context, userID, quizID uuid.UUID, rawScore, totalQuestions int) (*QuizResult, error) {
	quiz, err := s.contentRepo.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	percent := 0
	if totalQuestions > 0 {
		percent = int(math.Round(float64(rawScore) / float64(totalQuestions) * 100))
	}
	threshold := quiz.MasteryThreshold()

	previousBest, err := s.contentRepo.BestQuizPercent(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.contentRepo.RecordQuizAttempt(ctx, &model.QuizAttempt{
		UserID:         userID,
		QuizID:         quizID,
		RawScore:       rawScore,
		TotalQuestions: totalQuestions,
		Percent:        percent,
	}); err != nil {
		return nil, err
	}

	best := previousBest
	if percent > best {
		best = percent
	}
	result := &QuizResult{
		Percent:   percent,
		Threshold: threshold,
		Mastered:  best >= threshold,
	}

	badges, err := s.badges.HandleQuizCompleted(ctx, userID, quiz, best)
	if err != nil {
		return nil, err
	}
	result.NewBadges = badges

	// XP only on the attempt that first crosses the threshold; later
	// masteries of the same quiz are free.
	if result.Mastered && previousBest < threshold {
		result.XPAwarded = xpQuizMastery
		if err := s.Award(ctx, userID, xpQuizMastery, "quiz_complete", quizID.String(), "quiz_attempts"); err != nil {
			return nil, err
		}
	}
	return result, nil
}
