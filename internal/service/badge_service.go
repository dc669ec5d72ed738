package service

import (
	"context"
	"log"
	"sync"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"github.com/google/uuid"
)

// BadgeProgress is one row of the badge read model.
type BadgeProgress struct {
	Badge    model.Badge `json:"badge"`
	Earned   bool        `json:"earned"`
	EarnedAt *string     `json:"earned_at,omitempty"`
	Progress float64     `json:"progress"` // 0..1 toward the trigger condition
}

type BadgeService interface {
	HandleLessonCompleted(ctx context.Context, userID, lessonID, moduleID uuid.UUID) ([]model.Badge, error)
	HandleQuizCompleted(ctx context.Context, userID uuid.UUID, quiz *model.Quiz, bestPercent int) ([]model.Badge, error)
	// Cascade re-checks every prerequisite-bearing badge reachable from
	// the user's current grants. Called after direct awards and from the
	// XP pipeline.
	Cascade(ctx context.Context, userID uuid.UUID) ([]model.Badge, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]BadgeProgress, error)
	// RebuildIndex refreshes the badge dependency index after the
	// catalog changes.
	RebuildIndex(ctx context.Context) error
}

// triggerCheck is the semantic trigger condition of one badge variant.
// Prerequisite satisfaction alone never awards a badge; its own trigger
// must independently hold.
type triggerCheck func(ctx context.Context, userID uuid.UUID, badge *model.Badge) (bool, error)

type badgeService struct {
	badgeRepo   repository.BadgeRepository
	contentRepo repository.ContentRepository

	checks map[string]triggerCheck

	mu         sync.RWMutex
	dependents map[uuid.UUID][]uuid.UUID // prerequisite badge -> badges that list it
	indexBuilt bool
}

func NewBadgeService(badgeRepo repository.BadgeRepository, contentRepo repository.ContentRepository) BadgeService {
	s := &badgeService{
		badgeRepo:   badgeRepo,
		contentRepo: contentRepo,
	}
	// One handler per trigger variant; no string-keyed branching at call
	// sites.
	s.checks = map[string]triggerCheck{
		model.TriggerLessonComplete:    s.checkLessonComplete,
		model.TriggerModuleComplete:    s.checkModuleComplete,
		model.TriggerQuizMastery:       s.checkQuizMastery,
		model.TriggerParentQuizMastery: s.checkParentQuizMastery,
		model.TriggerManual:            s.checkManual,
	}
	return s
}

// Trigger condition handlers. One per trigger variant; each answers
// whether the user currently satisfies the badge's condition.

func (s *badgeService) checkLessonComplete(ctx context.Context, userID uuid.UUID, badge *model.Badge) (bool, error) {
	lessonID, err := uuid.Parse(badge.TriggerValue)
	if err != nil {
		return false, nil
	}
	count, err := s.contentRepo.CompletedLessonIDs(ctx, userID, []uuid.UUID{lessonID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *badgeService) checkModuleComplete(ctx context.Context, userID uuid.UUID, badge *model.Badge) (bool, error) {
	moduleID, err := uuid.Parse(badge.TriggerValue)
	if err != nil {
		return false, nil
	}
	lessonIDs, err := s.contentRepo.LessonIDsInModule(ctx, moduleID)
	if err != nil {
		return false, err
	}
	if len(lessonIDs) == 0 {
		return false, nil
	}
	completed, err := s.contentRepo.CompletedLessonIDs(ctx, userID, lessonIDs)
	if err != nil {
		return false, err
	}
	return completed == int64(len(lessonIDs)), nil
}

func (s *badgeService) checkQuizMastery(ctx context.Context, userID uuid.UUID, badge *model.Badge) (bool, error) {
	quizID, err := uuid.Parse(badge.TriggerValue)
	if err != nil {
		return false, nil
	}
	quiz, err := s.contentRepo.GetQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	best, err := s.contentRepo.BestQuizPercent(ctx, userID, quizID)
	if err != nil {
		return false, err
	}
	return best >= quiz.MasteryThreshold(), nil
}

func (s *badgeService) checkParentQuizMastery(ctx context.Context, userID uuid.UUID, badge *model.Badge) (bool, error) {
	parentID, err := uuid.Parse(badge.TriggerValue)
	if err != nil {
		return false, nil
	}
	childIDs, err := s.contentRepo.ChildQuizIDs(ctx, parentID)
	if err != nil {
		return false, err
	}
	if len(childIDs) == 0 {
		return false, nil
	}
	for _, childID := range childIDs {
		quiz, err := s.contentRepo.GetQuiz(ctx, childID)
		if err != nil {
			return false, err
		}
		best, err := s.contentRepo.BestQuizPercent(ctx, userID, childID)
		if err != nil {
			return false, err
		}
		if best < quiz.MasteryThreshold() {
			return false, nil
		}
	}
	return true, nil
}

func (s *badgeService) checkManual(context.Context, uuid.UUID, *model.Badge) (bool, error) {
	// Manual badges are granted by admins, never by the engine.
	return false, nil
}

// eligible reports whether the badge can be awarded now: not already
// granted and every prerequisite held.
func (s *badgeService) eligible(badge *model.Badge, granted map[uuid.UUID]bool) bool {
	if granted[badge.ID] {
		return false
	}
	for _, prereq := range badge.Prerequisites {
		if !granted[prereq.ID] {
			return false
		}
	}
	return true
}

// award grants badge if eligible and its trigger holds; the duplicate-key
// collapse in the repo keeps this idempotent under concurrent triggers.
func (s *badgeService) award(ctx context.Context, userID uuid.UUID, badge *model.Badge, granted map[uuid.UUID]bool) (bool, error) {
	if !s.eligible(badge, granted) {
		return false, nil
	}
	check, ok := s.checks[badge.TriggerType]
	if !ok {
		log.Printf("[badges] unknown trigger type %q on badge %s", badge.TriggerType, badge.ID)
		return false, nil
	}
	holds, err := check(ctx, userID, badge)
	if err != nil || !holds {
		return false, err
	}
	isNew, err := s.badgeRepo.Grant(ctx, userID, badge.ID)
	if err != nil {
		return false, err
	}
	if isNew {
		granted[badge.ID] = true
	}
	return isNew, nil
}

func (s *badgeService) HandleLessonCompleted(ctx context.Context, userID, lessonID, moduleID uuid.UUID) ([]model.Badge, error) {
	granted, err := s.badgeRepo.GrantedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []model.Badge
	for _, trigger := range []struct{ triggerType, value string }{
		{model.TriggerLessonComplete, lessonID.String()},
		{model.TriggerModuleComplete, moduleID.String()},
	} {
		badges, err := s.badgeRepo.ByTrigger(ctx, trigger.triggerType, trigger.value)
		if err != nil {
			return nil, err
		}
		for i := range badges {
			isNew, err := s.award(ctx, userID, &badges[i], granted)
			if err != nil {
				return nil, err
			}
			if isNew {
				awarded = append(awarded, badges[i])
			}
		}
	}

	cascaded, err := s.cascadeFrom(ctx, userID, granted, awarded)
	if err != nil {
		return nil, err
	}
	return append(awarded, cascaded...), nil
}

func (s *badgeService) HandleQuizCompleted(ctx context.Context, userID uuid.UUID, quiz *model.Quiz, bestPercent int) ([]model.Badge, error) {
	granted, err := s.badgeRepo.GrantedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []model.Badge
	triggers := []struct{ triggerType, value string }{
		{model.TriggerQuizMastery, quiz.ID.String()},
	}
	if quiz.ParentID != nil {
		triggers = append(triggers, struct{ triggerType, value string }{
			model.TriggerParentQuizMastery, quiz.ParentID.String(),
		})
	}
	for _, trigger := range triggers {
		badges, err := s.badgeRepo.ByTrigger(ctx, trigger.triggerType, trigger.value)
		if err != nil {
			return nil, err
		}
		for i := range badges {
			isNew, err := s.award(ctx, userID, &badges[i], granted)
			if err != nil {
				return nil, err
			}
			if isNew {
				awarded = append(awarded, badges[i])
			}
		}
	}

	cascaded, err := s.cascadeFrom(ctx, userID, granted, awarded)
	if err != nil {
		return nil, err
	}
	return append(awarded, cascaded...), nil
}

// ensureIndex lazily builds the badge dependency index the cascading
// pass walks.
func (s *badgeService) ensureIndex(ctx context.Context) error {
	s.mu.RLock()
	built := s.indexBuilt
	s.mu.RUnlock()
	if built {
		return nil
	}
	return s.RebuildIndex(ctx)
}

func (s *badgeService) RebuildIndex(ctx context.Context) error {
	badges, err := s.badgeRepo.All(ctx)
	if err != nil {
		return err
	}
	dependents := make(map[uuid.UUID][]uuid.UUID)
	for _, badge := range badges {
		for _, prereq := range badge.Prerequisites {
			dependents[prereq.ID] = append(dependents[prereq.ID], badge.ID)
		}
	}
	s.mu.Lock()
	s.dependents = dependents
	s.indexBuilt = true
	s.mu.Unlock()
	return nil
}

// cascadeFrom re-checks only the dependents of freshly awarded badges,
// walking the prerequisite graph breadth-first instead of scanning the
// whole catalog.
func (s *badgeService) cascadeFrom(ctx context.Context, userID uuid.UUID, granted map[uuid.UUID]bool, seeds []model.Badge) ([]model.Badge, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	catalog, err := s.badgeRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Badge, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	s.mu.RLock()
	dependents := s.dependents
	s.mu.RUnlock()

	queue := make([]uuid.UUID, 0, len(seeds))
	for _, seed := range seeds {
		queue = append(queue, seed.ID)
	}

	var awarded []model.Badge
	visited := make(map[uuid.UUID]bool)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, depID := range dependents[current] {
			if visited[depID] {
				continue
			}
			visited[depID] = true
			badge, ok := byID[depID]
			if !ok {
				continue
			}
			isNew, err := s.award(ctx, userID, badge, granted)
			if err != nil {
				return nil, err
			}
			if isNew {
				awarded = append(awarded, *badge)
				queue = append(queue, badge.ID)
			}
		}
	}
	return awarded, nil
}

// Cascade without fresh seeds re-checks every dependent of the user's
// existing grants; the XP pipeline calls this as a safety net.
func (s *badgeService) Cascade(ctx context.Context, userID uuid.UUID) ([]model.Badge, error) {
	granted, err := s.badgeRepo.GrantedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	seeds := make([]model.Badge, 0, len(granted))
	for id := range granted {
		seeds = append(seeds, model.Badge{ID: id})
	}
	return s.cascadeFrom(ctx, userID, granted, seeds)
}

// ListForUser builds the earned/locked badge read model with progress
// toward each unearned badge.
func (s *badgeService) ListForUser(ctx context.Context, userID uuid.UUID) ([]BadgeProgress, error) {
	catalog, err := s.badgeRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.badgeRepo.GrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedAt := make(map[uuid.UUID]string, len(grants))
	for _, grant := range grants {
		earnedAt[grant.BadgeID] = grant.EarnedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	list := make([]BadgeProgress, 0, len(catalog))
	for i := range catalog {
		badge := catalog[i]
		entry := BadgeProgress{Badge: badge}
		if at, ok := earnedAt[badge.ID]; ok {
			entry.Earned = true
			entry.EarnedAt = &at
			entry.Progress = 1
		} else {
			entry.Progress = s.progressToward(ctx, userID, &badge)
		}
		list = append(list, entry)
	}
	return list, nil
}

// progressToward approximates how far the user is from a locked badge's
// trigger; read-model only, never part of awarding.
func (s *badgeService) progressToward(ctx context.Context, userID uuid.UUID, badge *model.Badge) float64 {
	switch badge.TriggerType {
	case model.TriggerModuleComplete:
		moduleID, err := uuid.Parse(badge.TriggerValue)
		if err != nil {
			return 0
		}
		lessonIDs, err := s.contentRepo.LessonIDsInModule(ctx, moduleID)
		if err != nil || len(lessonIDs) == 0 {
			return 0
		}
		completed, err := s.contentRepo.CompletedLessonIDs(ctx, userID, lessonIDs)
		if err != nil {
			return 0
		}
		return float64(completed) / float64(len(lessonIDs))
	case model.TriggerQuizMastery:
		quizID, err := uuid.Parse(badge.TriggerValue)
		if err != nil {
			return 0
		}
		quiz, err := s.contentRepo.GetQuiz(ctx, quizID)
		if err != nil {
			return 0
		}
		best, err := s.contentRepo.BestQuizPercent(ctx, userID, quizID)
		if err != nil {
			return 0
		}
		progress := float64(best) / float64(quiz.MasteryThreshold())
		if progress > 1 {
			progress = 1
		}
		return progress
	default:
		return 0
	}
}
