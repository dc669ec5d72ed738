package service

import (
	"context"
	"sort"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/repository"
	"anoa.com/civicquest/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes for service tests.

type fakeBadgeRepo struct {
	badges []model.Badge
	grants map[uuid.UUID]map[uuid.UUID]time.Time // user -> badge -> earned at
}

func newFakeBadgeRepo(badges ...model.Badge) *fakeBadgeRepo {
	return &fakeBadgeRepo{
		badges: badges,
		grants: make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

func (r *fakeBadgeRepo) All(context.Context) ([]model.Badge, error) {
	return r.badges, nil
}

func (r *fakeBadgeRepo) ByTrigger(_ context.Context, triggerType, triggerValue string) ([]model.Badge, error) {
	var out []model.Badge
	for _, b := range r.badges {
		if b.TriggerType == triggerType && b.TriggerValue == triggerValue {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBadgeRepo) GrantedIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	granted := make(map[uuid.UUID]bool)
	for id := range r.grants[userID] {
		granted[id] = true
	}
	return granted, nil
}

func (r *fakeBadgeRepo) GrantsForUser(_ context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	var out []model.UserBadge
	for id, at := range r.grants[userID] {
		out = append(out, model.UserBadge{UserID: userID, BadgeID: id, EarnedAt: at})
	}
	return out, nil
}

func (r *fakeBadgeRepo) Grant(_ context.Context, userID, badgeID uuid.UUID) (bool, error) {
	if r.grants[userID] == nil {
		r.grants[userID] = make(map[uuid.UUID]time.Time)
	}
	if _, exists := r.grants[userID][badgeID]; exists {
		return false, nil
	}
	r.grants[userID][badgeID] = time.Now()
	return true, nil
}

func (r *fakeBadgeRepo) Delete(_ context.Context, badgeID uuid.UUID) error {
	for i, b := range r.badges {
		if b.ID == badgeID {
			r.badges = append(r.badges[:i], r.badges[i+1:]...)
			return nil
		}
	}
	return apperror.ErrNotFound
}

type fakeContentRepo struct {
	lessons      map[uuid.UUID]*model.Lesson
	quizzes      map[uuid.UUID]*model.Quiz
	completions  map[uuid.UUID]map[uuid.UUID]bool // user -> lesson
	bestPercents map[uuid.UUID]map[uuid.UUID]int  // user -> quiz
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{
		lessons:      make(map[uuid.UUID]*model.Lesson),
		quizzes:      make(map[uuid.UUID]*model.Quiz),
		completions:  make(map[uuid.UUID]map[uuid.UUID]bool),
		bestPercents: make(map[uuid.UUID]map[uuid.UUID]int),
	}
}

func (r *fakeContentRepo) GetLesson(_ context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, ok := r.lessons[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return lesson, nil
}

func (r *fakeContentRepo) GetQuiz(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return quiz, nil
}

func (r *fakeContentRepo) LessonIDsInModule(_ context.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, lesson := range r.lessons {
		if lesson.ModuleID == moduleID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeContentRepo) ChildQuizIDs(_ context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, quiz := range r.quizzes {
		if quiz.ParentID != nil && *quiz.ParentID == parentID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeContentRepo) RecordLessonCompletion(_ context.Context, userID, lessonID uuid.UUID) (bool, error) {
	if r.completions[userID] == nil {
		r.completions[userID] = make(map[uuid.UUID]bool)
	}
	if r.completions[userID][lessonID] {
		return false, nil
	}
	r.completions[userID][lessonID] = true
	return true, nil
}

func (r *fakeContentRepo) CompletedLessonIDs(_ context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) (int64, error) {
	var count int64
	for _, id := range lessonIDs {
		if r.completions[userID][id] {
			count++
		}
	}
	return count, nil
}

func (r *fakeContentRepo) RecordQuizAttempt(_ context.Context, attempt *model.QuizAttempt) error {
	if r.bestPercents[attempt.UserID] == nil {
		r.bestPercents[attempt.UserID] = make(map[uuid.UUID]int)
	}
	if attempt.Percent > r.bestPercents[attempt.UserID][attempt.QuizID] {
		r.bestPercents[attempt.UserID][attempt.QuizID] = attempt.Percent
	}
	return nil
}

func (r *fakeContentRepo) BestQuizPercent(_ context.Context, userID, quizID uuid.UUID) (int, error) {
	return r.bestPercents[userID][quizID], nil
}

func (r *fakeContentRepo) DeleteQuiz(_ context.Context, quizID uuid.UUID) error {
	delete(r.quizzes, quizID)
	return nil
}

func (r *fakeContentRepo) setBest(userID, quizID uuid.UUID, percent int) {
	if r.bestPercents[userID] == nil {
		r.bestPercents[userID] = make(map[uuid.UUID]int)
	}
	r.bestPercents[userID][quizID] = percent
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	user, ok := r.users[uid]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateTimezone(_ context.Context, id uuid.UUID, tz string) error {
	user, ok := r.users[id]
	if !ok {
		return apperror.ErrNotFound
	}
	user.Timezone = tz
	return nil
}

type fakeProgressionRepo struct {
	states  map[uuid.UUID]*model.ProgressionState
	xpLogs  []model.XPLog
	history []model.RankHistory
	weekly  *fakeWeeklyRepo // sink for unlock rows created inside Mutate
}

// fakeTx records rows the way the transactional writer would persist
// them, translating duplicate keys like the real repository does.
type fakeTx struct {
	repo *fakeProgressionRepo
}

func (t fakeTx) Create(value any) error {
	switch v := value.(type) {
	case *model.RankHistory:
		t.repo.history = append(t.repo.history, *v)
	case *model.XPLog:
		t.repo.xpLogs = append(t.repo.xpLogs, *v)
	case *model.DutyPassUnlock:
		if t.repo.weekly == nil {
			return nil
		}
		if err := t.repo.weekly.CreatePassUnlock(context.Background(), v); err != nil {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func newFakeProgressionRepo() *fakeProgressionRepo {
	return &fakeProgressionRepo{states: make(map[uuid.UUID]*model.ProgressionState)}
}

func (r *fakeProgressionRepo) GetState(_ context.Context, userID uuid.UUID) (*model.ProgressionState, error) {
	state, ok := r.states[userID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return state, nil
}

func (r *fakeProgressionRepo) GetOrCreateState(_ context.Context, userID uuid.UUID) (*model.ProgressionState, error) {
	if state, ok := r.states[userID]; ok {
		return state, nil
	}
	state := &model.ProgressionState{UserID: userID, CurrentRank: RankNewcomer, HighestRank: RankNewcomer}
	r.states[userID] = state
	return state, nil
}

func (r *fakeProgressionRepo) Mutate(ctx context.Context, userID uuid.UUID, fn func(tx repository.TxWriter, state *model.ProgressionState) error) error {
	state, err := r.GetOrCreateState(ctx, userID)
	if err != nil {
		return err
	}
	return fn(fakeTx{repo: r}, state)
}

func (r *fakeProgressionRepo) ApplyXPDelta(ctx context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) (*model.ProgressionState, error) {
	state, err := r.GetOrCreateState(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.TotalXP += amount
	if state.TotalXP < 0 {
		state.TotalXP = 0
	}
	r.xpLogs = append(r.xpLogs, model.XPLog{UserID: userID, Amount: amount, SourceTag: sourceTag})
	return state, nil
}

func (r *fakeProgressionRepo) ListActiveStates(context.Context) ([]model.ProgressionState, error) {
	var out []model.ProgressionState
	for _, s := range r.states {
		out = append(out, *s)
	}
	// Same ordering contract as the real repo.
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeProgressionRepo) RankHistoryForUser(_ context.Context, userID uuid.UUID, limit int) ([]model.RankHistory, error) {
	var out []model.RankHistory
	for _, h := range r.history {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAchievementRepo struct {
	catalog []model.Achievement
	grants  map[uuid.UUID]map[uuid.UUID]model.UserAchievement
}

func newFakeAchievementRepo(catalog ...model.Achievement) *fakeAchievementRepo {
	return &fakeAchievementRepo{
		catalog: catalog,
		grants:  make(map[uuid.UUID]map[uuid.UUID]model.UserAchievement),
	}
}

func (r *fakeAchievementRepo) All(context.Context) ([]model.Achievement, error) {
	return r.catalog, nil
}

func (r *fakeAchievementRepo) GrantedIDs(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	granted := make(map[uuid.UUID]bool)
	for id := range r.grants[userID] {
		granted[id] = true
	}
	return granted, nil
}

func (r *fakeAchievementRepo) GrantsForUser(_ context.Context, userID uuid.UUID) ([]model.UserAchievement, error) {
	var out []model.UserAchievement
	for _, g := range r.grants[userID] {
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeAchievementRepo) Grant(_ context.Context, userID, achievementID uuid.UUID, xpAwarded int) (bool, error) {
	if r.grants[userID] == nil {
		r.grants[userID] = make(map[uuid.UUID]model.UserAchievement)
	}
	if _, exists := r.grants[userID][achievementID]; exists {
		return false, nil
	}
	r.grants[userID][achievementID] = model.UserAchievement{
		UserID: userID, AchievementID: achievementID, XPAwarded: xpAwarded, EarnedAt: time.Now(),
	}
	return true, nil
}

type weekKey struct {
	user uuid.UUID
	week time.Time
}

type fakeWeeklyRepo struct {
	progression *fakeProgressionRepo

	cycles    map[weekKey]*model.WeeklyCycle
	rows      map[weekKey]map[string]*model.QuestProgress
	unlocks   map[weekKey]map[string]bool
	rollovers int
}

func newFakeWeeklyRepo(progression *fakeProgressionRepo) *fakeWeeklyRepo {
	r := &fakeWeeklyRepo{
		progression: progression,
		cycles:      make(map[weekKey]*model.WeeklyCycle),
		rows:        make(map[weekKey]map[string]*model.QuestProgress),
		unlocks:     make(map[weekKey]map[string]bool),
	}
	progression.weekly = r
	return r
}

func (r *fakeWeeklyRepo) key(userID uuid.UUID, weekStart time.Time) weekKey {
	return weekKey{user: userID, week: weekStart.UTC()}
}

func (r *fakeWeeklyRepo) GetCycle(_ context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error) {
	cycle, ok := r.cycles[r.key(userID, weekStart)]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return cycle, nil
}

func (r *fakeWeeklyRepo) Rollover(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error) {
	r.rollovers++
	state, err := r.progression.GetOrCreateState(ctx, userID)
	if err != nil {
		return nil, err
	}
	ws := weekStart
	state.WeeklyCycleStart = &ws

	k := r.key(userID, weekStart)
	cycle := &model.WeeklyCycle{UserID: userID, WeekStart: weekStart}
	r.cycles[k] = cycle
	r.rows[k] = make(map[string]*model.QuestProgress)
	for day, game := range model.GameForDay {
		r.rows[k][day] = &model.QuestProgress{
			UserID: userID, WeekStart: weekStart, Day: day,
			GameType: game, LivesRemaining: model.DefaultLives[game],
		}
	}
	return cycle, nil
}

func (r *fakeWeeklyRepo) IncrementQuestsCompleted(_ context.Context, userID uuid.UUID, weekStart time.Time) error {
	cycle, ok := r.cycles[r.key(userID, weekStart)]
	if !ok {
		return apperror.ErrNotFound
	}
	cycle.QuestsCompleted++
	return nil
}

func (r *fakeWeeklyRepo) QuestRows(_ context.Context, userID uuid.UUID, weekStart time.Time) ([]model.QuestProgress, error) {
	var out []model.QuestProgress
	for _, row := range r.rows[r.key(userID, weekStart)] {
		out = append(out, *row)
	}
	return out, nil
}

func (r *fakeWeeklyRepo) QuestRow(_ context.Context, userID uuid.UUID, weekStart time.Time, day string) (*model.QuestProgress, error) {
	row, ok := r.rows[r.key(userID, weekStart)][day]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeWeeklyRepo) SaveQuestRow(_ context.Context, userID uuid.UUID, row *model.QuestProgress) error {
	if row.UserID != userID {
		return apperror.ErrIntegrity
	}
	k := r.key(userID, row.WeekStart)
	if r.rows[k] == nil {
		r.rows[k] = make(map[string]*model.QuestProgress)
	}
	copied := *row
	r.rows[k][row.Day] = &copied
	return nil
}

func (r *fakeWeeklyRepo) CreatePassUnlock(_ context.Context, unlock *model.DutyPassUnlock) error {
	k := r.key(unlock.UserID, unlock.WeekStart)
	if r.unlocks[k] == nil {
		r.unlocks[k] = make(map[string]bool)
	}
	if r.unlocks[k][unlock.Day] {
		return apperror.ErrConflict
	}
	r.unlocks[k][unlock.Day] = true
	return nil
}

func (r *fakeWeeklyRepo) HasPassUnlock(_ context.Context, userID uuid.UUID, weekStart time.Time, day string) (bool, error) {
	return r.unlocks[r.key(userID, weekStart)][day], nil
}

type xpAward struct {
	userID    uuid.UUID
	amount    int
	sourceTag string
	refID     string
	refTable  string
}

type fakeXP struct {
	awards []xpAward
}

func (f *fakeXP) Award(_ context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) error {
	f.awards = append(f.awards, xpAward{userID: userID, amount: amount, sourceTag: sourceTag, refID: refID, refTable: refTable})
	return nil
}

func (f *fakeXP) CompleteLesson(context.Context, uuid.UUID, uuid.UUID) (*LessonResult, error) {
	return &LessonResult{}, nil
}

func (f *fakeXP) CompleteQuiz(context.Context, uuid.UUID, uuid.UUID, int, int) (*QuizResult, error) {
	return &QuizResult{}, nil
}

func (f *fakeXP) Flush() {}
