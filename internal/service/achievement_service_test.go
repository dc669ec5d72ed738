package service

import (
	"context"
	"encoding/json"
	"testing"

	"anoa.com/civicquest/internal/model"
	"github.com/google/uuid"
)

func TestMilestoneTarget(t *testing.T) {
	tests := []struct {
		criteria string
		total    int
		want     int
	}{
		{model.CriteriaBadgeStarter, 10, 1},
		{model.CriteriaBadgeStarter, 1, 1},
		{model.CriteriaBadgeMaster, 10, 5},
		{model.CriteriaBadgeMaster, 7, 4}, // ceil(7/2)
		{model.CriteriaBadgeMaster, 1, 1},
		{model.CriteriaBadgeLegend, 10, 10},
		{model.CriteriaBadgeLegend, 3, 3},
	}
	for _, tt := range tests {
		if got := milestoneTarget(tt.criteria, tt.total); got != tt.want {
			t.Errorf("milestoneTarget(%s, %d) = %d, want %d", tt.criteria, tt.total, got, tt.want)
		}
	}
}

func quizClassData(t *testing.T) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(model.MilestoneCriteria{BadgeClass: model.BadgeClassQuiz})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestBadgeLegendTracksLiveCatalog(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &model.User{ID: userID, Username: "tester"}

	quizBadgeA := model.Badge{ID: uuid.New(), Name: "quiz-a", TriggerType: model.TriggerQuizMastery}
	quizBadgeB := model.Badge{ID: uuid.New(), Name: "quiz-b", TriggerType: model.TriggerQuizMastery}

	legend := model.Achievement{
		ID: uuid.New(), Name: "quiz-legend",
		Type:         model.AchievementBadgeMilestone,
		CriteriaType: model.CriteriaBadgeLegend,
		CriteriaData: quizClassData(t),
	}

	badges := newFakeBadgeRepo(quizBadgeA, quizBadgeB)
	achievements := newFakeAchievementRepo(legend)
	progression := newFakeProgressionRepo()
	users := newFakeUserRepo(user)

	svc := NewAchievementService(achievements, badges, progression, users)

	// Both quiz badges earned against a 2-badge catalog: legend holds.
	badges.Grant(ctx, userID, quizBadgeA.ID)
	badges.Grant(ctx, userID, quizBadgeB.ID)

	grants, err := svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 || grants[0].AchievementID != legend.ID {
		t.Fatalf("expected quiz-legend grant, got %v", grants)
	}

	// Grants are permanent, so a grown catalog does not revoke. But a
	// second user at 2 of 3 must not qualify.
	badges.badges = append(badges.badges, model.Badge{
		ID: uuid.New(), Name: "quiz-c", TriggerType: model.TriggerQuizMastery,
	})

	otherID := uuid.New()
	users.Create(ctx, &model.User{ID: otherID, Username: "other"})
	badges.Grant(ctx, otherID, quizBadgeA.ID)
	badges.Grant(ctx, otherID, quizBadgeB.ID)

	grants, err = svc.VerifyForUser(ctx, otherID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 0 {
		t.Fatalf("2 of 3 quiz badges must not satisfy legend, got %v", grants)
	}
}

func TestProfileAchievementRequiresCompleteProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &model.User{ID: userID, Username: "tester"}

	profileAch := model.Achievement{
		ID: uuid.New(), Name: "civic-identity",
		Type:         model.AchievementProfile,
		CriteriaType: model.CriteriaProfileComplete,
		XPReward:     25,
	}

	progression := newFakeProgressionRepo()
	achievements := newFakeAchievementRepo(profileAch)
	users := newFakeUserRepo(user)
	svc := NewAchievementService(achievements, newFakeBadgeRepo(), progression, users)

	grants, err := svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 0 {
		t.Fatalf("incomplete profile must not grant, got %v", grants)
	}

	avatar := "https://cdn.example/avatar.png"
	bio := "hello"
	user.Profile = &model.Profile{UserID: userID, FullName: "Tester", AvatarURL: &avatar, Bio: &bio}

	grants, err = svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 || grants[0].XPAwarded != 25 {
		t.Fatalf("expected profile grant with 25 XP, got %v", grants)
	}

	// The XP reward lands on the progression state.
	state, _ := progression.GetOrCreateState(ctx, userID)
	if state.TotalXP != 25 {
		t.Errorf("total xp = %d, want 25", state.TotalXP)
	}

	// Re-verification is idempotent.
	grants, err = svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 0 {
		t.Fatalf("second verification must grant nothing, got %v", grants)
	}
}

func TestStarAchievementKeysOffHighestRank(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &model.User{ID: userID, Username: "tester"}

	chiefAch := model.Achievement{
		ID: uuid.New(), Name: "chief",
		Type:          model.AchievementSpecial,
		CriteriaType:  model.CriteriaHighestRank,
		CriteriaValue: RankChief,
	}

	progression := newFakeProgressionRepo()
	achievements := newFakeAchievementRepo(chiefAch)
	users := newFakeUserRepo(user)
	svc := NewAchievementService(achievements, newFakeBadgeRepo(), progression, users)

	state, _ := progression.GetOrCreateState(ctx, userID)
	state.TotalXP = 25000
	state.CurrentRank = RankStatesman
	state.HighestRank = RankStatesman

	grants, err := svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 0 {
		t.Fatalf("statesman must not earn chief, got %v", grants)
	}

	// Held #1 at some point; current rank already slipped back.
	state.HighestRank = RankChief
	state.CurrentRank = RankDeputy

	grants, err = svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 || grants[0].AchievementID != chiefAch.ID {
		t.Fatalf("chief high-water mark must grant, got %v", grants)
	}
}

func TestRankAchievementUsesCurrentRank(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &model.User{ID: userID, Username: "tester"}

	advocateAch := model.Achievement{
		ID: uuid.New(), Name: "advocate",
		Type:          model.AchievementRank,
		CriteriaType:  model.CriteriaRankReached,
		CriteriaValue: RankAdvocate,
	}

	progression := newFakeProgressionRepo()
	achievements := newFakeAchievementRepo(advocateAch)
	users := newFakeUserRepo(user)
	svc := NewAchievementService(achievements, newFakeBadgeRepo(), progression, users)

	state, _ := progression.GetOrCreateState(ctx, userID)
	state.CurrentRank = RankCitizen

	grants, err := svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 0 {
		t.Fatalf("citizen must not earn advocate, got %v", grants)
	}

	state.CurrentRank = RankOrganizer // above advocate also satisfies
	grants, err = svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 {
		t.Fatalf("organizer should earn advocate, got %v", grants)
	}
}

func TestAchievementRewardCrossingThresholdRefreshesRank(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	avatar := "https://cdn.example/avatar.png"
	bio := "hello"
	user := &model.User{
		ID: userID, Username: "tester",
		Profile: &model.Profile{UserID: userID, FullName: "Tester", AvatarURL: &avatar, Bio: &bio},
	}

	profileAch := model.Achievement{
		ID: uuid.New(), Name: "civic-identity",
		Type:         model.AchievementProfile,
		CriteriaType: model.CriteriaProfileComplete,
		XPReward:     50,
	}

	progression := newFakeProgressionRepo()
	achievements := newFakeAchievementRepo(profileAch)
	users := newFakeUserRepo(user)
	svc := NewAchievementService(achievements, newFakeBadgeRepo(), progression, users)

	state, _ := progression.GetOrCreateState(ctx, userID)
	state.TotalXP = 80

	grants, err := svc.VerifyForUser(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected profile grant, got %v", grants)
	}

	// 80 + 50 crosses the citizen threshold; the reward path refreshes
	// the sequential rank without waiting for the next population pass.
	state, _ = progression.GetState(ctx, userID)
	if state.TotalXP != 130 {
		t.Fatalf("total xp = %d, want 130", state.TotalXP)
	}
	if state.CurrentRank != RankCitizen {
		t.Fatalf("rank = %q, want %q", state.CurrentRank, RankCitizen)
	}
	if state.HighestRank != RankCitizen {
		t.Fatalf("highest rank = %q, want %q", state.HighestRank, RankCitizen)
	}
	if len(progression.history) != 1 || progression.history[0].Rank != RankCitizen {
		t.Fatalf("history = %v, want one citizen row", progression.history)
	}
	if progression.history[0].XPAtTime != 130 {
		t.Fatalf("history xp = %d, want 130", progression.history[0].XPAtTime)
	}
}
