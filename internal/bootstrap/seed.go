package bootstrap

import (
	"encoding/json"
	"log"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/internal/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []model.Role{
		{Name: model.RoleAdmin, Description: "Super administrator"},
		{Name: model.RoleStudent, Description: "Student"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&model.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedAdminUser creates the dev admin account. Never enabled in
// production deployments; the login credentials are only printed here.
func SeedAdminUser(db *gorm.DB) error {
	var adminRole model.Role
	if err := db.Where("name = ?", model.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).
		Where("email = ?", "admin@civicquest.local").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "admin123"
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Username:     "admin",
		Email:        "admin@civicquest.local",
		PasswordHash: string(hashedPasswordBytes),
		RoleID:       &adminRole.ID,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Println("   Email: admin@civicquest.local")
	log.Println("   Password: admin123")

	return nil
}

// SeedAchievements installs the static achievement catalog. Inserts are
// keyed by name so re-running the seed is harmless; badge-milestone
// targets are recomputed live and never stored here.
func SeedAchievements(db *gorm.DB) error {
	learningClass, _ := json.Marshal(model.MilestoneCriteria{BadgeClass: model.BadgeClassLearning})
	quizClass, _ := json.Marshal(model.MilestoneCriteria{BadgeClass: model.BadgeClassQuiz})

	catalog := []model.Achievement{
		{Name: "Civic Identity", Description: "Complete your profile", Type: model.AchievementProfile,
			CriteriaType: model.CriteriaProfileComplete, XPReward: 25},

		{Name: "Registered Citizen", Description: "Reach the citizen rank", Type: model.AchievementRank,
			CriteriaType: model.CriteriaRankReached, CriteriaValue: service.RankCitizen, XPReward: 0},
		{Name: "Community Advocate", Description: "Reach the advocate rank", Type: model.AchievementRank,
			CriteriaType: model.CriteriaRankReached, CriteriaValue: service.RankAdvocate, XPReward: 0},
		{Name: "Grassroots Organizer", Description: "Reach the organizer rank", Type: model.AchievementRank,
			CriteriaType: model.CriteriaRankReached, CriteriaValue: service.RankOrganizer, XPReward: 0},
		{Name: "City Councilor", Description: "Reach the councilor rank", Type: model.AchievementRank,
			CriteriaType: model.CriteriaRankReached, CriteriaValue: service.RankCouncilor, XPReward: 0},
		{Name: "Statesman", Description: "Reach the statesman rank", Type: model.AchievementRank,
			CriteriaType: model.CriteriaRankReached, CriteriaValue: service.RankStatesman, XPReward: 0},

		{Name: "Village Elder", Description: "Hold a top-10 leaderboard position", Type: model.AchievementStarRank,
			CriteriaType: model.CriteriaHighestRank, CriteriaValue: service.RankElder, XPReward: 0},
		{Name: "Deputy Chief", Description: "Hold a top-3 leaderboard position", Type: model.AchievementSpecial,
			CriteriaType: model.CriteriaHighestRank, CriteriaValue: service.RankDeputy, XPReward: 0},
		{Name: "Chief", Description: "Hold the #1 leaderboard position", Type: model.AchievementSpecial,
			CriteriaType: model.CriteriaHighestRank, CriteriaValue: service.RankChief, XPReward: 0},

		{Name: "First Steps", Description: "Earn your first learning badge", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeStarter, CriteriaData: learningClass, XPReward: 50},
		{Name: "Dedicated Learner", Description: "Earn half of all learning badges", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeMaster, CriteriaData: learningClass, XPReward: 150},
		{Name: "Curriculum Legend", Description: "Earn every learning badge", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeLegend, CriteriaData: learningClass, XPReward: 400},
		{Name: "Quiz Novice", Description: "Earn your first quiz badge", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeStarter, CriteriaData: quizClass, XPReward: 50},
		{Name: "Quiz Master", Description: "Earn half of all quiz badges", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeMaster, CriteriaData: quizClass, XPReward: 150},
		{Name: "Quiz Legend", Description: "Earn every quiz badge", Type: model.AchievementBadgeMilestone,
			CriteriaType: model.CriteriaBadgeLegend, CriteriaData: quizClass, XPReward: 400},
	}

	for _, achievement := range catalog {
		var count int64
		if err := db.Model(&model.Achievement{}).
			Where("name = ?", achievement.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&achievement).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
