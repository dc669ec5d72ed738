package bootstrap

import (
	"anoa.com/civicquest/internal/model"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Profile{},
		&model.CourseModule{},
		&model.Lesson{},
		&model.Quiz{},
		&model.LessonCompletion{},
		&model.QuizAttempt{},
		&model.ProgressionState{},
		&model.RankHistory{},
		&model.XPLog{},
		&model.WeeklyCycle{},
		&model.QuestProgress{},
		&model.DutyPassUnlock{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Achievement{},
		&model.UserAchievement{},
	)
}
