package repository

import (
	"context"
	"errors"

	"anoa.com/civicquest/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AchievementRepository interface {
	All(ctx context.Context) ([]model.Achievement, error)
	GrantedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	GrantsForUser(ctx context.Context, userID uuid.UUID) ([]model.UserAchievement, error)
	// Grant is idempotent: a duplicate (user, achievement) insert is
	// collapsed and reported as not-new.
	Grant(ctx context.Context, userID, achievementID uuid.UUID, xpAwarded int) (bool, error)
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) All(ctx context.Context) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.db.WithContext(ctx).Find(&achievements).Error
	return achievements, err
}

func (r *achievementRepository) GrantedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.UserAchievement{}).
		Where("user_id = ?", userID).Pluck("achievement_id", &ids).Error
	if err != nil {
		return nil, err
	}
	granted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		granted[id] = true
	}
	return granted, nil
}

func (r *achievementRepository) GrantsForUser(ctx context.Context, userID uuid.UUID) ([]model.UserAchievement, error) {
	var grants []model.UserAchievement
	err := r.db.WithContext(ctx).Preload("Achievement").
		Where("user_id = ?", userID).Order("earned_at DESC").Find(&grants).Error
	return grants, err
}

func (r *achievementRepository) Grant(ctx context.Context, userID, achievementID uuid.UUID, xpAwarded int) (bool, error) {
	grant := model.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		XPAwarded:     xpAwarded,
	}
	err := r.db.WithContext(ctx).Create(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
