package repository

import (
	"context"
	"errors"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeRepository interface {
	All(ctx context.Context) ([]model.Badge, error)
	ByTrigger(ctx context.Context, triggerType, triggerValue string) ([]model.Badge, error)
	GrantedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	GrantsForUser(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error)
	// Grant inserts the (user, badge) row. A duplicate grant is collapsed
	// silently: awarding is idempotent. Returns true when the row was new.
	Grant(ctx context.Context, userID, badgeID uuid.UUID) (bool, error)
	Delete(ctx context.Context, badgeID uuid.UUID) error
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) All(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.db.WithContext(ctx).Preload("Prerequisites").Find(&badges).Error
	return badges, err
}

func (r *badgeRepository) ByTrigger(ctx context.Context, triggerType, triggerValue string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.db.WithContext(ctx).Preload("Prerequisites").
		Where("trigger_type = ? AND trigger_value = ?", triggerType, triggerValue).
		Find(&badges).Error
	return badges, err
}

func (r *badgeRepository) GrantedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ?", userID).Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, err
	}
	granted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		granted[id] = true
	}
	return granted, nil
}

func (r *badgeRepository) GrantsForUser(ctx context.Context, userID uuid.UUID) ([]model.UserBadge, error) {
	var grants []model.UserBadge
	err := r.db.WithContext(ctx).Preload("Badge").
		Where("user_id = ?", userID).Order("earned_at DESC").Find(&grants).Error
	return grants, err
}

func (r *badgeRepository) Grant(ctx context.Context, userID, badgeID uuid.UUID) (bool, error) {
	grant := model.UserBadge{UserID: userID, BadgeID: badgeID}
	err := r.db.WithContext(ctx).Create(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *badgeRepository) Delete(ctx context.Context, badgeID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Badge{}, "id = ?", badgeID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
