package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WeeklyRepository interface {
	GetCycle(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error)
	// Rollover stamps the new week start on the user's progression state,
	// creates the new cycle record and the fresh per-day quest rows, all
	// in one transaction. A partial reset is an invariant violation, so
	// any failure rolls the whole thing back.
	Rollover(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error)
	IncrementQuestsCompleted(ctx context.Context, userID uuid.UUID, weekStart time.Time) error

	QuestRows(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]model.QuestProgress, error)
	QuestRow(ctx context.Context, userID uuid.UUID, weekStart time.Time, day string) (*model.QuestProgress, error)
	// SaveQuestRow persists a submission against the unique
	// (user, week, day) key. A concurrent writer surfaces as
	// apperror.ErrConflict for the retry combinator; an ownership
	// mismatch on the fetched row is apperror.ErrIntegrity.
	SaveQuestRow(ctx context.Context, userID uuid.UUID, row *model.QuestProgress) error

	CreatePassUnlock(ctx context.Context, unlock *model.DutyPassUnlock) error
	HasPassUnlock(ctx context.Context, userID uuid.UUID, weekStart time.Time, day string) (bool, error)
}

type weeklyRepository struct {
	db *gorm.DB
}

func NewWeeklyRepository(db *gorm.DB) WeeklyRepository {
	return &weeklyRepository{db: db}
}

func (r *weeklyRepository) GetCycle(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error) {
	var cycle model.WeeklyCycle
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &cycle, nil
}

func (r *weeklyRepository) Rollover(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*model.WeeklyCycle, error) {
	var cycle model.WeeklyCycle
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ProgressionState{}).
			Where("user_id = ?", userID).
			Update("weekly_cycle_start", weekStart)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrNotFound
		}

		cycle = model.WeeklyCycle{UserID: userID, WeekStart: weekStart}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start"}},
			DoNothing: true,
		}).Create(&cycle).Error; err != nil {
			return err
		}

		// Fresh generation of per-day rows; rows from past weeks stay
		// untouched for analytics.
		for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
			game := model.GameForDay[day]
			row := model.QuestProgress{
				UserID:         userID,
				WeekStart:      weekStart,
				Day:            day,
				GameType:       game,
				LivesRemaining: model.DefaultLives[game],
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start"}, {Name: "day"}},
				DoNothing: true,
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetCycle(ctx, userID, weekStart)
}

func (r *weeklyRepository) IncrementQuestsCompleted(ctx context.Context, userID uuid.UUID, weekStart time.Time) error {
	return r.db.WithContext(ctx).Model(&model.WeeklyCycle{}).
		Where("user_id = ? AND week_start = ?", userID, weekStart).
		Update("quests_completed", gorm.Expr("quests_completed + 1")).Error
}

func (r *weeklyRepository) QuestRows(ctx context.Context, userID uuid.UUID, weekStart time.Time) ([]model.QuestProgress, error) {
	var rows []model.QuestProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ?", userID, weekStart).Find(&rows).Error
	return rows, err
}

func (r *weeklyRepository) QuestRow(ctx context.Context, userID uuid.UUID, weekStart time.Time, day string) (*model.QuestProgress, error) {
	var row model.QuestProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start = ? AND day = ?", userID, weekStart, day).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if row.UserID != userID {
		return nil, apperror.ErrIntegrity
	}
	return &row, nil
}

func (r *weeklyRepository) SaveQuestRow(ctx context.Context, userID uuid.UUID, row *model.QuestProgress) error {
	if row.UserID != userID {
		return apperror.ErrIntegrity
	}
	err := r.db.WithContext(ctx).Save(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrConflict
	}
	return err
}

func (r *weeklyRepository) CreatePassUnlock(ctx context.Context, unlock *model.DutyPassUnlock) error {
	err := r.db.WithContext(ctx).Create(unlock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.ErrConflict
	}
	return err
}

func (r *weeklyRepository) HasPassUnlock(ctx context.Context, userID uuid.UUID, weekStart time.Time, day string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DutyPassUnlock{}).
		Where("user_id = ? AND week_start = ? AND day = ?", userID, weekStart, day).
		Count(&count).Error
	return count > 0, err
}
