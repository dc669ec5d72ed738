package repository

import (
	"context"
	"errors"

	"anoa.com/civicquest/internal/model"
	"anoa.com/civicquest/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContentRepository interface {
	GetLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	LessonIDsInModule(ctx context.Context, moduleID uuid.UUID) ([]uuid.UUID, error)
	ChildQuizIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error)

	// RecordLessonCompletion collapses duplicate submissions for the same
	// (user, lesson) onto one row; the second writer still sees success.
	// Returns true when the completion was new.
	RecordLessonCompletion(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)
	CompletedLessonIDs(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) (int64, error)
	RecordQuizAttempt(ctx context.Context, attempt *model.QuizAttempt) error
	BestQuizPercent(ctx context.Context, userID, quizID uuid.UUID) (int, error)

	// DeleteQuiz removes the quiz, cascade-deletes the badges that
	// trigger on it (grants go with them via FK) and converts child
	// quizzes to standalone ones.
	DeleteQuiz(ctx context.Context, quizID uuid.UUID) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) GetLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *contentRepository) GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

func (r *contentRepository) LessonIDsInModule(ctx context.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Lesson{}).
		Where("module_id = ?", moduleID).Pluck("id", &ids).Error
	return ids, err
}

func (r *contentRepository) ChildQuizIDs(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Quiz{}).
		Where("parent_id = ?", parentID).Pluck("id", &ids).Error
	return ids, err
}

func (r *contentRepository) RecordLessonCompletion(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	completion := model.LessonCompletion{UserID: userID, LessonID: lessonID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoNothing: true,
	}).Create(&completion)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contentRepository) CompletedLessonIDs(ctx context.Context, userID uuid.UUID, lessonIDs []uuid.UUID) (int64, error) {
	if len(lessonIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LessonCompletion{}).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Count(&count).Error
	return count, err
}

func (r *contentRepository) RecordQuizAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *contentRepository) BestQuizPercent(ctx context.Context, userID, quizID uuid.UUID) (int, error) {
	var best int
	err := r.db.WithContext(ctx).Model(&model.QuizAttempt{}).
		Select("COALESCE(MAX(percent), 0)").
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Scan(&best).Error
	return best, err
}

func (r *contentRepository) DeleteQuiz(ctx context.Context, quizID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Children become standalone quizzes, they are not deleted.
		if err := tx.Model(&model.Quiz{}).
			Where("parent_id = ?", quizID).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		// Badges that trigger on this quiz go away with their grants.
		if err := tx.Where("trigger_type IN ? AND trigger_value = ?",
			[]string{model.TriggerQuizMastery, model.TriggerParentQuizMastery},
			quizID.String()).Delete(&model.Badge{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Quiz{}, "id = ?", quizID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrNotFound
		}
		return nil
	})
}
