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

// ProgressionRepository owns the per-user aggregate. Every mutating
// method takes the row lock first so a population-wide rank batch and a
// concurrent XP award for the same user serialize instead of interleaving.
type ProgressionRepository interface {
	GetState(ctx context.Context, userID uuid.UUID) (*model.ProgressionState, error)
	GetOrCreateState(ctx context.Context, userID uuid.UUID) (*model.ProgressionState, error)
	// Mutate runs fn against the row-locked state inside one transaction
	// and persists the state fn leaves behind. Rows fn creates through the
	// writer commit or roll back together with the state.
	Mutate(ctx context.Context, userID uuid.UUID, fn func(tx TxWriter, state *model.ProgressionState) error) error
	// ApplyXPDelta atomically adds amount to total_xp and appends an XPLog
	// row. Negative deltas come only from internal revocation paths; the
	// total is floored at zero.
	ApplyXPDelta(ctx context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) (*model.ProgressionState, error)
	ListActiveStates(ctx context.Context) ([]model.ProgressionState, error)
	RankHistoryForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.RankHistory, error)
}

// TxWriter persists rows created alongside a state mutation. Duplicate
// unique keys surface as gorm.ErrDuplicatedKey.
type TxWriter interface {
	Create(value any) error
}

type gormTxWriter struct {
	tx *gorm.DB
}

func (w gormTxWriter) Create(value any) error {
	return w.tx.Create(value).Error
}

type progressionRepository struct {
	db *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) ProgressionRepository {
	return &progressionRepository{db: db}
}

func (r *progressionRepository) GetState(ctx context.Context, userID uuid.UUID) (*model.ProgressionState, error) {
	var state model.ProgressionState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

func (r *progressionRepository) GetOrCreateState(ctx context.Context, userID uuid.UUID) (*model.ProgressionState, error) {
	state := model.ProgressionState{UserID: userID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&state).Error
	if err != nil {
		return nil, err
	}
	return r.GetState(ctx, userID)
}

func (r *progressionRepository) Mutate(ctx context.Context, userID uuid.UUID, fn func(tx TxWriter, state *model.ProgressionState) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state model.ProgressionState
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&state).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return err
		}
		if state.UserID != userID {
			return apperror.ErrIntegrity
		}
		if err := fn(gormTxWriter{tx: tx}, &state); err != nil {
			return err
		}
		return tx.Save(&state).Error
	})
}

func (r *progressionRepository) ApplyXPDelta(ctx context.Context, userID uuid.UUID, amount int, sourceTag, refID, refTable string) (*model.ProgressionState, error) {
	// First event for a user may arrive before anything else touched
	// their aggregate.
	if _, err := r.GetOrCreateState(ctx, userID); err != nil {
		return nil, err
	}
	var out *model.ProgressionState
	err := r.Mutate(ctx, userID, func(tx TxWriter, state *model.ProgressionState) error {
		state.TotalXP += amount
		if state.TotalXP < 0 {
			state.TotalXP = 0
		}
		logEntry := model.XPLog{
			UserID:         userID,
			Amount:         amount,
			SourceTag:      sourceTag,
			ReferenceID:    refID,
			ReferenceTable: refTable,
		}
		if err := tx.Create(&logEntry); err != nil {
			return err
		}
		out = state
		return nil
	})
	return out, err
}

func (r *progressionRepository) ListActiveStates(ctx context.Context) ([]model.ProgressionState, error) {
	var states []model.ProgressionState
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = progression_states.user_id AND users.is_active").
		Order("progression_states.total_xp DESC, users.created_at ASC").
		Find(&states).Error
	return states, err
}

func (r *progressionRepository) RankHistoryForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.RankHistory, error) {
	var entries []model.RankHistory
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
