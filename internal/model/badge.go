package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Badge trigger types. Represented as a closed set with one handler per
// variant in the badge service, not string-keyed branching at call sites.
const (
	TriggerLessonComplete    = "lesson_complete"
	TriggerModuleComplete    = "module_complete"
	TriggerQuizMastery       = "quiz_mastery"
	TriggerParentQuizMastery = "parent_quiz_mastery"
	TriggerManual            = "manual"
)

const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Badge is a static catalog row, admin-managed and read-only to the
// engine.
type Badge struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	TriggerType string    `gorm:"size:30;index:idx_badge_trigger,priority:1;not null" json:"trigger_type"`
	// TriggerValue is the id of the triggering entity (lesson, module or
	// quiz), empty for manual badges.
	TriggerValue string    `gorm:"size:36;index:idx_badge_trigger,priority:2" json:"trigger_value"`
	Rarity       string    `gorm:"size:20;not null;default:common" json:"rarity"`
	IconURL      *string   `gorm:"type:text" json:"icon_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Prerequisites []Badge `gorm:"many2many:badge_prerequisites;constraint:OnDelete:CASCADE" json:"prerequisites,omitempty"`
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsLearningBadge reports whether the badge counts toward the learning
// milestone class; quiz-trigger badges form the other class.
func (b *Badge) IsLearningBadge() bool {
	return b.TriggerType == TriggerLessonComplete || b.TriggerType == TriggerModuleComplete
}

func (b *Badge) IsQuizBadge() bool {
	return b.TriggerType == TriggerQuizMastery || b.TriggerType == TriggerParentQuizMastery
}

// UserBadge is the unit of awarding: one row per (user, badge). The badge
// FK cascades so an admin deleting a badge removes its grants too.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_badge,priority:1;not null" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	BadgeID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_badge,priority:2;not null" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID;constraint:OnDelete:CASCADE" json:"badge"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
}
