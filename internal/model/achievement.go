package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Achievement families.
const (
	AchievementProfile        = "profile"
	AchievementRank           = "rank"
	AchievementStarRank       = "star_rank"
	AchievementSpecial        = "special_achievement"
	AchievementBadgeMilestone = "badge_milestone"
)

// Criteria types within a family.
const (
	CriteriaProfileComplete = "profile_complete"
	CriteriaRankReached     = "rank_reached"
	CriteriaHighestRank     = "highest_rank_reached"
	CriteriaBadgeStarter    = "badge_starter"
	CriteriaBadgeMaster     = "badge_master"
	CriteriaBadgeLegend     = "badge_legend"
)

// Badge classes referenced by milestone criteria data.
const (
	BadgeClassLearning = "learning"
	BadgeClassQuiz     = "quiz"
)

// MilestoneCriteria is the criteria_data payload for badge_milestone
// achievements. The completion target is never stored here; it is
// recomputed from the live catalog on every check.
type MilestoneCriteria struct {
	BadgeClass string `json:"badge_type"`
}

// Achievement is a static catalog row.
type Achievement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Type          string          `gorm:"size:30;index;not null" json:"type"`
	CriteriaType  string          `gorm:"size:40;not null" json:"criteria_type"`
	CriteriaValue string          `gorm:"size:50" json:"criteria_value"`
	CriteriaData  json.RawMessage `gorm:"type:jsonb" json:"criteria_data,omitempty"`
	XPReward      int             `gorm:"not null;default:0" json:"xp_reward"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// MilestoneClass decodes the badge class out of criteria_data for
// badge_milestone rows, defaulting to the learning class.
func (a *Achievement) MilestoneClass() string {
	var crit MilestoneCriteria
	if len(a.CriteriaData) > 0 {
		if err := json.Unmarshal(a.CriteriaData, &crit); err == nil && crit.BadgeClass != "" {
			return crit.BadgeClass
		}
	}
	return BadgeClassLearning
}

// UserAchievement records a grant; unique per (user, achievement).
// Special achievements are permanent once granted even if the triggering
// rank is later lost.
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID   `gorm:"type:uuid;uniqueIndex:idx_user_achievement,priority:1;not null" json:"user_id"`
	User          User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AchievementID uuid.UUID   `gorm:"type:uuid;uniqueIndex:idx_user_achievement,priority:2;not null" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID;constraint:OnDelete:CASCADE" json:"achievement"`
	XPAwarded     int         `gorm:"not null;default:0" json:"xp_awarded"`
	EarnedAt      time.Time   `gorm:"autoCreateTime" json:"earned_at"`
}
