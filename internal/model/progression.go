package model

import (
	"time"

	"github.com/google/uuid"
)

// ProgressionState is the per-user aggregate every engine component
// mutates. UI code never writes it directly.
type ProgressionState struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User   User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	TotalXP     int    `gorm:"not null;default:0" json:"total_xp"`
	CurrentRank string `gorm:"size:30;not null;default:newcomer" json:"current_rank"`
	// HighestRank only ever moves forward; "Former Chief" style
	// achievements are anchored to it and survive demotion.
	HighestRank         string `gorm:"size:30;not null;default:newcomer" json:"highest_rank"`
	LeaderboardPosition *int   `json:"leaderboard_position,omitempty"`

	CurrentStreak           int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak           int        `gorm:"not null;default:0" json:"longest_streak"`
	LastQuestCompletionAt   *time.Time `json:"last_quest_completion_at,omitempty"`
	LastCompletedQuestDay   *string    `gorm:"size:10" json:"last_completed_quest_day,omitempty"`
	DutyPassesAvailable     int        `gorm:"not null;default:0" json:"duty_passes_available"`
	WeeklyCycleStart        *time.Time `json:"weekly_cycle_start,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RankHistory is the append-only audit log. One row is written per user
// per recalculation, rank change or not.
type RankHistory struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index:idx_rank_history_user;not null" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Rank      string     `gorm:"size:30;not null" json:"rank"`
	Position  *int       `json:"position,omitempty"`
	XPAtTime  int        `gorm:"not null" json:"xp_at_time"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

// XPLog records every XP delta with its source for audit and analytics.
type XPLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index:idx_xp_user_date,priority:1;not null" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Amount         int       `gorm:"not null" json:"amount"`
	SourceTag      string    `gorm:"size:50;not null" json:"source_tag"` // 'lesson_complete', 'quiz_complete', 'quest_day', 'achievement_reward'
	ReferenceID    string    `gorm:"size:36" json:"reference_id"`
	ReferenceTable string    `gorm:"size:50" json:"reference_table"`
	CreatedAt      time.Time `gorm:"index:idx_xp_user_date,priority:2" json:"created_at"`
}
