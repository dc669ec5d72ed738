package model

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyCycle is the per-(user, week) aggregate. A new row is created at
// every cycle rollover; rows for past weeks are superseded, never edited.
type WeeklyCycle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cycle_user_week,priority:1;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	WeekStart time.Time `gorm:"uniqueIndex:idx_cycle_user_week,priority:2;not null" json:"week_start"`

	QuestsCompleted int       `gorm:"not null;default:0" json:"quests_completed"`
	RewardClaimed   bool      `gorm:"not null;default:false" json:"reward_claimed"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Quest game types, one per weekday.
const (
	GameQuiz      = "quiz"       // monday
	GamePuzzle    = "puzzle"     // tuesday
	GameWordHunt  = "word_hunt"  // wednesday
	GameTimeline  = "timeline"   // thursday
	GameSimulator = "simulator"  // friday
)

// GameForDay maps a quest day to its game type.
var GameForDay = map[string]string{
	"monday":    GameQuiz,
	"tuesday":   GamePuzzle,
	"wednesday": GameWordHunt,
	"thursday":  GameTimeline,
	"friday":    GameSimulator,
}

// DefaultLives holds the per-game-type lives restored at cycle reset.
var DefaultLives = map[string]int{
	GameQuiz:      0,
	GamePuzzle:    3,
	GameWordHunt:  3,
	GameTimeline:  0,
	GameSimulator: 5,
}

// QuestProgress is one weekday's quest record within a cycle. The unique
// index keeps at most one active record per (user, week, day); resets
// create rows for the new week instead of editing old ones.
type QuestProgress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_quest_user_week_day,priority:1;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	WeekStart time.Time `gorm:"uniqueIndex:idx_quest_user_week_day,priority:2;not null" json:"week_start"`
	Day       string    `gorm:"size:10;uniqueIndex:idx_quest_user_week_day,priority:3;not null" json:"day"`
	GameType  string    `gorm:"size:20;not null" json:"game_type"`

	IsCompleted    bool       `gorm:"not null;default:false" json:"is_completed"`
	IsFailed       bool       `gorm:"not null;default:false" json:"is_failed"`
	LivesRemaining int        `gorm:"not null;default:0" json:"lives_remaining"`
	Score          int        `gorm:"not null;default:0" json:"score"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DutyPassUnlock exists only when a pass was spent to unlock a missed day
// in the current cycle. The unique index rejects a second spend for the
// same (user, week, day).
type DutyPassUnlock struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_pass_user_week_day,priority:1;not null" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	WeekStart  time.Time `gorm:"uniqueIndex:idx_pass_user_week_day,priority:2;not null" json:"week_start"`
	Day        string    `gorm:"size:10;uniqueIndex:idx_pass_user_week_day,priority:3;not null" json:"day"`
	UnlockedAt time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}
