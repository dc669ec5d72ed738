package dto

import "time"

// RankStatus mirrors the rank calculator's output for API responses.
type RankStatus struct {
	Rank      string  `json:"rank"`
	Track     string  `json:"track"`
	NextRank  string  `json:"next_rank"`
	CurrentXP int     `json:"current_xp"`
	TargetXP  int     `json:"target_xp"`
	Progress  float64 `json:"progress"`
	Position  *int    `json:"position,omitempty"`
}

type StreakStatus struct {
	Current             int        `json:"current"`
	Longest             int        `json:"longest"`
	DutyPassesAvailable int        `json:"duty_passes_available"`
	LastCompletedDay    *string    `json:"last_completed_day,omitempty"`
	LastCompletionAt    *time.Time `json:"last_completion_at,omitempty"`
}

// ProgressionStatusResponse is the combined per-user read model.
type ProgressionStatusResponse struct {
	TotalXP     int          `json:"total_xp"`
	HighestRank string       `json:"highest_rank"`
	Rank        RankStatus   `json:"rank_status"`
	Streak      StreakStatus `json:"streak"`
}

type RankHistoryEntry struct {
	Rank      string    `json:"rank"`
	Position  *int      `json:"position,omitempty"`
	XPAtTime  int       `json:"xp_at_time"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestDayStatus is one day of the weekly availability map.
type QuestDayStatus struct {
	Day            string `json:"day"`
	GameType       string `json:"game_type"`
	Reason         string `json:"reason"`
	LivesRemaining int    `json:"lives_remaining"`
	NeedsException bool   `json:"needs_exception"`
}

type WeeklyAvailabilityResponse struct {
	WeekStart       time.Time        `json:"week_start"`
	QuestsCompleted int              `json:"quests_completed"`
	Days            []QuestDayStatus `json:"days"`
}
