package dto

// LeaderboardEntry is a single row of the cached leaderboard read
// model. Position is 1-based.
type LeaderboardEntry struct {
	Username   string     `json:"username"`
	Position   int        `json:"position"`
	TotalXP    int        `json:"total_xp"`
	RankStatus RankStatus `json:"rank_status"`
}
