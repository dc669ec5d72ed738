package service

import "math"

// RankStatus is the rank portion of a user's progression read model.
// The sequential rank is a pure function of total XP and never regresses;
// the star rank on top of it depends on leaderboard position and can.
type RankStatus struct {
	Rank      string  `json:"rank"`
	Track     string  `json:"track"` // "sequential" or "competitive"
	NextRank  string  `json:"next_rank"`
	CurrentXP int     `json:"current_xp"`
	TargetXP  int     `json:"target_xp"`
	Progress  float64 `json:"progress"` // percentage toward the next sequential rank
	Position  *int    `json:"position,omitempty"`
}

// Sequential ranks, ascending.
const (
	RankNewcomer  = "newcomer"
	RankCitizen   = "citizen"
	RankAdvocate  = "advocate"
	RankOrganizer = "organizer"
	RankCouncilor = "councilor"
	RankStatesman = "statesman"
)

// Star ranks, held only by users above the top sequential threshold and
// assigned by leaderboard position.
const (
	RankElder  = "elder"
	RankDeputy = "deputy"
	RankChief  = "chief"
)

// Sequential XP thresholds.
const (
	XPCitizen   = 100
	XPAdvocate  = 600
	XPOrganizer = 3000
	XPCouncilor = 8000
	XPStatesman = 20000
)

// Star-rank position cutoffs (1-based).
const (
	PositionChief  = 1
	PositionDeputy = 3
	PositionElder  = 10
)

// rankOrder is the total order over both tracks; highest-rank-ever
// comparisons and promotion detection go through it.
var rankOrder = map[string]int{
	RankNewcomer:  0,
	RankCitizen:   1,
	RankAdvocate:  2,
	RankOrganizer: 3,
	RankCouncilor: 4,
	RankStatesman: 5,
	RankElder:     6,
	RankDeputy:    7,
	RankChief:     8,
}

// RankValue returns the position of rank in the total order, -1 for an
// unknown rank name.
func RankValue(rank string) int {
	if v, ok := rankOrder[rank]; ok {
		return v
	}
	return -1
}

// RankAbove reports whether a outranks b.
func RankAbove(a, b string) bool {
	return RankValue(a) > RankValue(b)
}

// SequentialRank maps total XP onto the fixed threshold table.
func SequentialRank(totalXP int) string {
	switch {
	case totalXP >= XPStatesman:
		return RankStatesman
	case totalXP >= XPCouncilor:
		return RankCouncilor
	case totalXP >= XPOrganizer:
		return RankOrganizer
	case totalXP >= XPAdvocate:
		return RankAdvocate
	case totalXP >= XPCitizen:
		return RankCitizen
	default:
		return RankNewcomer
	}
}

// StarRank maps a 1-based leaderboard position onto the competitive
// track. Only meaningful for users whose XP has crossed the top
// sequential threshold; everyone else keeps their sequential rank.
func StarRank(position int) string {
	switch {
	case position == PositionChief:
		return RankChief
	case position <= PositionDeputy:
		return RankDeputy
	case position <= PositionElder:
		return RankElder
	default:
		return RankStatesman
	}
}

// EffectiveRank combines both tracks for one user.
func EffectiveRank(totalXP int, position *int) string {
	if totalXP >= XPStatesman && position != nil && *position > 0 {
		return StarRank(*position)
	}
	return SequentialRank(totalXP)
}

// StatusFor builds the rank read model for one user.
func StatusFor(totalXP int, position *int) RankStatus {
	status := RankStatus{
		Rank:      EffectiveRank(totalXP, position),
		Track:     "sequential",
		CurrentXP: totalXP,
		Position:  position,
	}
	if totalXP >= XPStatesman {
		status.Track = "competitive"
	}

	switch {
	case totalXP >= XPStatesman:
		status.NextRank = "Max Level"
		status.TargetXP = XPStatesman
		status.Progress = 100
	case totalXP >= XPCouncilor:
		status.NextRank = RankStatesman
		status.TargetXP = XPStatesman
		status.Progress = (float64(totalXP) / float64(XPStatesman)) * 100
	case totalXP >= XPOrganizer:
		status.NextRank = RankCouncilor
		status.TargetXP = XPCouncilor
		status.Progress = (float64(totalXP) / float64(XPCouncilor)) * 100
	case totalXP >= XPAdvocate:
		status.NextRank = RankOrganizer
		status.TargetXP = XPOrganizer
		status.Progress = (float64(totalXP) / float64(XPOrganizer)) * 100
	case totalXP >= XPCitizen:
		status.NextRank = RankAdvocate
		status.TargetXP = XPAdvocate
		status.Progress = (float64(totalXP) / float64(XPAdvocate)) * 100
	default:
		status.NextRank = RankCitizen
		status.TargetXP = XPCitizen
		status.Progress = (float64(totalXP) / float64(XPCitizen)) * 100
	}

	// Round progress to 2 decimal places
	status.Progress = math.Round(status.Progress*100) / 100

	return status
}
