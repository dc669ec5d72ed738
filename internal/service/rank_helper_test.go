package service

import "testing"

func intPtr(i int) *int { return &i }

func TestSequentialRank(t *testing.T) {
	tests := []struct {
		totalXP int
		want    string
	}{
		{0, RankNewcomer},
		{99, RankNewcomer},
		{100, RankCitizen},
		{599, RankCitizen},
		{600, RankAdvocate},
		{2999, RankAdvocate},
		{3000, RankOrganizer},
		{7999, RankOrganizer},
		{8000, RankCouncilor},
		{19999, RankCouncilor},
		{20000, RankStatesman},
		{1000000, RankStatesman},
	}
	for _, tt := range tests {
		if got := SequentialRank(tt.totalXP); got != tt.want {
			t.Errorf("SequentialRank(%d) = %q, want %q", tt.totalXP, got, tt.want)
		}
	}
}

func TestStarRank(t *testing.T) {
	tests := []struct {
		position int
		want     string
	}{
		{1, RankChief},
		{2, RankDeputy},
		{3, RankDeputy},
		{4, RankElder},
		{10, RankElder},
		{11, RankStatesman},
	}
	for _, tt := range tests {
		if got := StarRank(tt.position); got != tt.want {
			t.Errorf("StarRank(%d) = %q, want %q", tt.position, got, tt.want)
		}
	}
}

func TestEffectiveRank(t *testing.T) {
	// Below the statesman threshold the position is irrelevant.
	if got := EffectiveRank(500, intPtr(1)); got != RankCitizen {
		t.Errorf("EffectiveRank(500, 1) = %q, want %q", got, RankCitizen)
	}
	// Above it, position picks the star rank.
	if got := EffectiveRank(25000, intPtr(1)); got != RankChief {
		t.Errorf("EffectiveRank(25000, 1) = %q, want %q", got, RankChief)
	}
	if got := EffectiveRank(25000, intPtr(7)); got != RankElder {
		t.Errorf("EffectiveRank(25000, 7) = %q, want %q", got, RankElder)
	}
	// No position means no star rank even at statesman XP.
	if got := EffectiveRank(25000, nil); got != RankStatesman {
		t.Errorf("EffectiveRank(25000, nil) = %q, want %q", got, RankStatesman)
	}
}

func TestRankAbove(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{RankCitizen, RankNewcomer, true},
		{RankNewcomer, RankCitizen, false},
		{RankChief, RankStatesman, true},
		{RankElder, RankElder, false},
		{RankDeputy, RankElder, true},
	}
	for _, tt := range tests {
		if got := RankAbove(tt.a, tt.b); got != tt.want {
			t.Errorf("RankAbove(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestStatusForProgress(t *testing.T) {
	status := StatusFor(50, nil)
	if status.Rank != RankNewcomer {
		t.Errorf("rank = %q, want %q", status.Rank, RankNewcomer)
	}
	if status.NextRank != RankCitizen || status.TargetXP != XPCitizen {
		t.Errorf("next = %q/%d, want %q/%d", status.NextRank, status.TargetXP, RankCitizen, XPCitizen)
	}
	if status.Progress != 50 {
		t.Errorf("progress = %v, want 50", status.Progress)
	}
	if status.Track != "sequential" {
		t.Errorf("track = %q, want sequential", status.Track)
	}

	top := StatusFor(30000, intPtr(2))
	if top.Rank != RankDeputy {
		t.Errorf("rank = %q, want %q", top.Rank, RankDeputy)
	}
	if top.Track != "competitive" {
		t.Errorf("track = %q, want competitive", top.Track)
	}
	if top.Progress != 100 {
		t.Errorf("progress = %v, want 100", top.Progress)
	}
}
