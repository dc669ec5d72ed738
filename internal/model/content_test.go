package model

import "testing"

func TestMasteryThreshold(t *testing.T) {
	tests := []struct {
		questions int
		want      int
	}{
		{1, 100},
		{2, 100},
		{3, 80},
		{5, 80},
		{6, 90},
		{40, 90},
	}
	for _, tt := range tests {
		q := Quiz{QuestionCount: tt.questions}
		if got := q.MasteryThreshold(); got != tt.want {
			t.Errorf("%d questions: threshold = %d, want %d", tt.questions, got, tt.want)
		}
	}
}
