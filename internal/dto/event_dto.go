package dto

// Inbound progression events. The lesson UI, quiz grader and quest
// submission surfaces deliver these after their own validation; the
// engine re-validates shape only.

type LessonCompletedRequest struct {
	LessonID string `json:"lesson_id" binding:"required,uuid"`
}

type QuizCompletedRequest struct {
	QuizID         string `json:"quiz_id" binding:"required,uuid"`
	RawScore       int    `json:"raw_score" binding:"min=0"`
	TotalQuestions int    `json:"total_questions" binding:"required,min=1"`
}

type QuestDayCompletedRequest struct {
	Day   string `json:"day" binding:"required,oneof=monday tuesday wednesday thursday friday"`
	Score int    `json:"score" binding:"min=0"`
}

type SpendDutyPassRequest struct {
	Day string `json:"day" binding:"required,oneof=monday tuesday wednesday thursday friday"`
}

// XPAwardRequest only grants. Total XP never decreases through the API;
// revocations stay internal to the engine.
type XPAwardRequest struct {
	Amount    int    `json:"amount" binding:"required,min=1"`
	SourceTag string `json:"source_tag" binding:"required,max=50"`
}

type GrantDutyPassesRequest struct {
	Amount int `json:"amount" binding:"required,min=1,max=10"`
}

type UpdateTimezoneRequest struct {
	// IANA zone name, e.g. "Asia/Jakarta".
	Timezone string `json:"timezone" binding:"required,max=64"`
}
