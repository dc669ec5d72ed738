package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseModule groups lessons. The content catalog is admin-managed; the
// engine only reads it to resolve triggers and mastery thresholds.
type CourseModule struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (m *CourseModule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Lesson struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID  uuid.UUID    `gorm:"type:uuid;index;not null" json:"module_id"`
	Module    CourseModule `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
	Title     string       `gorm:"size:200;not null" json:"title"`
	XPReward  int          `gorm:"not null;default:50" json:"xp_reward"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Quiz may belong to a parent quiz; deleting the parent converts children
// to standalone quizzes (SET NULL), it does not delete them.
type Quiz struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID      *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent        *Quiz      `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	QuestionCount int        `gorm:"not null;default:0" json:"question_count"`
	XPReward      int        `gorm:"not null;default:100" json:"xp_reward"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// MasteryThreshold returns the percentage a quiz attempt must reach to
// count as mastery. Short quizzes cannot be mastered with a wrong answer
// under a flat rule, so the threshold adapts to the question count.
func (q *Quiz) MasteryThreshold() int {
	switch {
	case q.QuestionCount <= 2:
		return 100
	case q.QuestionCount <= 5:
		return 80
	default:
		return 90
	}
}

// LessonCompletion is the safe-upsert target for duplicate lesson
// submissions: unique per (user, lesson), the second writer collapses
// onto the first.
type LessonCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_lesson,priority:1;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	LessonID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_lesson,priority:2;not null" json:"lesson_id"`
	Lesson      Lesson    `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	CompletedAt time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// QuizAttempt keeps every attempt; mastery checks read the best score.
type QuizAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index:idx_attempt_user_quiz,priority:1;not null" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	QuizID         uuid.UUID `gorm:"type:uuid;index:idx_attempt_user_quiz,priority:2;not null" json:"quiz_id"`
	Quiz           Quiz      `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
	RawScore       int       `gorm:"not null" json:"raw_score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	Percent        int       `gorm:"not null" json:"percent"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
