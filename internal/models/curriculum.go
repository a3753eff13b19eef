package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

// Module groups an ordered sequence of lessons.
type Module struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lessons     []Lesson  `gorm:"foreignKey:ModuleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson is a guided exercise inside a module.
type Lesson struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ModuleID  uint           `gorm:"not null;index" json:"module_id"`
	Slug      string         `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Content   string         `gorm:"type:text" json:"content"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	XPReward  int            `gorm:"not null;default:0" json:"xp_reward"`
	TestCases datatypes.JSON `gorm:"type:json" json:"-"`
	Solution  datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Rules decodes the stored rule set.
func (l Lesson) Rules() ([]evaluator.Rule, error) {
	return evaluator.DecodeRules(l.TestCases)
}

// ReferenceSolution decodes the stored solution, nil when none was authored.
func (l Lesson) ReferenceSolution() (*evaluator.Submission, error) {
	return evaluator.DecodeSubmission(l.Solution)
}

// LessonProgress tracks one user's attempts at one lesson.
type LessonProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"user_id"`
	LessonID    uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"lesson_id"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	BestScore   int        `gorm:"not null;default:0" json:"best_score"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	XPEarned    int        `gorm:"not null;default:0" json:"xp_earned"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AllModels lists every persisted type for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&XPTransaction{},
		&Module{},
		&Lesson{},
		&LessonProgress{},
		&Challenge{},
		&ChallengeAttempt{},
	}
}
