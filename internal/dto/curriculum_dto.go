package dto

import (
	"time"

	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/models"
)

// LessonSummary is the list view of a lesson inside a module.
type LessonSummary struct {
	ID        uint   `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	XPReward  int    `json:"xpReward"`
	Completed bool   `json:"completed"`
}

// ModuleResponse is a module with its ordered lessons.
type ModuleResponse struct {
	ID          uint            `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Position    int             `json:"position"`
	Lessons     []LessonSummary `json:"lessons"`
}

// NewModuleResponse converts a module and marks lessons the user completed.
func NewModuleResponse(model models.Module, completed map[uint]bool) ModuleResponse {
	lessons := make([]LessonSummary, 0, len(model.Lessons))
	for _, lesson := range model.Lessons {
		lessons = append(lessons, LessonSummary{
			ID:        lesson.ID,
			Slug:      lesson.Slug,
			Title:     lesson.Title,
			Position:  lesson.Position,
			XPReward:  lesson.XPReward,
			Completed: completed[lesson.ID],
		})
	}

	return ModuleResponse{
		ID:          model.ID,
		Slug:        model.Slug,
		Title:       model.Title,
		Description: model.Description,
		Position:    model.Position,
		Lessons:     lessons,
	}
}

// LessonProgressView summarises a user's standing on one lesson.
type LessonProgressView struct {
	Attempts    int        `json:"attempts"`
	BestScore   int        `json:"bestScore"`
	Completed   bool       `json:"completed"`
	XPEarned    int        `json:"xpEarned"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewLessonProgressView converts a progress row.
func NewLessonProgressView(model models.LessonProgress) LessonProgressView {
	return LessonProgressView{
		Attempts:    model.Attempts,
		BestScore:   model.BestScore,
		Completed:   model.Completed,
		XPEarned:    model.XPEarned,
		CompletedAt: model.CompletedAt,
	}
}

// LessonDetail is the full learner view of a lesson.
type LessonDetail struct {
	ID        uint                `json:"id"`
	ModuleID  uint                `json:"moduleId"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Position  int                 `json:"position"`
	XPReward  int                 `json:"xpReward"`
	Tests     []PublicRule        `json:"tests"`
	Progress  *LessonProgressView `json:"progress,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// NewLessonDetail converts a lesson model.
func NewLessonDetail(model models.Lesson, rules []evaluator.Rule) LessonDetail {
	return LessonDetail{
		ID:        model.ID,
		ModuleID:  model.ModuleID,
		Slug:      model.Slug,
		Title:     model.Title,
		Content:   model.Content,
		Position:  model.Position,
		XPReward:  model.XPReward,
		Tests:     NewPublicRules(rules),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// LessonSubmitRequest is the payload for grading a lesson attempt.
type LessonSubmitRequest struct {
	Code evaluator.Submission `json:"code"`
}

// LessonSubmissionResponse carries the verdict plus the updated progress.
type LessonSubmissionResponse struct {
	SubmissionResponse
	Progress LessonProgressView `json:"progress"`
}
