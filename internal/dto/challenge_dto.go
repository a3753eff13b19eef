package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationMeta derives page counts from the total.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// ChallengeListQuery captures filters for the challenge catalogue.
type ChallengeListQuery struct {
	Difficulty string `query:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category   string `query:"category" validate:"omitempty,max=64"`
	Search     string `query:"search" validate:"omitempty,max=128"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	PageSize   int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// PublicRule is the learner-visible view of a rule. Parameters that would give
// away the answer are omitted.
type PublicRule struct {
	Kind        evaluator.RuleKind `json:"kind"`
	Description string             `json:"description"`
	Points      int                `json:"points"`
}

// NewPublicRules strips rule parameters down to their public description.
func NewPublicRules(rules []evaluator.Rule) []PublicRule {
	items := make([]PublicRule, 0, len(rules))
	for _, rule := range rules {
		items = append(items, PublicRule{
			Kind:        rule.Kind,
			Description: rule.Label(),
			Points:      rule.Weight(),
		})
	}
	return items
}

// ChallengeSummary is the list view of a challenge.
type ChallengeSummary struct {
	ID          uint   `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`
	XPReward    int    `json:"xpReward"`
	Description string `json:"description"`
}

// NewChallengeSummary converts a model into the list view.
func NewChallengeSummary(model models.Challenge) ChallengeSummary {
	return ChallengeSummary{
		ID:          model.ID,
		Slug:        model.Slug,
		Title:       model.Title,
		Difficulty:  model.Difficulty,
		Category:    model.Category,
		XPReward:    model.XPReward,
		Description: model.Description,
	}
}

// ChallengeListResponse wraps a page of challenge summaries.
type ChallengeListResponse struct {
	Items      []ChallengeSummary `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// ChallengeDetail is the full learner view of a challenge. It never carries
// the reference solution.
type ChallengeDetail struct {
	ChallengeSummary
	StarterCode evaluator.Submission `json:"starterCode"`
	Tests       []PublicRule         `json:"tests"`
	Completed   bool                 `json:"completed"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// NewChallengeDetail converts a model into the detail view.
func NewChallengeDetail(model models.Challenge, rules []evaluator.Rule) ChallengeDetail {
	return ChallengeDetail{
		ChallengeSummary: NewChallengeSummary(model),
		StarterCode:      model.Starter(),
		Tests:            NewPublicRules(rules),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ChallengeCreateRequest is the authoring payload for a new challenge.
type ChallengeCreateRequest struct {
	Slug        string                `json:"slug" validate:"required,max=128"`
	Title       string                `json:"title" validate:"required,max=255"`
	Description string                `json:"description" validate:"omitempty,max=20000"`
	Difficulty  string                `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Category    string                `json:"category" validate:"omitempty,max=64"`
	XPReward    int                   `json:"xpReward" validate:"min=0,max=10000"`
	StarterCode evaluator.Submission  `json:"starterCode"`
	TestCases   json.RawMessage       `json:"testCases" validate:"required"`
	Solution    *evaluator.Submission `json:"solution"`
}

// ChallengeSubmitRequest is the payload for grading a challenge attempt.
type ChallengeSubmitRequest struct {
	ChallengeSlug string               `json:"challengeSlug" validate:"required,max=128"`
	Code          evaluator.Submission `json:"code"`
}

// SubmissionResponse carries the evaluation verdict plus what was persisted.
type SubmissionResponse struct {
	evaluator.Result
	AttemptID     uint   `json:"attemptId,omitempty"`
	XPEarned      int    `json:"xpEarned"`
	TotalXP       int    `json:"totalXp,omitempty"`
	Authenticated bool   `json:"authenticated"`
	IsCompleted   bool   `json:"isCompleted"`
	TestsPassed   int    `json:"testsPassed"`
	TotalTests    int    `json:"totalTests"`
	Message       string `json:"message"`
}

// AttemptResponse is one entry in a user's attempt history.
type AttemptResponse struct {
	ID          uint                   `json:"id"`
	Score       int                    `json:"score"`
	TestsPassed int                    `json:"testsPassed"`
	TotalTests  int                    `json:"totalTests"`
	IsCompleted bool                   `json:"isCompleted"`
	XPEarned    int                    `json:"xpEarned"`
	TestResults []evaluator.TestResult `json:"testResults"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// NewAttemptResponse converts a stored attempt into its history view.
func NewAttemptResponse(model models.ChallengeAttempt) AttemptResponse {
	return AttemptResponse{
		ID:          model.ID,
		Score:       model.Score,
		TestsPassed: model.TestsPassed,
		TotalTests:  model.TotalTests,
		IsCompleted: model.IsCompleted,
		XPEarned:    model.XPEarned,
		TestResults: model.TestResults(),
		CreatedAt:   model.CreatedAt,
	}
}

// NewAttemptResponseSlice converts stored attempts into history views.
func NewAttemptResponseSlice(items []models.ChallengeAttempt) []AttemptResponse {
	responses := make([]AttemptResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewAttemptResponse(item))
	}
	return responses
}
