package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

// Challenge difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Challenge is a standalone HTML/CSS/JS exercise graded by rule sets.
type Challenge struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Slug        string         `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Difficulty  string         `gorm:"size:32;not null;index" json:"difficulty"`
	Category    string         `gorm:"size:64;index" json:"category"`
	XPReward    int            `gorm:"not null;default:0" json:"xp_reward"`
	StarterCode datatypes.JSON `gorm:"type:json" json:"-"`
	TestCases   datatypes.JSON `gorm:"type:json" json:"-"`
	Solution    datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Rules decodes the stored rule set.
func (c Challenge) Rules() ([]evaluator.Rule, error) {
	return evaluator.DecodeRules(c.TestCases)
}

// ReferenceSolution decodes the stored solution, nil when none was authored.
func (c Challenge) ReferenceSolution() (*evaluator.Submission, error) {
	return evaluator.DecodeSubmission(c.Solution)
}

// Starter decodes the starter code shown to learners.
func (c Challenge) Starter() evaluator.Submission {
	starter, err := evaluator.DecodeSubmission(c.StarterCode)
	if err != nil || starter == nil {
		return evaluator.Submission{}
	}
	return *starter
}

// ChallengeAttempt records one graded submission of a challenge.
type ChallengeAttempt struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index:idx_attempt_user_challenge" json:"user_id"`
	ChallengeID uint           `gorm:"not null;index:idx_attempt_user_challenge" json:"challenge_id"`
	Score       int            `gorm:"not null" json:"score"`
	TestsPassed int            `gorm:"not null" json:"tests_passed"`
	TotalTests  int            `gorm:"not null" json:"total_tests"`
	IsCompleted bool           `gorm:"not null;default:false" json:"is_completed"`
	XPEarned    int            `gorm:"not null;default:0" json:"xp_earned"`
	Code        datatypes.JSON `gorm:"type:json" json:"-"`
	Results     datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	Challenge   Challenge      `gorm:"foreignKey:ChallengeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// SetCode serialises the submitted code into the JSON column.
func (a *ChallengeAttempt) SetCode(submission evaluator.Submission) {
	a.Code = marshalJSON(submission, "{}")
}

// SetResults serialises per-rule outcomes into the JSON column.
func (a *ChallengeAttempt) SetResults(results []evaluator.TestResult) {
	a.Results = marshalJSON(results, "[]")
}

// TestResults decodes the stored per-rule outcomes.
func (a ChallengeAttempt) TestResults() []evaluator.TestResult {
	if len(a.Results) == 0 {
		return []evaluator.TestResult{}
	}

	var results []evaluator.TestResult
	if err := json.Unmarshal(a.Results, &results); err != nil || results == nil {
		return []evaluator.TestResult{}
	}
	return results
}

func marshalJSON(value interface{}, fallback string) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON([]byte(fallback))
	}
	return datatypes.JSON(data)
}
