package dto

import "github.com/noah-isme/codequest-api/internal/evaluator"

// AssistantAskRequest is a learner's question for the coding assistant.
type AssistantAskRequest struct {
	Question      string                `json:"question" validate:"required,min=3,max=2000"`
	ChallengeSlug string                `json:"challengeSlug" validate:"omitempty,max=128"`
	Code          *evaluator.Submission `json:"code"`
}

// AssistantAskResponse is the sanitised assistant reply.
type AssistantAskResponse struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
