package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/repository"
	"github.com/noah-isme/codequest-api/pkg/ai"
)

var (
	// ErrAssistantUnavailable indicates no AI provider is configured.
	ErrAssistantUnavailable = errors.New("assistant is not available")
	// ErrAssistantFailed wraps provider failures.
	ErrAssistantFailed = errors.New("assistant request failed")
)

// AssistantService proxies learner questions to the configured AI provider.
type AssistantService interface {
	Ask(ctx context.Context, userID uint, payload dto.AssistantAskRequest) (dto.AssistantAskResponse, error)
}

type assistantService struct {
	assistant    ai.Assistant
	challenges   repository.ChallengeRepository
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	maxCodeBytes int
	logger       zerolog.Logger
}

// NewAssistantService constructs the assistant proxy. A nil assistant makes
// every call return ErrAssistantUnavailable.
func NewAssistantService(
	assistant ai.Assistant,
	challenges repository.ChallengeRepository,
	validate *validator.Validate,
	maxCodeBytes int,
	logger zerolog.Logger,
) AssistantService {
	return &assistantService{
		assistant:    assistant,
		challenges:   challenges,
		validator:    validate,
		sanitizer:    bluemonday.UGCPolicy(),
		maxCodeBytes: EvaluationSettings{MaxCodeBytes: maxCodeBytes}.normalized().MaxCodeBytes,
		logger:       logger.With().Str("component", "assistant_service").Logger(),
	}
}

func (s *assistantService) Ask(ctx context.Context, userID uint, payload dto.AssistantAskRequest) (dto.AssistantAskResponse, error) {
	if s.assistant == nil {
		return dto.AssistantAskResponse{}, ErrAssistantUnavailable
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssistantAskResponse{}, err
	}

	request := ai.AssistantRequest{Question: strings.TrimSpace(payload.Question)}
	if payload.Code != nil {
		if err := checkCodeSize(*payload.Code, s.maxCodeBytes); err != nil {
			return dto.AssistantAskResponse{}, err
		}
		request.HTML = payload.Code.HTML
		request.CSS = payload.Code.CSS
		request.JS = payload.Code.JS
	}

	if slug := strings.ToLower(strings.TrimSpace(payload.ChallengeSlug)); slug != "" {
		challenge, err := s.challenges.GetBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.AssistantAskResponse{}, ErrChallengeNotFound
			}
			return dto.AssistantAskResponse{}, err
		}
		request.ChallengeTitle = challenge.Title
		request.ChallengeDescription = challenge.Description
	}

	logger := observability.Logger(ctx, s.logger)
	reply, err := s.assistant.Ask(ctx, request)
	if err != nil {
		logger.Error().Err(err).Uint("user_id", userID).Msg("assistant request failed")
		return dto.AssistantAskResponse{}, fmt.Errorf("%w: %v", ErrAssistantFailed, err)
	}

	logger.Info().
		Uint("user_id", userID).
		Str("provider", reply.Provider).
		Str("model", reply.Model).
		Str("challenge", payload.ChallengeSlug).
		Msg("assistant answered")

	return dto.AssistantAskResponse{
		Answer:   strings.TrimSpace(s.sanitizer.Sanitize(reply.Answer)),
		Provider: reply.Provider,
		Model:    reply.Model,
	}, nil
}
