package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/events"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/repository"
)

const (
	defaultChallengePageSize = 20
	attemptHistoryLimit      = 50
)

var (
	// ErrChallengeNotFound indicates the challenge slug does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExists is returned when creating a challenge with a taken slug.
	ErrChallengeExists = errors.New("challenge slug already exists")
	// ErrInvalidRuleSet indicates authored test cases do not match the rule-set schema.
	ErrInvalidRuleSet = errors.New("invalid rule set")
)

// ChallengeService exposes the challenge catalogue and grades attempts.
type ChallengeService interface {
	List(ctx context.Context, query dto.ChallengeListQuery) (dto.ChallengeListResponse, error)
	Get(ctx context.Context, slug string, userID uint) (dto.ChallengeDetail, error)
	Create(ctx context.Context, payload dto.ChallengeCreateRequest) (dto.ChallengeDetail, error)
	Submit(ctx context.Context, userID uint, payload dto.ChallengeSubmitRequest) (dto.SubmissionResponse, error)
	History(ctx context.Context, userID uint, slug string) ([]dto.AttemptResponse, error)
}

type challengeService struct {
	challenges repository.ChallengeRepository
	attempts   repository.ChallengeAttemptRepository
	users      repository.UserRepository
	progress   ProgressService
	publisher  events.Publisher
	validator  *validator.Validate
	settings   EvaluationSettings
	sanitizer  *bluemonday.Policy
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewChallengeService constructs a ChallengeService implementation.
func NewChallengeService(
	challenges repository.ChallengeRepository,
	attempts repository.ChallengeAttemptRepository,
	users repository.UserRepository,
	progress ProgressService,
	publisher events.Publisher,
	validate *validator.Validate,
	settings EvaluationSettings,
	logger zerolog.Logger,
) ChallengeService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &challengeService{
		challenges: challenges,
		attempts:   attempts,
		users:      users,
		progress:   progress,
		publisher:  publisher,
		validator:  validate,
		settings:   settings.normalized(),
		sanitizer:  bluemonday.UGCPolicy(),
		tracer:     otel.Tracer("github.com/noah-isme/codequest-api/internal/service/challenge"),
		logger:     logger.With().Str("component", "challenge_service").Logger(),
	}
}

func (s *challengeService) List(ctx context.Context, query dto.ChallengeListQuery) (dto.ChallengeListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ChallengeListResponse{}, err
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultChallengePageSize
	}

	items, total, err := s.challenges.List(ctx, repository.ChallengeQuery{
		Difficulty: query.Difficulty,
		Category:   query.Category,
		Search:     query.Search,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return dto.ChallengeListResponse{}, err
	}

	summaries := make([]dto.ChallengeSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, dto.NewChallengeSummary(item))
	}

	return dto.ChallengeListResponse{
		Items:      summaries,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *challengeService) Get(ctx context.Context, slug string, userID uint) (dto.ChallengeDetail, error) {
	challenge, err := s.load(ctx, slug)
	if err != nil {
		return dto.ChallengeDetail{}, err
	}

	rules, err := challenge.Rules()
	if err != nil {
		return dto.ChallengeDetail{}, fmt.Errorf("decode challenge rules: %w", err)
	}

	detail := dto.NewChallengeDetail(challenge, rules)
	if userID != 0 {
		completed, err := s.attempts.HasCompleted(ctx, userID, challenge.ID)
		if err != nil {
			return dto.ChallengeDetail{}, err
		}
		detail.Completed = completed
	}
	return detail, nil
}

func (s *challengeService) Create(ctx context.Context, payload dto.ChallengeCreateRequest) (dto.ChallengeDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ChallengeDetail{}, err
	}

	rules, err := evaluator.ValidateRuleSet(payload.TestCases)
	if err != nil {
		return dto.ChallengeDetail{}, fmt.Errorf("%w: %v", ErrInvalidRuleSet, err)
	}

	slug := strings.ToLower(strings.TrimSpace(payload.Slug))
	_, err = s.challenges.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		return dto.ChallengeDetail{}, ErrChallengeExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.ChallengeDetail{}, err
	}

	testCases, err := json.Marshal(rules)
	if err != nil {
		return dto.ChallengeDetail{}, fmt.Errorf("encode rules: %w", err)
	}
	starter, err := json.Marshal(payload.StarterCode)
	if err != nil {
		return dto.ChallengeDetail{}, fmt.Errorf("encode starter code: %w", err)
	}

	challenge := models.Challenge{
		Slug:        slug,
		Title:       strings.TrimSpace(payload.Title),
		Description: s.sanitizer.Sanitize(payload.Description),
		Difficulty:  payload.Difficulty,
		Category:    strings.TrimSpace(payload.Category),
		XPReward:    payload.XPReward,
		StarterCode: datatypes.JSON(starter),
		TestCases:   datatypes.JSON(testCases),
	}
	if payload.Solution != nil {
		solution, err := json.Marshal(payload.Solution)
		if err != nil {
			return dto.ChallengeDetail{}, fmt.Errorf("encode solution: %w", err)
		}
		challenge.Solution = datatypes.JSON(solution)
	}

	if err := s.challenges.Create(ctx, &challenge); err != nil {
		return dto.ChallengeDetail{}, err
	}

	s.logger.Info().Str("slug", challenge.Slug).Int("rules", len(rules)).Msg("challenge created")
	return dto.NewChallengeDetail(challenge, rules), nil
}

func (s *challengeService) Submit(ctx context.Context, userID uint, payload dto.ChallengeSubmitRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "challenge.submit")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.SubmissionResponse{}, err
	}
	if err := checkCodeSize(payload.Code, s.settings.MaxCodeBytes); err != nil {
		span.SetStatus(codes.Error, "submission too large")
		return dto.SubmissionResponse{}, err
	}

	span.SetAttributes(
		attribute.String("challenge.slug", payload.ChallengeSlug),
		attribute.Bool("user.authenticated", userID != 0),
	)

	challenge, err := s.load(ctx, payload.ChallengeSlug)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	rules, err := challenge.Rules()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rule decode failed")
		return dto.SubmissionResponse{}, fmt.Errorf("decode challenge rules: %w", err)
	}
	reference, err := challenge.ReferenceSolution()
	if err != nil {
		s.logger.Warn().Err(err).Str("slug", challenge.Slug).Msg("ignoring unreadable reference solution")
		reference = nil
	}

	v := grade(payload.Code, rules, reference, s.settings.CompletionThreshold)
	observability.RecordEvaluation(observability.TargetChallenge, v.result, v.completed)
	span.SetAttributes(
		attribute.Int("evaluation.score", v.result.Score),
		attribute.Bool("evaluation.completed", v.completed),
	)

	response := dto.SubmissionResponse{
		Result:      v.result,
		IsCompleted: v.completed,
		TestsPassed: v.result.PassedCount(),
		TotalTests:  len(v.result.TestResults),
	}

	if userID == 0 {
		response.Message = submissionMessage("challenge", false, v, 0, false, s.settings.CompletionThreshold)
		span.SetStatus(codes.Ok, "evaluated")
		return response, nil
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrUserNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	alreadyCompleted, err := s.attempts.HasCompleted(ctx, userID, challenge.ID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	firstCompletion := v.completed && !alreadyCompleted
	if firstCompletion {
		outcome, err := s.progress.Award(ctx, userID, challenge.XPReward, models.XPSourceChallenge, challenge.ID, "Completed challenge "+challenge.Slug)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "xp award failed")
			return dto.SubmissionResponse{}, err
		}
		response.XPEarned = outcome.Awarded
		response.TotalXP = outcome.TotalXP
	}

	attempt := models.ChallengeAttempt{
		UserID:      userID,
		ChallengeID: challenge.ID,
		Score:       v.result.Score,
		TestsPassed: response.TestsPassed,
		TotalTests:  response.TotalTests,
		IsCompleted: v.completed,
		XPEarned:    response.XPEarned,
	}
	attempt.SetCode(payload.Code)
	attempt.SetResults(v.result.TestResults)

	if err := s.attempts.Create(ctx, &attempt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.SubmissionResponse{}, fmt.Errorf("save attempt: %w", err)
	}

	if firstCompletion {
		s.publish(ctx, events.CompletionEvent{
			Type:     events.TypeChallengeCompleted,
			UserID:   userID,
			Slug:     challenge.Slug,
			Score:    v.result.Score,
			XPEarned: response.XPEarned,
			TotalXP:  response.TotalXP,
		})
	}

	response.AttemptID = attempt.ID
	response.Authenticated = true
	response.Message = submissionMessage("challenge", true, v, response.XPEarned, alreadyCompleted, s.settings.CompletionThreshold)

	logger := observability.Logger(ctx, s.logger)
	logger.Info().
		Uint("user_id", userID).
		Str("slug", challenge.Slug).
		Int("score", v.result.Score).
		Bool("completed", v.completed).
		Int("xp_earned", response.XPEarned).
		Msg("challenge attempt graded")

	span.SetStatus(codes.Ok, "evaluated")
	return response, nil
}

func (s *challengeService) History(ctx context.Context, userID uint, slug string) ([]dto.AttemptResponse, error) {
	challenge, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attempts.ListByUserAndChallenge(ctx, userID, challenge.ID, attemptHistoryLimit)
	if err != nil {
		return nil, err
	}
	return dto.NewAttemptResponseSlice(attempts), nil
}

func (s *challengeService) load(ctx context.Context, slug string) (models.Challenge, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return models.Challenge{}, ErrChallengeNotFound
	}

	challenge, err := s.challenges.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Challenge{}, ErrChallengeNotFound
		}
		return models.Challenge{}, err
	}
	return challenge, nil
}

func (s *challengeService) publish(ctx context.Context, event events.CompletionEvent) {
	if err := s.publisher.PublishCompletion(ctx, event); err != nil {
		logger := observability.Logger(ctx, s.logger)
		logger.Warn().Err(err).Str("type", event.Type).Uint("user_id", event.UserID).Msg("failed to publish completion event")
	}
}
