package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/events"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/repository"
)

// ErrLessonNotFound indicates the lesson slug does not exist.
var ErrLessonNotFound = errors.New("lesson not found")

// LessonService exposes the curriculum and grades lesson exercises.
type LessonService interface {
	ListModules(ctx context.Context, userID uint) ([]dto.ModuleResponse, error)
	GetLesson(ctx context.Context, slug string, userID uint) (dto.LessonDetail, error)
	Submit(ctx context.Context, userID uint, slug string, payload dto.LessonSubmitRequest) (dto.LessonSubmissionResponse, error)
}

type lessonService struct {
	modules   repository.ModuleRepository
	lessons   repository.LessonRepository
	progress  repository.LessonProgressRepository
	users     repository.UserRepository
	xp        ProgressService
	publisher events.Publisher
	validator *validator.Validate
	settings  EvaluationSettings
	tracer    trace.Tracer
	now       func() time.Time
	logger    zerolog.Logger
}

// NewLessonService constructs a LessonService implementation.
func NewLessonService(
	modules repository.ModuleRepository,
	lessons repository.LessonRepository,
	progress repository.LessonProgressRepository,
	users repository.UserRepository,
	xp ProgressService,
	publisher events.Publisher,
	validate *validator.Validate,
	settings EvaluationSettings,
	logger zerolog.Logger,
) LessonService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &lessonService{
		modules:   modules,
		lessons:   lessons,
		progress:  progress,
		users:     users,
		xp:        xp,
		publisher: publisher,
		validator: validate,
		settings:  settings.normalized(),
		tracer:    otel.Tracer("github.com/noah-isme/codequest-api/internal/service/lesson"),
		now:       time.Now,
		logger:    logger.With().Str("component", "lesson_service").Logger(),
	}
}

func (s *lessonService) ListModules(ctx context.Context, userID uint) ([]dto.ModuleResponse, error) {
	modules, err := s.modules.ListWithLessons(ctx)
	if err != nil {
		return nil, err
	}

	completed := map[uint]bool{}
	if userID != 0 {
		rows, err := s.progress.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Completed {
				completed[row.LessonID] = true
			}
		}
	}

	responses := make([]dto.ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, dto.NewModuleResponse(module, completed))
	}
	return responses, nil
}

func (s *lessonService) GetLesson(ctx context.Context, slug string, userID uint) (dto.LessonDetail, error) {
	lesson, err := s.load(ctx, slug)
	if err != nil {
		return dto.LessonDetail{}, err
	}

	rules, err := lesson.Rules()
	if err != nil {
		return dto.LessonDetail{}, fmt.Errorf("decode lesson rules: %w", err)
	}

	detail := dto.NewLessonDetail(lesson, rules)
	if userID != 0 {
		progress, err := s.progress.Get(ctx, userID, lesson.ID)
		switch {
		case err == nil:
			view := dto.NewLessonProgressView(progress)
			detail.Progress = &view
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return dto.LessonDetail{}, err
		}
	}
	return detail, nil
}

func (s *lessonService) Submit(ctx context.Context, userID uint, slug string, payload dto.LessonSubmitRequest) (dto.LessonSubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "lesson.submit")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.LessonSubmissionResponse{}, err
	}
	if err := checkCodeSize(payload.Code, s.settings.MaxCodeBytes); err != nil {
		span.SetStatus(codes.Error, "submission too large")
		return dto.LessonSubmissionResponse{}, err
	}
	span.SetAttributes(attribute.String("lesson.slug", slug))

	lesson, err := s.load(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return dto.LessonSubmissionResponse{}, err
	}

	rules, err := lesson.Rules()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rule decode failed")
		return dto.LessonSubmissionResponse{}, fmt.Errorf("decode lesson rules: %w", err)
	}
	reference, err := lesson.ReferenceSolution()
	if err != nil {
		s.logger.Warn().Err(err).Str("slug", lesson.Slug).Msg("ignoring unreadable reference solution")
		reference = nil
	}

	v := grade(payload.Code, rules, reference, s.settings.CompletionThreshold)
	observability.RecordEvaluation(observability.TargetLesson, v.result, v.completed)
	span.SetAttributes(attribute.Int("evaluation.score", v.result.Score))

	response := dto.LessonSubmissionResponse{
		SubmissionResponse: dto.SubmissionResponse{
			Result:      v.result,
			IsCompleted: v.completed,
			TestsPassed: v.result.PassedCount(),
			TotalTests:  len(v.result.TestResults),
		},
	}

	if userID == 0 {
		response.Message = submissionMessage("lesson", false, v, 0, false, s.settings.CompletionThreshold)
		return response, nil
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonSubmissionResponse{}, ErrUserNotFound
		}
		return dto.LessonSubmissionResponse{}, err
	}

	progress, err := s.progress.Get(ctx, userID, lesson.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LessonSubmissionResponse{}, err
		}
		progress = models.LessonProgress{UserID: userID, LessonID: lesson.ID}
	}

	alreadyCompleted := progress.Completed
	progress.Attempts++
	if v.result.Score > progress.BestScore {
		progress.BestScore = v.result.Score
	}

	firstCompletion := v.completed && !alreadyCompleted
	if firstCompletion {
		outcome, err := s.xp.Award(ctx, userID, lesson.XPReward, models.XPSourceLesson, lesson.ID, "Completed lesson "+lesson.Slug)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "xp award failed")
			return dto.LessonSubmissionResponse{}, err
		}
		completedAt := s.now().UTC()
		progress.Completed = true
		progress.CompletedAt = &completedAt
		progress.XPEarned = outcome.Awarded
		response.XPEarned = outcome.Awarded
		response.TotalXP = outcome.TotalXP
	}

	if err := s.progress.Save(ctx, &progress); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.LessonSubmissionResponse{}, fmt.Errorf("save lesson progress: %w", err)
	}

	if firstCompletion {
		event := events.CompletionEvent{
			Type:     events.TypeLessonCompleted,
			UserID:   userID,
			Slug:     lesson.Slug,
			Score:    v.result.Score,
			XPEarned: response.XPEarned,
			TotalXP:  response.TotalXP,
		}
		if err := s.publisher.PublishCompletion(ctx, event); err != nil {
			logger := observability.Logger(ctx, s.logger)
			logger.Warn().Err(err).Uint("user_id", userID).Str("slug", lesson.Slug).Msg("failed to publish completion event")
		}
	}

	response.Authenticated = true
	response.Progress = dto.NewLessonProgressView(progress)
	response.Message = submissionMessage("lesson", true, v, response.XPEarned, alreadyCompleted, s.settings.CompletionThreshold)

	logger := observability.Logger(ctx, s.logger)
	logger.Info().
		Uint("user_id", userID).
		Str("slug", lesson.Slug).
		Int("score", v.result.Score).
		Int("attempts", progress.Attempts).
		Bool("completed", progress.Completed).
		Msg("lesson attempt graded")

	span.SetStatus(codes.Ok, "evaluated")
	return response, nil
}

func (s *lessonService) load(ctx context.Context, slug string) (models.Lesson, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return models.Lesson{}, ErrLessonNotFound
	}

	lesson, err := s.lessons.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lesson{}, ErrLessonNotFound
		}
		return models.Lesson{}, err
	}
	return lesson, nil
}
