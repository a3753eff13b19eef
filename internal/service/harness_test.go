package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/cache"
	"github.com/noah-isme/codequest-api/internal/events"
	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/repository"
	"github.com/noah-isme/codequest-api/internal/service"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.CompletionEvent
}

func (p *recordingPublisher) PublishCompletion(_ context.Context, event events.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []events.CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.CompletionEvent(nil), p.events...)
}

type testEnv struct {
	db          *gorm.DB
	redis       *miniredis.Miniredis
	publisher   *recordingPublisher
	leaderboard service.LeaderboardService
	progress    service.ProgressService
	challenges  service.ChallengeService
	lessons     service.LessonService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	publisher := &recordingPublisher{}
	settings := service.EvaluationSettings{CompletionThreshold: 70, MaxCodeBytes: 2000}

	users := repository.NewUserRepository(db)
	attempts := repository.NewChallengeAttemptRepository(db)
	lessonProgress := repository.NewLessonProgressRepository(db)

	leaderboard := service.NewLeaderboardService(users, cache.NewLeaderboardCache(client, "test:leaderboard", time.Minute), 0, logger)
	progress := service.NewProgressService(users, repository.NewXPRepository(db), attempts, lessonProgress, leaderboard, logger)

	return &testEnv{
		db:          db,
		redis:       mr,
		publisher:   publisher,
		leaderboard: leaderboard,
		progress:    progress,
		challenges: service.NewChallengeService(
			repository.NewChallengeRepository(db),
			attempts,
			users,
			progress,
			publisher,
			validate,
			settings,
			logger,
		),
		lessons: service.NewLessonService(
			repository.NewModuleRepository(db),
			repository.NewLessonRepository(db),
			lessonProgress,
			users,
			progress,
			publisher,
			validate,
			settings,
			logger,
		),
		validate: validate,
		logger:   logger,
	}
}

func (e *testEnv) createUser(t *testing.T, username string, totalXP int) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		TotalXP:  totalXP,
		Level:    models.LevelForXP(totalXP),
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func mustJSON(t *testing.T, value interface{}) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	return datatypes.JSON(data)
}

func headingRules() []evaluator.Rule {
	return []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Description: "Has an h1", Selector: "h1", Points: 50},
		{Kind: evaluator.KindElementText, Description: "Heading says hello", Selector: "h1", Expected: "Hello", Points: 30},
		{Kind: evaluator.KindCSSProperty, Description: "Heading is red", Selector: "h1", Property: "color", Expected: "red", Points: 20},
	}
}

func (e *testEnv) createChallenge(t *testing.T, slug string, xp int) models.Challenge {
	t.Helper()
	challenge := models.Challenge{
		Slug:        slug,
		Title:       "Say hello",
		Description: "Write a heading that greets the world.",
		Difficulty:  models.DifficultyBeginner,
		Category:    "html",
		XPReward:    xp,
		StarterCode: mustJSON(t, evaluator.Submission{HTML: "<!-- your code -->"}),
		TestCases:   mustJSON(t, headingRules()),
		Solution:    mustJSON(t, evaluator.Submission{HTML: "<h1>Hello</h1>", CSS: "h1 { color: red; }"}),
	}
	require.NoError(t, e.db.Create(&challenge).Error)
	return challenge
}

func (e *testEnv) createLesson(t *testing.T, moduleSlug, lessonSlug string, position, xp int) models.Lesson {
	t.Helper()

	var module models.Module
	err := e.db.Where("slug = ?", moduleSlug).First(&module).Error
	if err != nil {
		module = models.Module{Slug: moduleSlug, Title: "Module " + moduleSlug}
		require.NoError(t, e.db.Create(&module).Error)
	}

	lesson := models.Lesson{
		ModuleID:  module.ID,
		Slug:      lessonSlug,
		Title:     "Lesson " + lessonSlug,
		Content:   "Build a heading.",
		Position:  position,
		XPReward:  xp,
		TestCases: mustJSON(t, headingRules()),
	}
	require.NoError(t, e.db.Create(&lesson).Error)
	return lesson
}

var (
	passingCode = evaluator.Submission{HTML: "<h1>Hello</h1>", CSS: "h1 { color: red; }"}
	partialCode = evaluator.Submission{HTML: "<h1>Hi</h1>"}
	failingCode = evaluator.Submission{HTML: "<p>nothing here</p>"}
)
