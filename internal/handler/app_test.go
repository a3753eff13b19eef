package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codequest-api/internal/cache"
	"github.com/noah-isme/codequest-api/internal/config"
	"github.com/noah-isme/codequest-api/internal/events"
	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/handler"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/repository"
	"github.com/noah-isme/codequest-api/internal/router"
	"github.com/noah-isme/codequest-api/internal/service"
	"github.com/noah-isme/codequest-api/internal/utils"
	"github.com/noah-isme/codequest-api/pkg/ai"
)

const (
	testJWTSecret = "handler-test-secret"
	testSeedToken = "handler-seed-token"
)

type fakeAssistant struct{}

func (fakeAssistant) Ask(_ context.Context, request ai.AssistantRequest) (ai.AssistantReply, error) {
	return ai.AssistantReply{
		Answer:   "Hint for: " + request.Question,
		Provider: ai.ProviderOpenAI,
		Model:    "test-model",
	}, nil
}

type apiEnvelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data"`
	Errors  []utils.FieldError `json:"errors"`
}

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

func setupApp(t *testing.T, assistant ai.Assistant) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{AppName: "CodeQuest Test", AppEnv: "test", JWTSecret: testJWTSecret, AssistantRateLimit: 2}
	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := service.EvaluationSettings{CompletionThreshold: 70, MaxCodeBytes: 5000}

	users := repository.NewUserRepository(db)
	challenges := repository.NewChallengeRepository(db)
	attempts := repository.NewChallengeAttemptRepository(db)
	lessonProgress := repository.NewLessonProgressRepository(db)

	leaderboard := service.NewLeaderboardService(users, cache.NewLeaderboardCache(client, "handler:leaderboard", time.Minute), 0, logger)
	progress := service.NewProgressService(users, repository.NewXPRepository(db), attempts, lessonProgress, leaderboard, logger)
	challengeService := service.NewChallengeService(challenges, attempts, users, progress, events.NopPublisher{}, validate, settings, logger)
	lessonService := service.NewLessonService(
		repository.NewModuleRepository(db),
		repository.NewLessonRepository(db),
		lessonProgress,
		users,
		progress,
		events.NopPublisher{},
		validate,
		settings,
		logger,
	)
	assistantService := service.NewAssistantService(assistant, challenges, validate, settings.MaxCodeBytes, logger)

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		ChallengeHandler:   handler.NewChallengeHandler(challengeService, logger),
		LessonHandler:      handler.NewLessonHandler(lessonService, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboard, logger),
		UserHandler:        handler.NewUserHandler(progress, logger),
		AssistantHandler:   handler.NewAssistantHandler(assistantService, logger),
		SeedHandler:        handler.NewSeedHandler(service.NewSeedService(db, true, testSeedToken, logger), logger),
		HealthProbes: map[string]handler.HealthProbe{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})

	return &testApp{app: app, db: db}
}

func (a *testApp) createUser(t *testing.T, username, role string, totalXP int) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		TotalXP:  totalXP,
		Level:    models.LevelForXP(totalXP),
	}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func (a *testApp) createChallenge(t *testing.T, slug string, xp int) models.Challenge {
	t.Helper()
	rules, err := json.Marshal([]evaluator.Rule{
		{Kind: evaluator.KindElementExists, Description: "Has a button", Selector: "button", Points: 60},
		{Kind: evaluator.KindJavaScriptFunction, Description: "Defines greet", Function: "greet", Points: 40},
	})
	require.NoError(t, err)
	solution, err := json.Marshal(evaluator.Submission{HTML: "<button>Hi</button>", JS: "function greet() {}"})
	require.NoError(t, err)

	challenge := models.Challenge{
		Slug:       slug,
		Title:      "Greeting button",
		Difficulty: models.DifficultyBeginner,
		XPReward:   xp,
		TestCases:  datatypes.JSON(rules),
		Solution:   datatypes.JSON(solution),
	}
	require.NoError(t, a.db.Create(&challenge).Error)
	return challenge
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": user.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var envelope apiEnvelope
	decodeEnvelope(t, resp, &envelope)
	return resp, envelope
}

func decodeEnvelope(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
