package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codequest-api/internal/cache"
	"github.com/noah-isme/codequest-api/internal/config"
	"github.com/noah-isme/codequest-api/internal/database"
	"github.com/noah-isme/codequest-api/internal/events"
	"github.com/noah-isme/codequest-api/internal/handler"
	"github.com/noah-isme/codequest-api/internal/middleware"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/repository"
	"github.com/noah-isme/codequest-api/internal/router"
	"github.com/noah-isme/codequest-api/internal/service"
	"github.com/noah-isme/codequest-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database pool: %v", err)
	}
	defer sqlDB.Close()

	probes := map[string]handler.HealthProbe{
		"database": sqlDB.PingContext,
	}

	var leaderboardCache cache.LeaderboardCache
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		leaderboardCache = cache.NewLeaderboardCache(redisClient, cfg.LeaderboardKey, cfg.LeaderboardCacheTTL)
		probes["redis"] = redisProbe(redisClient)
	} else {
		logger.Warn().Msg("redis url not set, leaderboard served from the database")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()

		publisher = events.NewPublisher(conn, cfg.EventSubjectPrefix, logger)
		probes["nats"] = natsProbe(conn)
	}

	assistant, err := ai.New(ai.Options{
		Provider:        cfg.AIProvider,
		Model:           cfg.AIModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		Logger:          logger,
	})
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn().Str("provider", cfg.AIProvider).Msg("assistant disabled, provider api key missing")
	case err != nil:
		log.Fatalf("failed to create assistant: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	settings := service.EvaluationSettings{
		CompletionThreshold: cfg.CompletionThreshold,
		MaxCodeBytes:        cfg.MaxCodeBytes,
	}

	userRepo := repository.NewUserRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	attemptRepo := repository.NewChallengeAttemptRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	lessonProgressRepo := repository.NewLessonProgressRepository(db)
	xpRepo := repository.NewXPRepository(db)

	leaderboardService := service.NewLeaderboardService(userRepo, leaderboardCache, cfg.LeaderboardCacheSize, logger)
	progressService := service.NewProgressService(userRepo, xpRepo, attemptRepo, lessonProgressRepo, leaderboardService, logger)
	challengeService := service.NewChallengeService(challengeRepo, attemptRepo, userRepo, progressService, publisher, validate, settings, logger)
	lessonService := service.NewLessonService(moduleRepo, lessonRepo, lessonProgressRepo, userRepo, progressService, publisher, validate, settings, logger)
	assistantService := service.NewAssistantService(assistant, challengeRepo, validate, settings.MaxCodeBytes, logger)
	seedService := service.NewSeedService(db, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ChallengeHandler:   handler.NewChallengeHandler(challengeService, logger),
		LessonHandler:      handler.NewLessonHandler(lessonService, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboardService, logger),
		UserHandler:        handler.NewUserHandler(progressService, logger),
		AssistantHandler:   handler.NewAssistantHandler(assistantService, logger),
		SeedHandler:        handler.NewSeedHandler(seedService, logger),
		HealthProbes:       probes,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func redisProbe(client *redis.Client) handler.HealthProbe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func natsProbe(conn *nats.Conn) handler.HealthProbe {
	return func(context.Context) error {
		if !conn.IsConnected() {
			return nats.ErrConnectionClosed
		}
		return nil
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
