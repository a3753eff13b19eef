package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codequest-api/internal/config"
	"github.com/noah-isme/codequest-api/internal/handler"
	"github.com/noah-isme/codequest-api/internal/middleware"
	"github.com/noah-isme/codequest-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChallengeHandler   *handler.ChallengeHandler
	LessonHandler      *handler.LessonHandler
	LeaderboardHandler *handler.LeaderboardHandler
	UserHandler        *handler.UserHandler
	AssistantHandler   *handler.AssistantHandler
	SeedHandler        *handler.SeedHandler
	HealthProbes       map[string]handler.HealthProbe
	// AuthMiddleware binds the caller identity; defaults to OptionalJWT with cfg.JWTSecret.
	AuthMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	auth := deps.AuthMiddleware
	if auth == nil {
		auth = middleware.OptionalJWT(cfg.JWTSecret)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	secured := api.Group("", auth)

	if deps.ChallengeHandler != nil {
		deps.ChallengeHandler.Register(secured.Group("/challenges"))
	}

	if deps.LessonHandler != nil {
		deps.LessonHandler.Register(secured)
	}

	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(secured.Group("/leaderboard"))
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(secured.Group("/users", middleware.RequireUser()))
	}

	if deps.AssistantHandler != nil {
		assistant := secured.Group("/assistant",
			middleware.RequireUser(),
			middleware.RateLimit("assistant", cfg.AssistantRateLimit, time.Minute),
		)
		deps.AssistantHandler.Register(assistant)
	}
}
