package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codequest-api/internal/middleware"
	"github.com/noah-isme/codequest-api/internal/service"
	"github.com/noah-isme/codequest-api/internal/utils"
)

// UserHandler exposes the caller's profile.
type UserHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewUserHandler builds a user handler instance.
func NewUserHandler(service service.ProgressService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the routes below /api/v1/users. The group must require a user.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return internalError(h.logger, c, err)
	}

	return utils.SendSuccess(c, "profile retrieved", profile)
}
