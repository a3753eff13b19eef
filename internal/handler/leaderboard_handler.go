package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codequest-api/internal/middleware"
	"github.com/noah-isme/codequest-api/internal/service"
	"github.com/noah-isme/codequest-api/internal/utils"
)

// LeaderboardHandler exposes XP rankings.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler builds a leaderboard handler instance.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register wires the routes below /api/v1/leaderboard.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.top)
	router.Get("/me", middleware.RequireUser(), h.me)
}

func (h *LeaderboardHandler) top(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be a number")
	}

	response, err := h.service.Top(c.UserContext(), limit)
	if err != nil {
		return internalError(h.logger, c, err)
	}

	return utils.SendSuccess(c, "leaderboard retrieved", response)
}

func (h *LeaderboardHandler) me(c *fiber.Ctx) error {
	rank, err := h.service.Rank(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return internalError(h.logger, c, err)
	}

	return utils.SendSuccess(c, "rank retrieved", rank)
}
