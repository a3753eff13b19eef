package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codequest-api/internal/observability"
	"github.com/noah-isme/codequest-api/internal/utils"
)

// queryInt reads an integer query parameter, returning fallback when it is absent.
func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) zerolog.Logger {
	return observability.Logger(c.UserContext(), base).With().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Logger()
}

func internalError(base zerolog.Logger, c *fiber.Ctx, err error) error {
	logger := requestLogger(base, c)
	logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
