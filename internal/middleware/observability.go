package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codequest-api/internal/observability"
)

const unmatchedRoute = "unmatched"

// Observability records Prometheus request metrics and one structured log line
// per /api request.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		entryLogger := observability.Logger(c.UserContext(), logger)
		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = entryLogger.Error()
		case status >= fiber.StatusBadRequest:
			event = entryLogger.Warn()
		default:
			event = entryLogger.Info()
		}

		event = event.
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("latency", duration)
		if userID := UserID(c); userID != 0 {
			event = event.Uint("user_id", userID)
		}
		event.Msg("request completed")

		return err
	}
}

// routeTemplate returns the matched route pattern so path parameters such as
// slugs do not explode label cardinality.
func routeTemplate(c *fiber.Ctx) string {
	route := c.Route()
	if route == nil || route.Path == "" || route.Path == "/" && c.Path() != "/" {
		return unmatchedRoute
	}
	return route.Path
}
