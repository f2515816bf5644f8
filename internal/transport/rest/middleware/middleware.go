package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RqIDKey is the fiber.Ctx local under which the request ID is stored.
const RqIDKey = "rqID"

func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()

		rqID := uuid.NewString()
		c.Locals(RqIDKey, rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
		)

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", c.Response().StatusCode()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		return c.Next()
	}
}
