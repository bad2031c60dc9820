package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Deadline wraps each request's context with a wall-clock timeout,
// generalizing the teacher's ad hoc per-handler
// context.WithTimeout(context.Background(), 60*time.Second) into one
// shared middleware applied to every route (spec.md §5 "Cancellation
// and timeouts"). A request-supplied X-Deadline-Ms header overrides the
// configured default, never extends it beyond 2x the default.
func Deadline(defaultDeadline time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deadline := defaultDeadline
		if override := c.Get("X-Deadline-Ms"); override != "" {
			if ms, err := time.ParseDuration(override + "ms"); err == nil && ms > 0 && ms <= 2*defaultDeadline {
				deadline = ms
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), deadline)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	}
}
