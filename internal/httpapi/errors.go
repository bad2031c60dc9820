package httpapi

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
)

// kindStatus maps each apperr.Kind to the HTTP status spec.md §7 names,
// replacing the teacher's repeated c.Status(...).JSON(fiber.Map{"error":
// ...}) call sites with one table.
var kindStatus = map[apperr.Kind]int{
	apperr.Validation:        fiber.StatusBadRequest,
	apperr.Authz:             fiber.StatusForbidden,
	apperr.NotFound:          fiber.StatusNotFound,
	apperr.Conflict:          fiber.StatusConflict,
	apperr.Expired:           fiber.StatusGone,
	apperr.SemanticValidation: fiber.StatusUnprocessableEntity,
	apperr.ScorerUnavailable: fiber.StatusServiceUnavailable,
	apperr.Internal:          fiber.StatusInternalServerError,
}

// ErrorHandler is installed as the Fiber app's centralized error
// handler. apperr.Error values map to their configured status (a missing
// X-User-Id or X-User-Role header maps to 401); a raw fiber.Error keeps
// its own code; anything else falls back to 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := kindStatus[appErr.Kind]
		if status == 0 {
			status = fiber.StatusInternalServerError
		}
		if status == fiber.StatusForbidden && (appErr.Message == "X-User-Id header required" || appErr.Message == "X-User-Role header required") {
			status = fiber.StatusUnauthorized
		}
		return c.Status(status).JSON(fiber.Map{"error": appErr.Message, "kind": appErr.Kind})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	log.Printf("unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
