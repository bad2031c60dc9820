package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
)

// StudentHistory handles GET /students/:id/history, returning every
// Result the student has produced, most recent first.
func (h *Handler) StudentHistory(c *fiber.Ctx) error {
	if _, err := identity(c); err != nil {
		return err
	}
	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid student id", err)
	}

	results, err := h.DB.ResultsForTestTaker(c.UserContext(), studentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"results": results})
}

// StudentProgress handles GET /students/:id/progress, a summary of the
// student's latest proficiency per pathway (SPEC_FULL.md's supplemented
// progress read). It does not rank the student against peers.
func (h *Handler) StudentProgress(c *fiber.Ctx) error {
	if _, err := identity(c); err != nil {
		return err
	}
	studentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid student id", err)
	}

	progress, err := h.DB.LatestProficiencyByPathway(c.UserContext(), studentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"progress": progress})
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.DB.PingContext(c.UserContext()); err != nil {
		return apperr.Wrap(apperr.Internal, "database unreachable", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
