package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// NewApp builds the Fiber app and registers every route spec.md §6
// names, wired with the deadline and metrics middleware ahead of all
// handlers.
func NewApp(h *Handler, defaultDeadline time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})

	app.Use(Metrics())
	app.Use(Deadline(defaultDeadline))

	app.Get("/health", h.Health)
	app.Get("/metrics", func(c *fiber.Ctx) error { return MetricsHandler()(c) })

	assessments := app.Group("/assessments")
	assessments.Post("/start", h.StartAssessment)
	assessments.Post("/:sessionId/answer", h.AnswerAssessment)
	assessments.Get("/:sessionId/complete", h.CompleteAssessment)
	assessments.Get("/:sessionId", h.GetSession)

	admin := app.Group("/admin")
	admin.Post("/templates", h.CreateTemplate)
	admin.Post("/configs", h.CreateConfig)
	admin.Post("/items", h.CreateItem)
	admin.Post("/courses", h.CreateCourse)
	admin.Post("/lessons", h.CreateLesson)
	admin.Post("/assessments/assign", h.AssignAssessment)
	admin.Post("/recommendations/:resultId/override", h.OverrideRecommendations)
	admin.Get("/audit/:entityType/:entityId", h.AuditTrail)

	students := app.Group("/students")
	students.Get("/:id/history", h.StudentHistory)
	students.Get("/:id/progress", h.StudentProgress)

	return app
}
