package httpapi

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/config"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
	"github.com/noble-platform/adaptive-assessment-core/internal/recommend"
)

// assignRequest is the body for POST /admin/assessments/assign. It
// takes explicit testTakerIds only; there is no groupId field, and no
// group membership is resolved here.
type assignRequest struct {
	TemplateID    string   `json:"templateId"`
	TestTakerIDs  []string `json:"testTakerIds"`
	DueAt         string   `json:"dueAt"`
}

// AssignAssessment handles POST /admin/assessments/assign.
func (h *Handler) AssignAssessment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}

	var req assignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid templateId", err)
	}
	if len(req.TestTakerIDs) == 0 {
		return apperr.New(apperr.Validation, "testTakerIds must not be empty")
	}
	dueAt, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid dueAt", err)
	}

	created := make([]uuid.UUID, 0, len(req.TestTakerIDs))
	for _, raw := range req.TestTakerIDs {
		testTakerID, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Wrap(apperr.Validation, "invalid testTakerId "+raw, err)
		}
		assignmentID, err := h.DB.CreateAssignment(c.UserContext(), templateID, testTakerID, id.UserID, dueAt)
		if err != nil {
			return err
		}
		created = append(created, assignmentID)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignedIds": created})
}

type overrideRow struct {
	ContentType string `json:"contentType"`
	ContentID   string `json:"contentId"`
	TargetSkill string `json:"targetSkill"`
	Priority    int    `json:"priority"`
}

type overrideRequest struct {
	Rows []overrideRow `json:"rows"`
}

// OverrideRecommendations handles POST /admin/recommendations/:resultId/override.
func (h *Handler) OverrideRecommendations(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}

	resultID, err := uuid.Parse(c.Params("resultId"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid resultId", err)
	}

	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	if len(req.Rows) == 0 {
		return apperr.New(apperr.Validation, "override rows must not be empty")
	}

	rows := make([]models.ManualOverrideRow, 0, len(req.Rows))
	for _, r := range req.Rows {
		contentID, err := uuid.Parse(r.ContentID)
		if err != nil {
			return apperr.Wrap(apperr.Validation, "invalid contentId", err)
		}
		row := models.ManualOverrideRow{ContentType: r.ContentType, ContentID: contentID, TargetSkill: r.TargetSkill, Priority: r.Priority}
		valid := recommend.ValidateOverride(row,
			func(id uuid.UUID) (*models.Course, error) { return h.DB.CourseByID(c.UserContext(), id) },
			func(id uuid.UUID) (*models.Lesson, error) { return h.DB.LessonByID(c.UserContext(), id) },
		)
		if !valid {
			return apperr.New(apperr.Validation, "override row references an unknown or inactive content id")
		}
		rows = append(rows, row)
	}

	recs := recommend.ToRecommendedItems(resultID, rows)
	stored, err := h.DB.ReplaceRecommendations(c.UserContext(), resultID, recs, id.UserID, time.Now())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"recommendations": stored})
}

// CreateTemplate handles POST /admin/templates.
func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}
	var t models.AssessmentTemplate
	if err := c.BodyParser(&t); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	created, err := h.DB.CreateTemplate(c.UserContext(), t)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// CreateItem handles POST /admin/items.
func (h *Handler) CreateItem(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}
	var item models.Item
	if err := c.BodyParser(&item); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	if item.IRTParams.A <= 0 {
		return apperr.New(apperr.Validation, "irtParams.a must be > 0")
	}
	if item.IRTParams.C < 0 || item.IRTParams.C >= 1 {
		return apperr.New(apperr.Validation, "irtParams.c must be in [0, 1)")
	}
	created, err := h.DB.CreateItem(c.UserContext(), item)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// CreateConfig handles POST /admin/configs. The request body is
// validated against the generated AssessmentConfig JSON Schema before
// being decoded, rejecting malformed adaptive/speaking/writing params
// at the authoring edge rather than at first use by a live session.
func (h *Handler) CreateConfig(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}

	body := c.Body()
	if err := config.ValidateConfig(body); err != nil {
		return apperr.Wrap(apperr.Validation, "config failed schema validation", err)
	}

	var cfg models.AssessmentConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}

	created, err := h.DB.CreateConfig(c.UserContext(), cfg)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// CreateCourse handles POST /admin/courses.
func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}
	var course models.Course
	if err := c.BodyParser(&course); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	created, err := h.DB.CreateCourse(c.UserContext(), course)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// AuditTrail handles GET /admin/audit/:entityType/:entityId, returning
// every AuditLog row recorded against one entity, newest first.
func (h *Handler) AuditTrail(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}

	entityType := c.Params("entityType")
	entityID, err := uuid.Parse(c.Params("entityId"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid entityId", err)
	}

	entries, err := h.DB.AuditLogForEntity(c.UserContext(), entityType, entityID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// CreateLesson handles POST /admin/lessons.
func (h *Handler) CreateLesson(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := requireRole(id, "ADMIN"); err != nil {
		return err
	}
	var lesson models.Lesson
	if err := c.BodyParser(&lesson); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	created, err := h.DB.CreateLesson(c.UserContext(), lesson)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
