package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/assessment"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

type startRequest struct {
	AssignedID string `json:"assignedId"`
}

// StartAssessment handles POST /assessments/start.
func (h *Handler) StartAssessment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	assignedID, err := uuid.Parse(req.AssignedID)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid assignedId", err)
	}

	result, err := h.Engine.Start(c.UserContext(), assignedID, id.UserID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sessionId": result.Session.ID,
		"question":  result.Question,
		"progress":  result.Progress,
		"resumed":   result.Resumed,
	})
}

type answerRequest struct {
	ItemID        string       `json:"itemId"`
	ResponseData  models.JSONB `json:"responseData"`
	TimeTaken     int          `json:"timeTaken"`
	CurrentIndex  int          `json:"currentIndex"`
	MediaKey      *string      `json:"mediaKey,omitempty"`
	ASRTranscript *string      `json:"asrTranscript,omitempty"`
}

// AnswerAssessment handles POST /assessments/:sessionId/answer.
func (h *Handler) AnswerAssessment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid sessionId", err)
	}

	var req answerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid itemId", err)
	}

	result, err := h.Engine.Answer(c.UserContext(), sessionID, assessment.AnswerPayload{
		ItemID:        itemID,
		ResponseData:  req.ResponseData,
		TimeTakenMS:   req.TimeTaken,
		CurrentIndex:  req.CurrentIndex,
		MediaKey:      req.MediaKey,
		ASRTranscript: req.ASRTranscript,
	}, id.UserID)
	if err != nil {
		return err
	}

	if result.Done {
		return c.JSON(fiber.Map{
			"done":            true,
			"result":          result.Result,
			"recommendations": result.Recommendations,
		})
	}
	return c.JSON(fiber.Map{
		"done":     false,
		"question": result.NextQuestion,
		"progress": fiber.Map{
			"questionsAnswered": result.Session.QuestionsAnswered,
			"currentAbility":    result.Session.CurrentAbility,
			"standardError":     result.Session.StandardError,
		},
	})
}

// CompleteAssessment handles GET /assessments/:sessionId/complete.
func (h *Handler) CompleteAssessment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid sessionId", err)
	}

	result, err := h.Engine.Complete(c.UserContext(), sessionID, id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"result":          result.Result,
		"recommendations": result.Recommendations,
	})
}

// GetSession handles GET /assessments/:sessionId.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	if _, err := identity(c); err != nil {
		return err
	}
	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "invalid sessionId", err)
	}

	session, err := h.DB.LoadSession(c.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(session)
}
