package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/irt"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// Start implements start(assignedId): INIT -> IN_PROGRESS, with
// resumption of an existing non-terminal session per spec.md §4.3
// "Resumption".
func (e *Engine) Start(ctx context.Context, assignedID uuid.UUID, actorID uuid.UUID) (*StartResult, error) {
	assignment, err := e.Store.AssignedAssessmentByID(ctx, assignedID)
	if err != nil {
		return nil, err
	}
	if assignment.Status != models.AssignmentPending && assignment.Status != models.AssignmentInProgress {
		return nil, apperr.New(apperr.Conflict, "assignment is not open for a new attempt")
	}

	now := time.Now()
	if existing, err := e.Store.LatestSessionForAssignment(ctx, assignedID); err == nil {
		if existing.Status == models.SessionInProgress && existing.ExpiresAt.After(now) {
			// Duplicate concurrent start(assignedId) calls (e.g. a client
			// double-submit after a crash) collapse onto one Session Store
			// read instead of each independently loading the bank and
			// recomputing the next question (spec.md §5, singleflight).
			v, err, _ := e.resumeGroup.Do(assignedID.String(), func() (interface{}, error) {
				return e.resumeSession(ctx, existing)
			})
			if err != nil {
				return nil, err
			}
			return v.(*StartResult), nil
		}
	}

	template, err := e.Store.TemplateByID(ctx, assignment.TemplateID)
	if err != nil {
		return nil, err
	}
	config, err := e.Store.ActiveConfigForTemplate(ctx, assignment.TemplateID)
	if err != nil {
		return nil, err
	}

	snapshot := models.TemplateSnapshot{Template: *template, Config: *config}
	startingAbility := config.AdaptiveParams.StartingAbility

	session, err := e.Store.CreateSession(ctx, assignedID, snapshot, startingAbility, e.SessionTTL, now)
	if err != nil {
		return nil, err
	}
	if err := e.Store.MarkAssignmentInProgress(ctx, assignedID); err != nil {
		return nil, err
	}

	question, err := e.nextQuestion(ctx, *session, nil)
	if err != nil {
		return nil, err
	}

	e.audit(ctx, actorID, "START_SESSION", "Session", session.ID, nil)

	return &StartResult{
		Session:  *session,
		Question: question,
		Progress: Progress{QuestionsAnswered: session.QuestionsAnswered, CurrentAbility: session.CurrentAbility, StandardError: session.StandardError},
	}, nil
}

func (e *Engine) resumeSession(ctx context.Context, session *models.Session) (*StartResult, error) {
	question, err := e.nextQuestion(ctx, *session, nil)
	if err != nil {
		return nil, err
	}
	return &StartResult{
		Session:  *session,
		Question: question,
		Progress: Progress{QuestionsAnswered: session.QuestionsAnswered, CurrentAbility: session.CurrentAbility, StandardError: session.StandardError},
		Resumed:  true,
	}, nil
}

// nextQuestion selects the item to present next: info-maximizing for a
// Placement session, or the next fixed TemplateItem for Speaking/Writing.
// excludeItemID additionally excludes the just-answered item from
// re-selection even before its Response row is visible to the caller.
func (e *Engine) nextQuestion(ctx context.Context, session models.Session, excludeItemID *uuid.UUID) (*Question, error) {
	template := session.TemplateSnapshot.Template
	config := session.TemplateSnapshot.Config

	if template.Type != models.TypePlacement {
		items, err := e.Store.TemplateItemsForTemplate(ctx, template.ID)
		if err != nil {
			return nil, err
		}
		if session.CurrentIndex >= len(items) {
			return nil, nil
		}
		item, err := e.Store.ItemByID(ctx, items[session.CurrentIndex].ItemID)
		if err != nil {
			return nil, err
		}
		return toQuestion(*item), nil
	}

	responses, err := e.Store.ResponsesForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	bank, err := e.Store.ActiveItemsForTemplate(ctx, template.PathwayID)
	if err != nil {
		return nil, err
	}

	answered := make(map[uuid.UUID]bool, len(responses))
	var answeredItems []models.Item
	itemsByID := make(map[uuid.UUID]models.Item, len(bank))
	for _, it := range bank {
		itemsByID[it.ID] = it
	}
	for _, r := range responses {
		answered[r.ItemID] = true
		if it, ok := itemsByID[r.ItemID]; ok {
			answeredItems = append(answeredItems, it)
		}
	}
	if excludeItemID != nil {
		answered[*excludeItemID] = true
	}

	skillCounts := irt.SkillCounts(answeredItems)
	candidates := irt.FilterEligible(bank, answered, skillCounts, config.AdaptiveParams.SkillAreas)
	if len(candidates) == 0 {
		return nil, nil
	}

	item, ok := irt.SelectNext(session.CurrentAbility, candidates, config.AdaptiveParams.TopKSelection, nil)
	if !ok {
		return nil, nil
	}
	return toQuestion(item), nil
}

func toQuestion(item models.Item) *Question {
	return &Question{
		ItemID:     item.ID,
		Content:    item.Content,
		ItemType:   item.ItemType,
		SkillAreas: item.SkillAreas,
	}
}

func (e *Engine) audit(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details models.JSONB) {
	if err := e.Store.RecordAudit(ctx, models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		ActorType:  "USER",
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now(),
	}); err != nil {
		logAuditFailure(action, entityID, err)
	}
}
