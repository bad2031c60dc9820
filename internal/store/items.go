package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// ActiveItemsForTemplate returns every active bank item eligible for a
// placement template, keyed by the template's pathway (spec.md §4.1's
// candidate pool for SelectNext).
func (db *DB) ActiveItemsForTemplate(ctx context.Context, pathwayID uuid.UUID) ([]models.Item, error) {
	defer observe("active_items_for_template")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, content, item_type, skill_areas, target_cefr, irt_params, active
		FROM items WHERE pathway_id = $1 AND active = true
	`, pathwayID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query items", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var it models.Item
		var skillAreasJSON, irtParamsJSON []byte
		if err := rows.Scan(&it.ID, &it.Content, &it.ItemType, &skillAreasJSON, &it.TargetCEFR, &irtParamsJSON, &it.Active); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan item", err)
		}
		if err := json.Unmarshal(skillAreasJSON, &it.SkillAreas); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to decode skill areas", err)
		}
		if err := json.Unmarshal(irtParamsJSON, &it.IRTParams); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to decode irt params", err)
		}
		out = append(out, it)
	}
	return out, nil
}

// ItemByID fetches a single bank item.
func (db *DB) ItemByID(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	defer observe("item_by_id")()

	var it models.Item
	var skillAreasJSON, irtParamsJSON []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, content, item_type, skill_areas, target_cefr, irt_params, active
		FROM items WHERE id = $1
	`, itemID).Scan(&it.ID, &it.Content, &it.ItemType, &skillAreasJSON, &it.TargetCEFR, &irtParamsJSON, &it.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load item", err)
	}
	if err := json.Unmarshal(skillAreasJSON, &it.SkillAreas); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode skill areas", err)
	}
	if err := json.Unmarshal(irtParamsJSON, &it.IRTParams); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode irt params", err)
	}
	return &it, nil
}

// TemplateByID loads an AssessmentTemplate plus its current Rubric.
func (db *DB) TemplateByID(ctx context.Context, templateID uuid.UUID) (*models.AssessmentTemplate, error) {
	defer observe("template_by_id")()

	var t models.AssessmentTemplate
	var rubricJSON []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, pathway_id, type, rubric, version, published_at, active
		FROM assessment_templates WHERE id = $1
	`, templateID).Scan(&t.ID, &t.PathwayID, &t.Type, &rubricJSON, &t.Version, &t.PublishedAt, &t.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load template", err)
	}
	if err := json.Unmarshal(rubricJSON, &t.Rubric); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode rubric", err)
	}
	return &t, nil
}

// ActiveConfigForTemplate loads the currently active AssessmentConfig
// for a template.
func (db *DB) ActiveConfigForTemplate(ctx context.Context, templateID uuid.UUID) (*models.AssessmentConfig, error) {
	defer observe("active_config_for_template")()

	var c models.AssessmentConfig
	var adaptiveJSON, speakingJSON, writingJSON []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, template_id, adaptive_params, speaking_params, writing_params, active
		FROM assessment_configs WHERE template_id = $1 AND active = true
		ORDER BY id DESC LIMIT 1
	`, templateID).Scan(&c.ID, &c.TemplateID, &adaptiveJSON, &speakingJSON, &writingJSON, &c.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load config", err)
	}
	if err := json.Unmarshal(adaptiveJSON, &c.AdaptiveParams); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode adaptive params", err)
	}
	if err := json.Unmarshal(speakingJSON, &c.SpeakingParams); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode speaking params", err)
	}
	if err := json.Unmarshal(writingJSON, &c.WritingParams); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to decode writing params", err)
	}
	return &c, nil
}

// TemplateItemsForTemplate returns the fixed ordered item list for a
// non-adaptive (Speaking/Writing) template.
func (db *DB) TemplateItemsForTemplate(ctx context.Context, templateID uuid.UUID) ([]models.TemplateItem, error) {
	defer observe("template_items_for_template")()

	rows, err := db.QueryContext(ctx, `
		SELECT template_id, item_id, "order"
		FROM template_items WHERE template_id = $1
		ORDER BY "order" ASC
	`, templateID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query template items", err)
	}
	defer rows.Close()

	var out []models.TemplateItem
	for rows.Next() {
		var ti models.TemplateItem
		if err := rows.Scan(&ti.TemplateID, &ti.ItemID, &ti.Order); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan template item", err)
		}
		out = append(out, ti)
	}
	return out, nil
}

// AssignedAssessmentByID loads one assignment row.
func (db *DB) AssignedAssessmentByID(ctx context.Context, assignedID uuid.UUID) (*models.AssignedAssessment, error) {
	defer observe("assigned_assessment_by_id")()

	var a models.AssignedAssessment
	err := db.QueryRowContext(ctx, `
		SELECT id, template_id, test_taker_id, assigned_by, due_at, status
		FROM assigned_assessments WHERE id = $1
	`, assignedID).Scan(&a.ID, &a.TemplateID, &a.TestTakerID, &a.AssignedBy, &a.DueAt, &a.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load assignment", err)
	}
	return &a, nil
}

// MarkAssignmentInProgress flips an assignment from PENDING to
// IN_PROGRESS the first time a Session is created against it.
func (db *DB) MarkAssignmentInProgress(ctx context.Context, assignedID uuid.UUID) error {
	defer observe("mark_assignment_in_progress")()

	_, err := db.ExecContext(ctx, `
		UPDATE assigned_assessments SET status = $1 WHERE id = $2 AND status = $3
	`, models.AssignmentInProgress, assignedID, models.AssignmentPending)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to mark assignment in progress", err)
	}
	return nil
}
