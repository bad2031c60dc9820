package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// CreateAssignment grants one test-taker one attempt at a template
// (spec.md §4.4 "AssignedAssessment").
func (db *DB) CreateAssignment(ctx context.Context, templateID, testTakerID, assignedBy uuid.UUID, dueAt time.Time) (uuid.UUID, error) {
	defer observe("create_assignment")()

	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO assigned_assessments (template_id, test_taker_id, assigned_by, due_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, templateID, testTakerID, assignedBy, dueAt, models.AssignmentPending).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.Internal, "failed to create assignment", err)
	}
	return id, nil
}

// CreateTemplate authors a new AssessmentTemplate version.
func (db *DB) CreateTemplate(ctx context.Context, t models.AssessmentTemplate) (*models.AssessmentTemplate, error) {
	defer observe("create_template")()

	rubricJSON, err := json.Marshal(t.Rubric)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal rubric", err)
	}

	err = db.QueryRowContext(ctx, `
		INSERT INTO assessment_templates (pathway_id, type, rubric, version, published_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.PathwayID, t.Type, rubricJSON, t.Version, time.Now(), true).Scan(&t.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create template", err)
	}
	return &t, nil
}

// CreateConfig activates a new AssessmentConfig for a template,
// deactivating any prior active config (spec.md §3: "One active config
// per template").
func (db *DB) CreateConfig(ctx context.Context, cfg models.AssessmentConfig) (*models.AssessmentConfig, error) {
	defer observe("create_config")()

	adaptiveJSON, err := json.Marshal(cfg.AdaptiveParams)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal adaptive params", err)
	}
	speakingJSON, err := json.Marshal(cfg.SpeakingParams)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal speaking params", err)
	}
	writingJSON, err := json.Marshal(cfg.WritingParams)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal writing params", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE assessment_configs SET active = false WHERE template_id = $1`, cfg.TemplateID); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to deactivate prior config", err)
	}

	cfg.Active = true
	err = tx.QueryRowContext(ctx, `
		INSERT INTO assessment_configs (template_id, adaptive_params, speaking_params, writing_params, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, cfg.TemplateID, adaptiveJSON, speakingJSON, writingJSON, cfg.Active).Scan(&cfg.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create config", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to commit config activation", err)
	}
	return &cfg, nil
}

// CreateItem authors a new calibrated bank item.
func (db *DB) CreateItem(ctx context.Context, item models.Item) (*models.Item, error) {
	defer observe("create_item")()

	skillAreasJSON, err := json.Marshal(item.SkillAreas)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal skill areas", err)
	}
	irtParamsJSON, err := json.Marshal(item.IRTParams)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal irt params", err)
	}

	item.Active = true
	err = db.QueryRowContext(ctx, `
		INSERT INTO items (content, item_type, skill_areas, target_cefr, irt_params, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.Content, item.ItemType, skillAreasJSON, item.TargetCEFR, irtParamsJSON, item.Active).Scan(&item.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create item", err)
	}
	return &item, nil
}

// CreateCourse authors a new catalog course.
func (db *DB) CreateCourse(ctx context.Context, course models.Course) (*models.Course, error) {
	defer observe("create_course")()

	secondaryJSON, err := json.Marshal(course.SecondarySkills)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal secondary skills", err)
	}
	prereqJSON, err := json.Marshal(course.Prerequisites)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal prerequisites", err)
	}

	course.Active = true
	err = db.QueryRowContext(ctx, `
		INSERT INTO courses (pathway_id, title, target_cefr, primary_skill, secondary_skills,
		                      prerequisites, difficulty_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, course.PathwayID, course.Title, course.TargetCEFR, course.PrimarySkill, secondaryJSON,
		prereqJSON, course.DifficultyOrder, course.Active).Scan(&course.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create course", err)
	}
	return &course, nil
}

// CreateLesson authors a new catalog lesson under a course.
func (db *DB) CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	defer observe("create_lesson")()

	targetJSON, err := json.Marshal(lesson.TargetSkills)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal target skills", err)
	}

	lesson.Active = true
	err = db.QueryRowContext(ctx, `
		INSERT INTO lessons (course_id, title, target_skills, "order", active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, lesson.CourseID, lesson.Title, targetJSON, lesson.Order, lesson.Active).Scan(&lesson.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create lesson", err)
	}
	return &lesson, nil
}
