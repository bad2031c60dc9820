package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// CoursesForPathway returns every active course in a pathway, used by
// the recommendation engine's candidate pool (spec.md §4.4).
func (db *DB) CoursesForPathway(ctx context.Context, pathwayID uuid.UUID) ([]models.Course, error) {
	defer observe("courses_for_pathway")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, pathway_id, title, target_cefr, primary_skill, secondary_skills,
		       prerequisites, difficulty_order, active
		FROM courses WHERE pathway_id = $1 AND active = true
		ORDER BY difficulty_order ASC
	`, pathwayID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query courses", err)
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var c models.Course
		var secondaryJSON, prereqJSON []byte
		if err := rows.Scan(&c.ID, &c.PathwayID, &c.Title, &c.TargetCEFR, &c.PrimarySkill,
			&secondaryJSON, &prereqJSON, &c.DifficultyOrder, &c.Active); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan course", err)
		}
		if err := json.Unmarshal(secondaryJSON, &c.SecondarySkills); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to decode secondary skills", err)
		}
		if err := json.Unmarshal(prereqJSON, &c.Prerequisites); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to decode prerequisites", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// LessonsForCourse returns a course's active lessons in authored order.
func (db *DB) LessonsForCourse(ctx context.Context, courseID uuid.UUID) ([]models.Lesson, error) {
	defer observe("lessons_for_course")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, course_id, title, target_skills, "order", active
		FROM lessons WHERE course_id = $1 AND active = true
		ORDER BY "order" ASC
	`, courseID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query lessons", err)
	}
	defer rows.Close()

	var out []models.Lesson
	for rows.Next() {
		var l models.Lesson
		var targetJSON []byte
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &targetJSON, &l.Order, &l.Active); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan lesson", err)
		}
		if err := json.Unmarshal(targetJSON, &l.TargetSkills); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to decode target skills", err)
		}
		out = append(out, l)
	}
	return out, nil
}

// CourseByID fetches a single course, used to validate manual override rows.
func (db *DB) CourseByID(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	defer observe("course_by_id")()

	var c models.Course
	var secondaryJSON, prereqJSON []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, pathway_id, title, target_cefr, primary_skill, secondary_skills,
		       prerequisites, difficulty_order, active
		FROM courses WHERE id = $1
	`, courseID).Scan(&c.ID, &c.PathwayID, &c.Title, &c.TargetCEFR, &c.PrimarySkill,
		&secondaryJSON, &prereqJSON, &c.DifficultyOrder, &c.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load course", err)
	}
	_ = json.Unmarshal(secondaryJSON, &c.SecondarySkills)
	_ = json.Unmarshal(prereqJSON, &c.Prerequisites)
	return &c, nil
}

// LessonByID fetches a single lesson, used to validate manual override rows.
func (db *DB) LessonByID(ctx context.Context, lessonID uuid.UUID) (*models.Lesson, error) {
	defer observe("lesson_by_id")()

	var l models.Lesson
	var targetJSON []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, course_id, title, target_skills, "order", active
		FROM lessons WHERE id = $1
	`, lessonID).Scan(&l.ID, &l.CourseID, &l.Title, &targetJSON, &l.Order, &l.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load lesson", err)
	}
	_ = json.Unmarshal(targetJSON, &l.TargetSkills)
	return &l, nil
}
