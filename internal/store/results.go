package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// ResultsForTestTaker returns every Result a test-taker has produced,
// most recent first, supporting GET /students/{id}/history.
func (db *DB) ResultsForTestTaker(ctx context.Context, testTakerID uuid.UUID) ([]models.Result, error) {
	defer observe("results_for_test_taker")()

	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.session_id, r.proficiency_level, r.skill_scores, r.overall_score,
		       r.result_type, r.information_metric, r.criteria_scores, r.transcript,
		       r.essay_text, r.word_count, r.created_at
		FROM results r
		JOIN sessions s ON s.id = r.session_id
		JOIN assigned_assessments a ON a.id = s.assigned_id
		WHERE a.test_taker_id = $1
		ORDER BY r.created_at DESC
	`, testTakerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query results for test taker", err)
	}
	defer rows.Close()

	var out []models.Result
	for rows.Next() {
		var r models.Result
		var skillScores, criteria []byte
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ProficiencyLevel, &skillScores, &r.OverallScore,
			&r.ResultType, &r.InformationMetric, &criteria, &r.Transcript, &r.EssayText,
			&r.WordCount, &r.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan result", err)
		}
		_ = json.Unmarshal(skillScores, &r.SkillScores)
		_ = json.Unmarshal(criteria, &r.CriteriaScores)
		out = append(out, r)
	}
	return out, nil
}

// PathwayProgress is one pathway's most recently measured proficiency
// for a student, the shape GET /students/{id}/progress returns.
type PathwayProgress struct {
	PathwayID        uuid.UUID   `json:"pathwayId"`
	ProficiencyLevel models.CEFR `json:"proficiencyLevel"`
	MeasuredAt       string      `json:"measuredAt"`
}

// LatestProficiencyByPathway returns, per pathway, the student's most
// recent Result's proficiency band.
func (db *DB) LatestProficiencyByPathway(ctx context.Context, testTakerID uuid.UUID) ([]PathwayProgress, error) {
	defer observe("latest_proficiency_by_pathway")()

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT ON (t.pathway_id)
		       t.pathway_id, r.proficiency_level, r.created_at
		FROM results r
		JOIN sessions s ON s.id = r.session_id
		JOIN assigned_assessments a ON a.id = s.assigned_id
		JOIN assessment_templates t ON t.id = a.template_id
		WHERE a.test_taker_id = $1
		ORDER BY t.pathway_id, r.created_at DESC
	`, testTakerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query pathway progress", err)
	}
	defer rows.Close()

	var out []PathwayProgress
	for rows.Next() {
		var p PathwayProgress
		var createdAt time.Time
		if err := rows.Scan(&p.PathwayID, &p.ProficiencyLevel, &createdAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan pathway progress", err)
		}
		p.MeasuredAt = createdAt.Format(time.RFC3339)
		out = append(out, p)
	}
	return out, nil
}
