package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// CreateSession inserts a new Session row snapshotting the template and
// config for the entire attempt (spec.md §4.2).
func (db *DB) CreateSession(ctx context.Context, assignedID uuid.UUID, snapshot models.TemplateSnapshot, startingAbility float64, ttl time.Duration, now time.Time) (*models.Session, error) {
	defer observe("create_session")()

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal template snapshot", err)
	}

	s := &models.Session{}
	err = db.QueryRowContext(ctx, `
		INSERT INTO sessions (assigned_id, current_ability, standard_error, questions_answered,
		                       current_index, status, template_snapshot, started_at, expires_at)
		VALUES ($1, $2, $3, 0, 0, $4, $5, $6, $7)
		RETURNING id, assigned_id, current_ability, standard_error, questions_answered,
		          current_index, status, template_snapshot, started_at, completed_at, expires_at
	`, assignedID, startingAbility, nil, models.SessionInProgress, snapshotJSON, now, now.Add(ttl)).Scan(
		&s.ID, &s.AssignedID, &s.CurrentAbility, &s.StandardError, &s.QuestionsAnswered,
		&s.CurrentIndex, &s.Status, scanSnapshot(&s.TemplateSnapshot), &s.StartedAt, &s.CompletedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create session", err)
	}
	return s, nil
}

// scanSnapshot adapts a jsonb column into the nested TemplateSnapshot
// struct; database/sql needs a Scanner, and TemplateSnapshot is not one
// itself, so this returns an inline adapter.
func scanSnapshot(dst *models.TemplateSnapshot) *snapshotScanner {
	return &snapshotScanner{dst: dst}
}

type snapshotScanner struct {
	dst *models.TemplateSnapshot
}

func (s *snapshotScanner) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported snapshot column type %T", value)
	}
	return json.Unmarshal(raw, s.dst)
}

// ErrNotFound mirrors spec.md §4.2's loadSession(...) -> NOT_FOUND case
// and is returned by every single-row lookup in this package.
var ErrNotFound = apperr.New(apperr.NotFound, "not found")

// LoadSession retrieves one Session by id.
func (db *DB) LoadSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	defer observe("load_session")()

	s := &models.Session{}
	err := db.QueryRowContext(ctx, `
		SELECT id, assigned_id, current_ability, standard_error, questions_answered,
		       current_index, status, template_snapshot, started_at, completed_at, expires_at
		FROM sessions WHERE id = $1
	`, sessionID).Scan(
		&s.ID, &s.AssignedID, &s.CurrentAbility, &s.StandardError, &s.QuestionsAnswered,
		&s.CurrentIndex, &s.Status, scanSnapshot(&s.TemplateSnapshot), &s.StartedAt, &s.CompletedAt, &s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load session", err)
	}
	return s, nil
}

// LatestSessionForAssignment returns the most recently started Session
// for an AssignedAssessment, if any, supporting start()'s resumption
// check (spec.md §4.3 "Resumption").
func (db *DB) LatestSessionForAssignment(ctx context.Context, assignedID uuid.UUID) (*models.Session, error) {
	defer observe("latest_session_for_assignment")()

	s := &models.Session{}
	err := db.QueryRowContext(ctx, `
		SELECT id, assigned_id, current_ability, standard_error, questions_answered,
		       current_index, status, template_snapshot, started_at, completed_at, expires_at
		FROM sessions WHERE assigned_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, assignedID).Scan(
		&s.ID, &s.AssignedID, &s.CurrentAbility, &s.StandardError, &s.QuestionsAnswered,
		&s.CurrentIndex, &s.Status, scanSnapshot(&s.TemplateSnapshot), &s.StartedAt, &s.CompletedAt, &s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load latest session", err)
	}
	return s, nil
}

// ErrConcurrentUpdate surfaces a lost optimistic-concurrency race.
var ErrConcurrentUpdate = apperr.New(apperr.Conflict, "concurrent update")

// ErrAlreadyAnswered surfaces a duplicate (sessionId, itemId) response.
var ErrAlreadyAnswered = apperr.New(apperr.Conflict, "item already answered")

// AppendResponse inserts a Response row and advances currentIndex,
// guarded by the optimistic (sessionId, currentIndex) check from
// spec.md §4.2. Exactly one of two concurrent callers with the same
// expectedIndex succeeds; the other observes ErrConcurrentUpdate.
func (db *DB) AppendResponse(ctx context.Context, sessionID uuid.UUID, expectedIndex int, resp models.Response) (*models.Response, error) {
	defer observe("append_response")()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var existingID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM responses WHERE session_id = $1 AND item_id = $2
	`, sessionID, resp.ItemID).Scan(&existingID)
	if err == nil {
		return nil, ErrAlreadyAnswered
	}
	if err != sql.ErrNoRows {
		return nil, apperr.Wrap(apperr.Internal, "failed to check existing response", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET current_index = current_index + 1, questions_answered = questions_answered + 1
		WHERE id = $1 AND current_index = $2 AND status = $3
	`, sessionID, expectedIndex, models.SessionInProgress)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to advance session index", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to read rows affected", err)
	}
	if rows == 0 {
		return nil, ErrConcurrentUpdate
	}

	out := &models.Response{}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO responses (session_id, item_id, response_data, is_correct, raw_score,
		                        presented_at, submitted_at, time_taken_ms, media_key, asr_transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, session_id, item_id, response_data, is_correct, raw_score,
		          presented_at, submitted_at, time_taken_ms, media_key, asr_transcript
	`, sessionID, resp.ItemID, resp.ResponseData, resp.IsCorrect, resp.RawScore,
		resp.PresentedAt, resp.SubmittedAt, resp.TimeTakenMS, resp.MediaKey, resp.ASRTranscript).Scan(
		&out.ID, &out.SessionID, &out.ItemID, &out.ResponseData, &out.IsCorrect, &out.RawScore,
		&out.PresentedAt, &out.SubmittedAt, &out.TimeTakenMS, &out.MediaKey, &out.ASRTranscript,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to insert response", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to commit response", err)
	}
	return out, nil
}

// ResponsesForSession returns every Response recorded for a session, in
// submission order.
func (db *DB) ResponsesForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Response, error) {
	defer observe("responses_for_session")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, item_id, response_data, is_correct, raw_score,
		       presented_at, submitted_at, time_taken_ms, media_key, asr_transcript
		FROM responses WHERE session_id = $1 ORDER BY submitted_at ASC
	`, sessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query responses", err)
	}
	defer rows.Close()

	var out []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.ItemID, &r.ResponseData, &r.IsCorrect, &r.RawScore,
			&r.PresentedAt, &r.SubmittedAt, &r.TimeTakenMS, &r.MediaKey, &r.ASRTranscript,
		); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan response", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateSessionProgress persists the recomputed ability/SE and the
// status after a response is scored (spec.md §4.2). It does not touch
// current_index; AppendResponse advances that.
func (db *DB) UpdateSessionProgress(ctx context.Context, sessionID uuid.UUID, theta, se float64, status models.SessionStatus) error {
	defer observe("update_session_progress")()

	_, err := db.ExecContext(ctx, `
		UPDATE sessions SET current_ability = $1, standard_error = $2, status = $3
		WHERE id = $4
	`, theta, se, status, sessionID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update session progress", err)
	}
	return nil
}

// FinalizeSession writes the Result and RecommendedItem rows and marks
// the Session and its AssignedAssessment COMPLETED, all in one
// transaction (spec.md §4.2).
func (db *DB) FinalizeSession(ctx context.Context, sessionID uuid.UUID, result models.Result, recs []models.RecommendedItem, now time.Time) (*models.Result, error) {
	defer observe("finalize_session")()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	skillScoresJSON, err := json.Marshal(result.SkillScores)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal skill scores", err)
	}
	criteriaJSON, err := json.Marshal(result.CriteriaScores)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal criteria scores", err)
	}

	out := &models.Result{}
	var outSkillScores, outCriteria []byte
	err = tx.QueryRowContext(ctx, `
		INSERT INTO results (session_id, proficiency_level, skill_scores, overall_score,
		                      result_type, information_metric, criteria_scores, transcript,
		                      essay_text, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, session_id, proficiency_level, skill_scores, overall_score,
		          result_type, information_metric, criteria_scores, transcript, essay_text,
		          word_count, created_at
	`, sessionID, result.ProficiencyLevel, skillScoresJSON, result.OverallScore,
		result.ResultType, result.InformationMetric, criteriaJSON, result.Transcript,
		result.EssayText, result.WordCount, now).Scan(
		&out.ID, &out.SessionID, &out.ProficiencyLevel, &outSkillScores, &out.OverallScore,
		&out.ResultType, &out.InformationMetric, &outCriteria, &out.Transcript, &out.EssayText,
		&out.WordCount, &out.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to insert result", err)
	}
	_ = json.Unmarshal(outSkillScores, &out.SkillScores)
	_ = json.Unmarshal(outCriteria, &out.CriteriaScores)

	for _, rec := range recs {
		rec.ResultID = out.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommended_items (result_id, content_id, content_type, target_skill,
			                                skill_gap_size, rationale, priority_order, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.ResultID, rec.ContentID, rec.ContentType, rec.TargetSkill, rec.SkillGapSize,
			rec.Rationale, rec.PriorityOrder, rec.Source); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to insert recommendation", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET status = $1, completed_at = $2 WHERE id = $3
	`, models.SessionCompleted, now, sessionID); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to complete session", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE assigned_assessments SET status = $1
		WHERE id = (SELECT assigned_id FROM sessions WHERE id = $2)
	`, models.AssignmentCompleted, sessionID); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to complete assignment", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to commit finalize", err)
	}
	return out, nil
}

// ResultForSession returns the persisted Result for a COMPLETED
// session, supporting complete()'s idempotent re-read.
func (db *DB) ResultForSession(ctx context.Context, sessionID uuid.UUID) (*models.Result, error) {
	defer observe("result_for_session")()

	out := &models.Result{}
	var skillScores, criteria []byte
	err := db.QueryRowContext(ctx, `
		SELECT id, session_id, proficiency_level, skill_scores, overall_score,
		       result_type, information_metric, criteria_scores, transcript, essay_text,
		       word_count, created_at
		FROM results WHERE session_id = $1
	`, sessionID).Scan(
		&out.ID, &out.SessionID, &out.ProficiencyLevel, &skillScores, &out.OverallScore,
		&out.ResultType, &out.InformationMetric, &criteria, &out.Transcript, &out.EssayText,
		&out.WordCount, &out.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load result", err)
	}
	_ = json.Unmarshal(skillScores, &out.SkillScores)
	_ = json.Unmarshal(criteria, &out.CriteriaScores)
	return out, nil
}

// RecommendationsForResult returns a result's current recommendation set.
func (db *DB) RecommendationsForResult(ctx context.Context, resultID uuid.UUID) ([]models.RecommendedItem, error) {
	defer observe("recommendations_for_result")()

	rows, err := db.QueryContext(ctx, `
		SELECT id, result_id, content_id, content_type, target_skill, skill_gap_size,
		       rationale, priority_order, source, overridden_by, overridden_at
		FROM recommended_items WHERE result_id = $1 ORDER BY priority_order ASC
	`, resultID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to query recommendations", err)
	}
	defer rows.Close()

	var out []models.RecommendedItem
	for rows.Next() {
		var r models.RecommendedItem
		if err := rows.Scan(
			&r.ID, &r.ResultID, &r.ContentID, &r.ContentType, &r.TargetSkill, &r.SkillGapSize,
			&r.Rationale, &r.PriorityOrder, &r.Source, &r.OverriddenBy, &r.OverriddenAt,
		); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to scan recommendation", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ReplaceRecommendations atomically swaps a result's recommendation set
// for a new one, used by admin manual overrides (spec.md §4.4 "Manual
// override"); every row it writes is MANUAL. FinalizeSession inserts
// the AUTO set itself.
func (db *DB) ReplaceRecommendations(ctx context.Context, resultID uuid.UUID, recs []models.RecommendedItem, overriddenBy uuid.UUID, now time.Time) ([]models.RecommendedItem, error) {
	defer observe("replace_recommendations")()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommended_items WHERE result_id = $1`, resultID); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to clear recommendations", err)
	}

	out := make([]models.RecommendedItem, 0, len(recs))
	for _, rec := range recs {
		rec.ResultID = resultID
		rec.Source = models.SourceManual
		rec.OverriddenBy = &overriddenBy
		rec.OverriddenAt = &now

		var id uuid.UUID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO recommended_items (result_id, content_id, content_type, target_skill,
			                                skill_gap_size, rationale, priority_order, source,
			                                overridden_by, overridden_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`, rec.ResultID, rec.ContentID, rec.ContentType, rec.TargetSkill, rec.SkillGapSize,
			rec.Rationale, rec.PriorityOrder, rec.Source, rec.OverriddenBy, rec.OverriddenAt).Scan(&id)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to insert override row", err)
		}
		rec.ID = id
		out = append(out, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to commit override", err)
	}
	return out, nil
}

// CancelSession marks a Session CANCELLED without producing a Result
// (spec.md §4.3 "cancel").
func (db *DB) CancelSession(ctx context.Context, sessionID uuid.UUID) error {
	defer observe("cancel_session")()

	_, err := db.ExecContext(ctx, `
		UPDATE sessions SET status = $1 WHERE id = $2 AND status = $3
	`, models.SessionCancelled, sessionID, models.SessionInProgress)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to cancel session", err)
	}
	return nil
}

// ExpireStaleSessions marks every IN_PROGRESS session whose expiresAt
// has passed as EXPIRED, returning the count affected (spec.md §4.2,
// §5 "Session expiry").
func (db *DB) ExpireStaleSessions(ctx context.Context, now time.Time) (int, error) {
	defer observe("expire_stale_sessions")()

	res, err := db.ExecContext(ctx, `
		UPDATE sessions SET status = $1
		WHERE status = $2 AND expires_at < $3
	`, models.SessionExpired, models.SessionInProgress, now)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "failed to expire stale sessions", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "failed to read rows affected", err)
	}
	return int(rows), nil
}
