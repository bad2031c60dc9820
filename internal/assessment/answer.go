package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/irt"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// AnswerPayload is one submitted response to the item presented at
// CurrentIndex.
type AnswerPayload struct {
	ItemID        uuid.UUID
	ResponseData  models.JSONB
	TimeTakenMS   int
	CurrentIndex  int
	MediaKey      *string
	ASRTranscript *string
}

// Answer implements answer(sessionId, payload): IN_PROGRESS -> IN_PROGRESS
// (select next item) or IN_PROGRESS -> COMPLETED (termination met),
// per spec.md §4.3. Optimistic concurrency is enforced by the Store's
// (sessionId, currentIndex) check; a losing concurrent call surfaces
// apperr.Conflict without mutating state.
func (e *Engine) Answer(ctx context.Context, sessionID uuid.UUID, payload AnswerPayload, actorID uuid.UUID) (*AnswerResult, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return e.idempotentComplete(ctx, session)
	}
	if session.Status != models.SessionInProgress {
		return nil, apperr.New(apperr.Expired, "session is not in progress")
	}
	if time.Now().After(session.ExpiresAt) {
		_ = e.Store.UpdateSessionProgress(ctx, sessionID, session.CurrentAbility, session.StandardError, models.SessionExpired)
		return nil, apperr.New(apperr.Expired, "session has expired")
	}

	if payload.CurrentIndex != session.CurrentIndex {
		if payload.CurrentIndex < session.CurrentIndex {
			// A replay of an already-recorded answer: return the same
			// next-question deterministically rather than double-appending
			// (spec.md §8 idempotence law).
			return e.replayAnswer(ctx, *session)
		}
		return nil, apperr.New(apperr.Conflict, "stale currentIndex")
	}

	expected, err := e.nextQuestion(ctx, *session, nil)
	if err != nil {
		return nil, err
	}
	if expected == nil || expected.ItemID != payload.ItemID {
		return nil, apperr.New(apperr.SemanticValidation, "item does not match the item presented at this currentIndex")
	}

	item, err := e.Store.ItemByID(ctx, payload.ItemID)
	if err != nil {
		return nil, err
	}

	isCorrect, rawScore := false, 0.0
	if session.TemplateSnapshot.Template.Type == models.TypePlacement {
		isCorrect, rawScore = validateResponse(*item, payload.ResponseData)
	}

	now := time.Now()
	_, err = e.Store.AppendResponse(ctx, sessionID, payload.CurrentIndex, models.Response{
		ItemID:        payload.ItemID,
		ResponseData:  payload.ResponseData,
		IsCorrect:     isCorrect,
		RawScore:      rawScore,
		PresentedAt:   session.StartedAt,
		SubmittedAt:   now,
		TimeTakenMS:   payload.TimeTakenMS,
		MediaKey:      payload.MediaKey,
		ASRTranscript: payload.ASRTranscript,
	})
	if err != nil {
		return nil, err
	}

	session.CurrentIndex++
	session.QuestionsAnswered++

	if session.TemplateSnapshot.Template.Type == models.TypePlacement {
		return e.advancePlacement(ctx, session, payload.ItemID, actorID)
	}
	return e.advanceFixed(ctx, session, actorID)
}

// advancePlacement recomputes theta/SE and evaluates the three
// termination criteria in order (spec.md §4.1).
func (e *Engine) advancePlacement(ctx context.Context, session *models.Session, justAnsweredItemID uuid.UUID, actorID uuid.UUID) (*AnswerResult, error) {
	responses, err := e.Store.ResponsesForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	bank, err := e.Store.ActiveItemsForTemplate(ctx, session.TemplateSnapshot.Template.PathwayID)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[uuid.UUID]models.Item, len(bank))
	for _, it := range bank {
		itemsByID[it.ID] = it
	}

	answered := make([]irt.Answered, 0, len(responses))
	answeredIDs := make(map[uuid.UUID]bool, len(responses))
	var answeredItems []models.Item
	for _, r := range responses {
		item, ok := itemsByID[r.ItemID]
		if !ok {
			continue
		}
		answered = append(answered, irt.Answered{Params: item.IRTParams, IsCorrect: r.IsCorrect})
		answeredIDs[r.ItemID] = true
		answeredItems = append(answeredItems, item)
	}

	config := session.TemplateSnapshot.Config
	est := irt.EstimateEAP(e.Quadrature, answered, config.AdaptiveParams.StartingAbility)

	skillCounts := irt.SkillCounts(answeredItems)
	candidates := irt.FilterEligible(bank, answeredIDs, skillCounts, config.AdaptiveParams.SkillAreas)

	reason := irt.CheckTermination(session.QuestionsAnswered, est.StandardError, config.AdaptiveParams, len(candidates))

	session.CurrentAbility = est.Theta
	session.StandardError = est.StandardError

	if reason != irt.NotTerminal {
		if err := e.Store.UpdateSessionProgress(ctx, session.ID, est.Theta, est.StandardError, models.SessionInProgress); err != nil {
			return nil, err
		}
		return e.finalize(ctx, session, responses, actorID)
	}

	if err := e.Store.UpdateSessionProgress(ctx, session.ID, est.Theta, est.StandardError, models.SessionInProgress); err != nil {
		return nil, err
	}

	item, ok := irt.SelectNext(est.Theta, candidates, config.AdaptiveParams.TopKSelection, nil)
	if !ok {
		return e.finalize(ctx, session, responses, actorID)
	}

	e.audit(ctx, actorID, "ANSWER", "Session", session.ID, nil)

	return &AnswerResult{
		Session:      *session,
		NextQuestion: toQuestion(item),
	}, nil
}

// advanceFixed advances a Speaking/Writing session through its fixed
// TemplateItem list; ability estimation is skipped entirely.
func (e *Engine) advanceFixed(ctx context.Context, session *models.Session, actorID uuid.UUID) (*AnswerResult, error) {
	if err := e.Store.UpdateSessionProgress(ctx, session.ID, 0, 0, models.SessionInProgress); err != nil {
		return nil, err
	}

	question, err := e.nextQuestion(ctx, *session, nil)
	if err != nil {
		return nil, err
	}
	if question == nil {
		responses, err := e.Store.ResponsesForSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		return e.finalize(ctx, session, responses, actorID)
	}

	e.audit(ctx, actorID, "ANSWER", "Session", session.ID, nil)
	return &AnswerResult{Session: *session, NextQuestion: question}, nil
}

// replayAnswer reconstructs the deterministic next-question payload
// for a stale-but-already-recorded currentIndex, without mutating state
// (spec.md §8 "Replaying an answer ... does not double-append").
func (e *Engine) replayAnswer(ctx context.Context, session models.Session) (*AnswerResult, error) {
	if session.Status == models.SessionCompleted {
		return e.idempotentComplete(ctx, &session)
	}
	question, err := e.nextQuestion(ctx, session, nil)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Session: session, NextQuestion: question}, nil
}

func (e *Engine) idempotentComplete(ctx context.Context, session *models.Session) (*AnswerResult, error) {
	result, err := e.Store.ResultForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	recs, err := e.Store.RecommendationsForResult(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Session: *session, Done: true, Result: result, Recommendations: recs}, nil
}
