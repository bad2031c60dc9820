package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
	"github.com/noble-platform/adaptive-assessment-core/internal/recommend"
	"github.com/noble-platform/adaptive-assessment-core/internal/scorer"
)

// Complete implements complete(sessionId): idempotent finalize. If the
// session is already COMPLETED it returns the stored Result unchanged;
// otherwise it terminates with the current theta/SE and scores it.
func (e *Engine) Complete(ctx context.Context, sessionID uuid.UUID, actorID uuid.UUID) (*CompleteResult, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		result, err := e.Store.ResultForSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		recs, err := e.Store.RecommendationsForResult(ctx, result.ID)
		if err != nil {
			return nil, err
		}
		return &CompleteResult{Result: *result, Recommendations: recs}, nil
	}
	if session.Status != models.SessionInProgress {
		return nil, apperr.New(apperr.Conflict, "session is not completable")
	}

	responses, err := e.Store.ResponsesForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := e.finalize(ctx, session, responses, actorID)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Result: *res.Result, Recommendations: res.Recommendations}, nil
}

// finalize scores the session via the appropriate Scorer variant,
// computes recommendations, and persists both in one Session Store
// transaction (spec.md §4.2 finalizeSession, §4.5 Scorer Adapter).
// SCORER_UNAVAILABLE leaves the session IN_PROGRESS for a retry.
func (e *Engine) finalize(ctx context.Context, session *models.Session, responses []models.Response, actorID uuid.UUID) (*AnswerResult, error) {
	template := session.TemplateSnapshot.Template
	config := session.TemplateSnapshot.Config

	s, err := e.scorerFor(ctx, template.Type, template.PathwayID, config)
	if err != nil {
		return nil, err
	}

	result, err := s.Score(ctx, *session, responses, config, template.Rubric)
	if err != nil {
		return nil, err
	}
	result.ID = uuid.New()

	catalog := e.NewCatalog(ctx, template.PathwayID)
	recs := recommend.Plan(result, catalog, e.RecommendConfig, e.ProfRange)
	for i := range recs {
		recs[i].ResultID = result.ID
	}

	stored, err := e.Store.FinalizeSession(ctx, session.ID, result, recs, time.Now())
	if err != nil {
		return nil, err
	}

	storedRecs, err := e.Store.RecommendationsForResult(ctx, stored.ID)
	if err != nil {
		return nil, err
	}

	e.audit(ctx, actorID, "COMPLETE_SESSION", "Session", session.ID, nil)

	session.Status = models.SessionCompleted
	return &AnswerResult{
		Session:          *session,
		Done:             true,
		Result:           stored,
		Recommendations:  storedRecs,
	}, nil
}

func (e *Engine) scorerFor(ctx context.Context, assessmentType models.AssessmentType, pathwayID uuid.UUID, config models.AssessmentConfig) (scorer.Scorer, error) {
	switch assessmentType {
	case models.TypePlacement:
		bank, err := e.Store.ActiveItemsForTemplate(ctx, pathwayID)
		if err != nil {
			return nil, err
		}
		itemsByID := make(map[uuid.UUID]models.Item, len(bank))
		for _, it := range bank {
			itemsByID[it.ID] = it
		}
		return scorer.NewPlacementScorer(itemsByID, len(e.Quadrature.Points), e.ProfRange), nil
	case models.TypeSpeaking:
		return e.NewSpeakingScorer(config), nil
	case models.TypeWriting:
		return e.NewWritingScorer(config), nil
	default:
		return nil, apperr.New(apperr.Internal, "unknown assessment type")
	}
}

// Cancel implements cancel(sessionId, actor): no Result is produced
// (spec.md §4.3). Cancel does not check the actor's role; any actorID
// can cancel an IN_PROGRESS session.
func (e *Engine) Cancel(ctx context.Context, sessionID uuid.UUID, actorID uuid.UUID) error {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionInProgress {
		return apperr.New(apperr.Conflict, "session is not cancellable")
	}
	if err := e.Store.CancelSession(ctx, sessionID); err != nil {
		return err
	}
	e.audit(ctx, actorID, "CANCEL_SESSION", "Session", sessionID, nil)
	return nil
}
